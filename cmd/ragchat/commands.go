package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ragchat/internal/domain"
)

func askCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query>",
		Short: "Send one query to the backend and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _ := cliApp(*cfgPath)
			defer app.Close()

			ex, err := app.Ask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Answer:\n%s\n", ex.Answer)
			if len(ex.Citations) > 0 {
				fmt.Fprintln(out, "\nCitations:")
				for i, c := range ex.Citations {
					fmt.Fprintf(out, "%d. %s\n", i+1, c.DisplayTitle())
					if c.Snippet != "" {
						fmt.Fprintf(out, "   %s\n", c.Snippet)
					}
				}
			}
			chunks := ex.Chunks()
			if len(chunks) > 0 {
				fmt.Fprintf(out, "\nRetrieved chunks (%d unique):\n", len(chunks))
				for i, text := range chunks {
					fmt.Fprintf(out, "[%d] %s\n", i+1, text)
				}
			}
			return nil
		},
	}
}

func reindexCMD(cfgPath *string) *cobra.Command {
	var embedModel, chunker, pipeline string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Run ingest, build_index and load_index once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _ := cliApp(*cfgPath)
			defer app.Close()

			sel := app.Selection()
			if embedModel != "" {
				sel.EmbedModel = domain.EmbedModel(embedModel)
			}
			if chunker != "" {
				sel.Chunker = domain.Chunker(chunker)
			}
			if pipeline != "" {
				sel.Pipeline = domain.Pipeline(pipeline)
			}
			if err := sel.Validate(); err != nil {
				return err
			}

			rep := app.ReindexWith(sel)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s (%s)\n", rep.RunID, rep.Config)
			for _, o := range rep.Completed {
				msg := o.Result.Message
				if o.Result.Path != "" {
					msg = strings.TrimSpace(msg + " " + o.Result.Path)
				}
				fmt.Fprintf(out, "  %-11s ok  %s  %s\n", o.Step, o.Elapsed.Round(time.Millisecond), msg)
			}
			if !rep.OK() {
				if rep.FailedStep != "" {
					fmt.Fprintf(out, "  %-11s failed\n", rep.FailedStep)
				}
				return rep.Err
			}
			fmt.Fprintf(out, "done in %s\n", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model: openai, e5 or bge")
	cmd.Flags().StringVar(&chunker, "chunker", "", "Chunker: fixed, semantic, structural or recursive")
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Ingestion pipeline: trafilatura, requests or selenium")
	return cmd
}

var errOffline = errors.New("backend offline")

func healthCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg := cliApp(*cfgPath)
			defer app.Close()

			status := app.CheckHealth()
			badge := "Offline"
			if status.Online() {
				badge = "Online"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s (%s, status=%s)\n", badge, cfg.Backend.BaseURL, status)
			if !status.Online() {
				return errOffline
			}
			return nil
		},
	}
}
