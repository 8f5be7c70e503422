// Package reindex runs the ingest → build_index → load_index sequence whenever the
// selection changes.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/domain"
	"ragchat/internal/logging"
)

// State is the orchestrator's coarse status as shown to the user.
type State int

const (
	Idle State = iota
	Rebuilding
)

func (s State) String() string {
	if s == Rebuilding {
		return "rebuilding"
	}
	return "idle"
}

// Step names one backend call of a run.
type Step string

const (
	StepIngest     Step = "ingest"
	StepBuildIndex Step = "build_index"
	StepLoadIndex  Step = "load_index"
)

// Steps lists the run sequence in order.
var Steps = []Step{StepIngest, StepBuildIndex, StepLoadIndex}

// ErrSuperseded marks a run cancelled because a newer one started.
var ErrSuperseded = errors.New("superseded by a newer run")

// StepOutcome records one completed step.
type StepOutcome struct {
	Step    Step
	Result  domain.StepResult
	Elapsed time.Duration
}

// Report describes a finished run. Err is nil only when all three steps succeeded.
type Report struct {
	RunID      string
	Config     domain.Configuration
	Completed  []StepOutcome
	FailedStep Step
	Err        error
	Started    time.Time
	Finished   time.Time
}

// OK reports whether every step succeeded.
func (r Report) OK() bool { return r.Err == nil }

// Superseded reports whether the run was cut short by a newer run.
func (r Report) Superseded() bool { return errors.Is(r.Err, ErrSuperseded) }

// Options configures an Orchestrator.
type Options struct {
	// Sources is copied; later changes to the slice are not observed.
	Sources []string
	// Supersede cancels the in-flight run when a new one starts. Off by default, in
	// which case overlapping runs proceed independently and may finish in any order.
	Supersede bool
	Logger    *slog.Logger
}

// Orchestrator owns no lock around the backend: the loaded index is shared and
// overlapping runs race unless Supersede is set.
type Orchestrator struct {
	backend   domain.IndexBackend
	sources   []string
	supersede bool
	log       *slog.Logger

	active atomic.Int32

	mu     sync.Mutex
	latest string
	cancel context.CancelFunc
}

// New creates an orchestrator that indexes the given sources through backend.
func New(backend domain.IndexBackend, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{
		backend:   backend,
		sources:   append([]string(nil), opts.Sources...),
		supersede: opts.Supersede,
		log:       log,
	}
}

// Sources returns a copy of the fixed URL set.
func (o *Orchestrator) Sources() []string { return append([]string(nil), o.sources...) }

// State is Rebuilding while at least one run is in flight.
func (o *Orchestrator) State() State {
	if o.active.Load() > 0 {
		return Rebuilding
	}
	return Idle
}

// Run performs one ingest → build_index → load_index sequence and blocks until it ends.
// The first failing step ends the run; it is logged and reported, never retried.
func (o *Orchestrator) Run(ctx context.Context, cfg domain.Configuration) (rep Report) {
	rep = Report{RunID: uuid.NewString(), Config: cfg, Started: time.Now()}
	log := o.log.With("run_id", rep.RunID, "embed_model", cfg.EmbedModel, "chunker", cfg.Chunker, "pipeline", cfg.Pipeline)

	o.active.Add(1)
	defer o.active.Add(-1)

	runCtx, release := o.begin(ctx, rep.RunID)
	defer release()

	log.Info("reindex started")
	defer func() {
		rep.Finished = time.Now()
		switch {
		case rep.OK():
			log.Info("reindex finished", "elapsed", rep.Finished.Sub(rep.Started))
		case rep.Superseded():
			log.Info("reindex superseded", "step", rep.FailedStep)
		default:
			log.Error("reindex failed", "step", rep.FailedStep, "err", rep.Err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		rep.Err = err
		return rep
	}

	for _, step := range Steps {
		if err := o.checkCurrent(runCtx, rep.RunID); err != nil {
			rep.FailedStep, rep.Err = step, err
			return rep
		}
		start := time.Now()
		res, err := o.exec(runCtx, step, cfg)
		if err != nil {
			if o.isSuperseded(rep.RunID) {
				err = fmt.Errorf("%w: %v", ErrSuperseded, err)
			}
			rep.FailedStep, rep.Err = step, err
			return rep
		}
		elapsed := time.Since(start)
		log.Debug("reindex step done", "step", step, "elapsed", elapsed, "message", res.Message)
		rep.Completed = append(rep.Completed, StepOutcome{Step: step, Result: res, Elapsed: elapsed})
	}
	return rep
}

func (o *Orchestrator) exec(ctx context.Context, step Step, cfg domain.Configuration) (domain.StepResult, error) {
	switch step {
	case StepIngest:
		return o.backend.Ingest(ctx, o.Sources(), cfg.Pipeline)
	case StepBuildIndex:
		return o.backend.BuildIndex(ctx, domain.BuildIndexRequest{
			EmbedModel: cfg.EmbedModel,
			Chunker:    cfg.Chunker,
			URLs:       o.Sources(),
			Pipeline:   cfg.Pipeline,
		})
	case StepLoadIndex:
		return o.backend.LoadIndex(ctx, cfg.EmbedModel, cfg.Chunker)
	}
	return domain.StepResult{}, fmt.Errorf("unknown step %q", step)
}

// begin registers the run as the latest one. In supersede mode it cancels the
// previous run and hands back a context that the next run will cancel in turn.
func (o *Orchestrator) begin(ctx context.Context, runID string) (context.Context, func()) {
	if !o.supersede {
		return ctx, func() {}
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.latest = runID
	o.cancel = cancel
	o.mu.Unlock()
	return runCtx, func() {
		o.mu.Lock()
		if o.latest == runID {
			o.cancel = nil
		}
		o.mu.Unlock()
		cancel()
	}
}

func (o *Orchestrator) isSuperseded(runID string) bool {
	if !o.supersede {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest != runID
}

func (o *Orchestrator) checkCurrent(ctx context.Context, runID string) error {
	if o.isSuperseded(runID) {
		return ErrSuperseded
	}
	return ctx.Err()
}
