// Package chunkview derives what the chunk list looks like on screen: filtering,
// ordering, previews and per-chunk stats. It never talks to the backend.
package chunkview

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	PreviewRunes = 200
	WordsPerMin  = 200
)

type SortMode int

const (
	SortRelevance SortMode = iota
	SortLength
	SortAlphabetical
)

func (m SortMode) String() string {
	switch m {
	case SortLength:
		return "Length"
	case SortAlphabetical:
		return "A-Z"
	}
	return "Relevance"
}

// Next cycles relevance → length → A-Z → relevance.
func (m SortMode) Next() SortMode { return (m + 1) % 3 }

// Item is a chunk together with its position in the unfiltered list.
type Item struct {
	Text  string
	Index int
}

func (it Item) Words() int { return len(strings.Fields(it.Text)) }

func (it Item) Chars() int { return utf8.RuneCountInString(it.Text) }

// ReadMinutes rounds up, so any non-empty chunk reads in at least a minute.
func (it Item) ReadMinutes() int {
	return int(math.Ceil(float64(it.Words()) / WordsPerMin))
}

// Long reports whether the chunk is cut in its collapsed preview.
func (it Item) Long() bool { return it.Chars() > PreviewRunes }

// Preview returns the full text when expanded, otherwise the first PreviewRunes runes
// followed by "..." when truncated.
func (it Item) Preview(expanded bool) string {
	if expanded || !it.Long() {
		return it.Text
	}
	r := []rune(it.Text)
	return string(r[:PreviewRunes]) + "..."
}

// Filter keeps chunks containing term, case-insensitively. An empty term keeps all.
func Filter(chunks []string, term string) []Item {
	needle := strings.ToLower(term)
	out := make([]Item, 0, len(chunks))
	for i, c := range chunks {
		if needle == "" || strings.Contains(strings.ToLower(c), needle) {
			out = append(out, Item{Text: c, Index: i})
		}
	}
	return out
}

// Sort returns a sorted copy. Relevance keeps backend order; ties keep it too.
func Sort(items []Item, mode SortMode) []Item {
	out := append([]Item(nil), items...)
	switch mode {
	case SortLength:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Chars() > out[j].Chars() })
	case SortAlphabetical:
		col := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool { return col.CompareString(out[i].Text, out[j].Text) < 0 })
	}
	return out
}

// View applies Filter then Sort.
func View(chunks []string, term string, mode SortMode) []Item {
	return Sort(Filter(chunks, term), mode)
}

// Segment is a run of text that either matches the search term or does not.
type Segment struct {
	Text  string
	Match bool
}

// Segments splits text around case-insensitive occurrences of term. Matching is done
// rune by rune, so case mappings that change byte width cannot shift the offsets.
func Segments(text, term string) []Segment {
	if term == "" || text == "" {
		return []Segment{{Text: text}}
	}
	src := []rune(text)
	hay := foldRunes(src)
	needle := foldRunes([]rune(term))

	var out []Segment
	pos := 0
	for i := 0; i+len(needle) <= len(hay); {
		if !equalRunes(hay[i:i+len(needle)], needle) {
			i++
			continue
		}
		if i > pos {
			out = append(out, Segment{Text: string(src[pos:i])})
		}
		out = append(out, Segment{Text: string(src[i : i+len(needle)]), Match: true})
		i += len(needle)
		pos = i
	}
	if pos < len(src) {
		out = append(out, Segment{Text: string(src[pos:])})
	}
	return out
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Sentences splits text on terminal punctuation. A trailing fragment without
// punctuation is kept as the last sentence.
func Sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// BestSentence returns the index of the sentence sharing the most distinct words with
// query, or -1 when no sentence shares any. Ties go to the earlier sentence.
func BestSentence(sentences []string, query string) int {
	want := make(map[string]bool)
	for _, w := range words(query) {
		want[w] = true
	}
	best, bestScore := -1, 0
	for i, s := range sentences {
		hit := make(map[string]bool)
		for _, w := range words(s) {
			if want[w] {
				hit[w] = true
			}
		}
		if len(hit) > bestScore {
			best, bestScore = i, len(hit)
		}
	}
	return best
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
