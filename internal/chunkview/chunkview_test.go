package chunkview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chunks = []string{
	"JioPay supports UPI payments.",
	"business accounts get settlement reports every day",
	"Contact support at 1800",
}

func TestFilterCaseInsensitive(t *testing.T) {
	got := Filter(chunks, "SUPPORT")
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[1].Index)

	assert.Len(t, Filter(chunks, ""), 3)
	assert.Empty(t, Filter(chunks, "refund"))
}

func TestSortModes(t *testing.T) {
	items := Filter(chunks, "")

	rel := Sort(items, SortRelevance)
	assert.Equal(t, []int{0, 1, 2}, indexes(rel))

	byLen := Sort(items, SortLength)
	assert.Equal(t, []int{1, 0, 2}, indexes(byLen))

	alpha := Sort(items, SortAlphabetical)
	assert.Equal(t, []int{1, 2, 0}, indexes(alpha))

	// the input is left untouched
	assert.Equal(t, []int{0, 1, 2}, indexes(items))
}

func TestSortModeCycle(t *testing.T) {
	assert.Equal(t, SortLength, SortRelevance.Next())
	assert.Equal(t, SortAlphabetical, SortLength.Next())
	assert.Equal(t, SortRelevance, SortAlphabetical.Next())
	assert.Equal(t, "A-Z", SortAlphabetical.String())
}

func TestItemStats(t *testing.T) {
	it := Item{Text: "one two  three"}
	assert.Equal(t, 3, it.Words())
	assert.Equal(t, 14, it.Chars())
	assert.Equal(t, 1, it.ReadMinutes())

	long := Item{Text: strings.Repeat("word ", 401)}
	assert.Equal(t, 3, long.ReadMinutes())
}

func TestPreview(t *testing.T) {
	short := Item{Text: "short"}
	assert.False(t, short.Long())
	assert.Equal(t, "short", short.Preview(false))

	text := strings.Repeat("é", 250)
	long := Item{Text: text}
	assert.True(t, long.Long())
	assert.Equal(t, strings.Repeat("é", 200)+"...", long.Preview(false))
	assert.Equal(t, text, long.Preview(true))
}

func TestSegments(t *testing.T) {
	got := Segments("Pay with JioPay or jiopay app", "jiopay")
	assert.Equal(t, []Segment{
		{Text: "Pay with "},
		{Text: "JioPay", Match: true},
		{Text: " or "},
		{Text: "jiopay", Match: true},
		{Text: " app"},
	}, got)

	assert.Equal(t, []Segment{{Text: "abc"}}, Segments("abc", ""))
	assert.Equal(t, []Segment{{Text: "abc"}}, Segments("abc", "z"))
}

func indexes(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Index
	}
	return out
}

func TestSegmentsWidthChangingCaseMapping(t *testing.T) {
	// ẞ lowercases to a shorter encoding and Ⱥ to a longer one.
	got := Segments("ẞabȺ", "AB")
	assert.Equal(t, []Segment{
		{Text: "ẞ"},
		{Text: "ab", Match: true},
		{Text: "Ⱥ"},
	}, got)

	got = Segments("Ⱥb", "ⱥ")
	assert.Equal(t, []Segment{{Text: "Ⱥ", Match: true}, {Text: "b"}}, got)
}

func TestSentencesKeepsTail(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two and more"}, Sentences("One. Two and more"))
	assert.Equal(t, []string{"no punctuation"}, Sentences("no punctuation"))
	assert.Empty(t, Sentences("   "))
}

func TestBestSentence(t *testing.T) {
	sents := Sentences("Payments are instant. Contact support by phone. Support is 24x7.")
	assert.Equal(t, 1, BestSentence(sents, "How to contact support?"))
	assert.Equal(t, -1, BestSentence(sents, "refund policy"))
	assert.Equal(t, -1, BestSentence(sents, ""))
}
