package patch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePatch renders the patch that turns from into to, in editor wire format.
func makePatch(from, to string) string {
	dmp := diffmatchpatch.New()
	return dmp.PatchToText(dmp.PatchMake(from, to))
}

func TestParse_Headers(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		start1  int
		length1 int
		start2  int
		length2 int
	}{
		{"implicit length", "@@ -3 +3 @@", 2, 1, 2, 1},
		{"zero length", "@@ -0,0 +1,5 @@", 0, 0, 0, 5},
		{"explicit lengths", "@@ -382,8 +382,9 @@", 381, 8, 381, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hunks, err := Parse(tt.header + "\n")
			require.NoError(t, err)
			require.Len(t, hunks, 1)
			assert.Equal(t, tt.start1, hunks[0].Start1)
			assert.Equal(t, tt.length1, hunks[0].Length1)
			assert.Equal(t, tt.start2, hunks[0].Start2)
			assert.Equal(t, tt.length2, hunks[0].Length2)
		})
	}
}

func TestParse_DecodesBody(t *testing.T) {
	hunks, err := Parse("@@ -1,4 +1,6 @@\n ab\n-c%0A\n+100%25 +\n d\n")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	assert.Equal(t, []Op{
		{Kind: OpEqual, Text: "ab"},
		{Kind: OpDelete, Text: "c\n"},
		{Kind: OpInsert, Text: "100% +"},
		{Kind: OpEqual, Text: "d"},
	}, hunks[0].Ops)
	assert.Equal(t, "abc\nd", hunks[0].Source())
	assert.Equal(t, "ab100% +d", hunks[0].Target())
}

func TestParse_Empty(t *testing.T) {
	hunks, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, hunks)

	hunks, err = Parse("\n\n")
	require.NoError(t, err)
	assert.Empty(t, hunks)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not a patch", "hello world"},
		{"bad header", "@@ -a,b +c,d @@\n x\n"},
		{"unknown mode", "@@ -1,2 +1,2 @@\n*xy\n"},
		{"bad escape", "@@ -1,2 +1,2 @@\n %zz\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestApply_GeneratedPatch(t *testing.T) {
	from := "The quick brown fox jumps over the lazy dog."
	to := "The quick brown cat leaps over the lazy dog!"

	result, err := ApplyText(from, makePatch(from, to))
	require.NoError(t, err)
	assert.Equal(t, to, result.Text)
	assert.Empty(t, result.Failed)
}

func TestApply_MultipleHunks(t *testing.T) {
	var lines []string
	for i := 0; i < 80; i++ {
		lines = append(lines, fmt.Sprintf("line %02d of the manuscript", i))
	}
	from := strings.Join(lines, "\n")

	lines[3] = "line 03 was rewritten entirely"
	lines[70] = "line 70 of the revised manuscript"
	to := strings.Join(lines, "\n")

	hunks, err := Parse(makePatch(from, to))
	require.NoError(t, err)
	require.Greater(t, len(hunks), 1)

	result := Apply(from, hunks, DefaultOptions())
	assert.Equal(t, to, result.Text)
	assert.Equal(t, len(hunks), result.Applied)
}

func TestApply_InsertIntoEmpty(t *testing.T) {
	result, err := ApplyText("", makePatch("", "hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
}

func TestApply_EmptyPatchIsNoop(t *testing.T) {
	result, err := ApplyText("unchanged", "")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", result.Text)
	assert.Zero(t, result.Applied)
}

func TestApply_ToleratesDrift(t *testing.T) {
	from := "The quick brown fox jumps over the lazy dog."
	to := "The quick brown cat jumps over the lazy dog."
	current := "A preface someone else typed meanwhile. " + from

	result, err := ApplyText(current, makePatch(from, to))
	require.NoError(t, err)
	assert.Equal(t, "A preface someone else typed meanwhile. "+to, result.Text)
	assert.Empty(t, result.Failed)
}

func TestApply_ErodesContext(t *testing.T) {
	// Source "own fox jum" at offset 12; the trailing context was edited.
	text := "@@ -13,11 +13,11 @@\n own \n-fox\n+cat\n  jum\n"
	current := "The quick brown fox Jumps over the lazy dog."

	result, err := ApplyText(current, text)
	require.NoError(t, err)
	assert.Equal(t, "The quick brown cat Jumps over the lazy dog.", result.Text)
	assert.Empty(t, result.Failed)
}

func TestApply_ReportsUnplaceableHunk(t *testing.T) {
	text := "@@ -13,11 +13,11 @@\n own \n-fox\n+cat\n  jum\n"
	current := "Nothing in here resembles the patch."

	result, err := ApplyText(current, text)
	require.NoError(t, err)
	assert.Equal(t, current, result.Text)
	assert.Equal(t, []int{0}, result.Failed)
	assert.Zero(t, result.Applied)
}

func TestApply_ContinuesAfterFailedHunk(t *testing.T) {
	var filler []string
	for i := 0; i < 60; i++ {
		filler = append(filler, fmt.Sprintf("filler %02d", i))
	}
	body := strings.Join(filler, "\n")
	from := "alpha line one\n" + body + "\nomega line two"
	to := "alpha line ONE\n" + body + "\nomega line TWO"
	current := "zzzzz zzzz zzz\n" + body + "\nomega line two"

	hunks, err := Parse(makePatch(from, to))
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	result := Apply(current, hunks, DefaultOptions())
	assert.Equal(t, []int{0}, result.Failed)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, "zzzzz zzzz zzz\n"+body+"\nomega line TWO", result.Text)
}

func TestApply_CodePointOffsets(t *testing.T) {
	result, err := ApplyText("héllo wörld", "@@ -7,5 +7,4 @@\n-w%C3%B6rld\n+welt\n")
	require.NoError(t, err)
	assert.Equal(t, "héllo welt", result.Text)
}

func TestApply_RespectsMaxDrift(t *testing.T) {
	hunks, err := Parse("@@ -1,3 +1,3 @@\n-abc\n+xyz\n")
	require.NoError(t, err)

	current := strings.Repeat(".", 50) + "abc"

	result := Apply(current, hunks, Options{MaxDrift: 10})
	assert.Equal(t, []int{0}, result.Failed)

	result = Apply(current, hunks, Options{MaxDrift: 100})
	assert.Empty(t, result.Failed)
	assert.Equal(t, strings.Repeat(".", 50)+"xyz", result.Text)
}
