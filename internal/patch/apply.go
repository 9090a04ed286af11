package patch

// Options bound how far Apply may stray from the positions a patch names.
type Options struct {
	// MaxDrift is the furthest, in code points, a hunk may be placed from
	// its expected position.
	MaxDrift int
	// MaxContextTrim is the most context, per side, dropped from a hunk
	// whose full source text cannot be found.
	MaxContextTrim int
}

// DefaultOptions returns the tolerances used for editor patches.
func DefaultOptions() Options {
	return Options{
		MaxDrift:       1000,
		MaxContextTrim: 8,
	}
}

// Result is the outcome of applying a patch.
type Result struct {
	Text    string
	Applied int
	// Failed holds the indexes of hunks that could not be placed.
	Failed []int
}

// Apply applies hunks to current in order. Hunks that cannot be placed are
// skipped and reported in Result.Failed; the rest still apply.
//
// Placement rules, in order:
//  1. the hunk's source text at its expected position (start2 adjusted by
//     the drift observed on earlier hunks);
//  2. the nearest exact occurrence within MaxDrift of that position;
//  3. the same search with up to MaxContextTrim code points of surrounding
//     context removed from each side. Deleted text is always matched exactly.
func Apply(current string, hunks []Hunk, opts Options) Result {
	text := []rune(current)
	result := Result{}
	delta := 0

	for i, h := range hunks {
		source := []rune(h.Source())
		target := []rune(h.Target())
		expected := h.Start2 + delta

		if len(source) == 0 {
			pos := clamp(expected, 0, len(text))
			text = splice(text, pos, 0, target)
			delta = pos - h.Start2
			result.Applied++
			continue
		}

		if loc := locate(text, source, expected, opts.MaxDrift); loc >= 0 {
			text = splice(text, loc, len(source), target)
			delta = loc - h.Start2
			result.Applied++
			continue
		}

		if loc, ok := applyEroded(&text, h, source, target, expected, opts); ok {
			delta = loc - h.Start2
			result.Applied++
			continue
		}

		delta -= len(target) - len(source)
		result.Failed = append(result.Failed, i)
	}

	result.Text = string(text)
	return result
}

// ApplyText parses patchText and applies it with DefaultOptions.
func ApplyText(current, patchText string) (Result, error) {
	hunks, err := Parse(patchText)
	if err != nil {
		return Result{}, err
	}
	return Apply(current, hunks, DefaultOptions()), nil
}

// applyEroded retries placement with leading and trailing context trimmed.
// It returns the position the untrimmed hunk would have started at.
func applyEroded(text *[]rune, h Hunk, source, target []rune, expected int, opts Options) (int, bool) {
	if len(h.Ops) < 2 {
		return 0, false
	}

	leading, trailing := 0, 0
	if first := h.Ops[0]; first.Kind == OpEqual {
		leading = len([]rune(first.Text))
	}
	if last := h.Ops[len(h.Ops)-1]; last.Kind == OpEqual {
		trailing = len([]rune(last.Text))
	}

	for trim := 1; trim <= opts.MaxContextTrim; trim++ {
		lead := min(trim, leading)
		trail := min(trim, trailing)
		if lead+trail == 0 || lead+trail >= len(source) {
			return 0, false
		}

		core := source[lead : len(source)-trail]
		replacement := target[lead : len(target)-trail]
		if loc := locate(*text, core, expected+lead, opts.MaxDrift); loc >= 0 {
			*text = splice(*text, loc, len(core), replacement)
			return loc - lead, true
		}

		if lead == leading && trail == trailing {
			return 0, false
		}
	}

	return 0, false
}

// locate finds the occurrence of needle nearest to anchor, searching at most
// maxDrift code points either side. Returns -1 when there is none.
func locate(text, needle []rune, anchor, maxDrift int) int {
	last := len(text) - len(needle)
	if last < 0 {
		return -1
	}

	for d := 0; d <= maxDrift; d++ {
		if p := anchor + d; p >= 0 && p <= last && equalAt(text, p, needle) {
			return p
		}
		if d == 0 {
			continue
		}
		if p := anchor - d; p >= 0 && p <= last && equalAt(text, p, needle) {
			return p
		}
		if anchor+d > last && anchor-d < 0 {
			break
		}
	}

	return -1
}

func equalAt(text []rune, pos int, needle []rune) bool {
	for i, r := range needle {
		if text[pos+i] != r {
			return false
		}
	}
	return true
}

func splice(text []rune, pos, n int, replacement []rune) []rune {
	out := make([]rune, 0, len(text)-n+len(replacement))
	out = append(out, text[:pos]...)
	out = append(out, replacement...)
	return append(out, text[pos+n:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
