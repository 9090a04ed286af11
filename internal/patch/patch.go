// Package patch parses and applies diff-match-patch text patches.
//
// The wire format is the one produced by patch_toText in the diff-match-patch
// family of libraries:
//
//	@@ -382,8 +382,9 @@
//	 context
//	-removed
//	+inserted
//
// Body lines carry percent-encoded text. Offsets and lengths count Unicode
// code points, not bytes.
package patch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when patch text cannot be parsed.
var ErrMalformed = errors.New("malformed patch")

// OpKind identifies what a hunk line does to the text.
type OpKind int

const (
	OpEqual OpKind = iota
	OpDelete
	OpInsert
)

// Op is one decoded body line of a hunk.
type Op struct {
	Kind OpKind
	Text string
}

// Hunk is a single "@@ -s1,l1 +s2,l2 @@" block.
// Start1/Start2 are zero-based.
type Hunk struct {
	Start1  int
	Length1 int
	Start2  int
	Length2 int
	Ops     []Op
}

// Source returns the text the hunk expects to find (context plus deletions).
func (h Hunk) Source() string {
	var b strings.Builder
	for _, op := range h.Ops {
		if op.Kind != OpInsert {
			b.WriteString(op.Text)
		}
	}
	return b.String()
}

// Target returns the text the hunk leaves behind (context plus insertions).
func (h Hunk) Target() string {
	var b strings.Builder
	for _, op := range h.Ops {
		if op.Kind != OpDelete {
			b.WriteString(op.Text)
		}
	}
	return b.String()
}

var headerPattern = regexp.MustCompile(`^@@ -(\d+),?(\d*) \+(\d+),?(\d*) @@$`)

// Parse decodes patch text into hunks. Empty input yields no hunks.
func Parse(text string) ([]Hunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var hunks []Hunk
	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			hunk, err := parseHeader(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, i+1, err)
			}
			hunks = append(hunks, hunk)
			continue
		}

		if len(hunks) == 0 {
			return nil, fmt.Errorf("%w: line %d: body before first header", ErrMalformed, i+1)
		}

		var kind OpKind
		switch line[0] {
		case ' ':
			kind = OpEqual
		case '-':
			kind = OpDelete
		case '+':
			kind = OpInsert
		default:
			return nil, fmt.Errorf("%w: line %d: invalid mode %q", ErrMalformed, i+1, line[0])
		}

		body, err := url.PathUnescape(line[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, i+1, err)
		}

		last := &hunks[len(hunks)-1]
		last.Ops = append(last.Ops, Op{Kind: kind, Text: body})
	}

	return hunks, nil
}

func parseHeader(line string) (Hunk, error) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, fmt.Errorf("invalid header %q", line)
	}

	var h Hunk
	var err error
	if h.Start1, h.Length1, err = parseRange(m[1], m[2]); err != nil {
		return Hunk{}, err
	}
	if h.Start2, h.Length2, err = parseRange(m[3], m[4]); err != nil {
		return Hunk{}, err
	}
	return h, nil
}

// parseRange converts a header "start,length" pair to a zero-based start.
// A missing length means 1; a zero length keeps the start as written.
func parseRange(start, length string) (int, int, error) {
	s, err := strconv.Atoi(start)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start %q", start)
	}

	switch length {
	case "":
		return s - 1, 1, nil
	case "0":
		return s, 0, nil
	}

	n, err := strconv.Atoi(length)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid length %q", length)
	}
	return s - 1, n, nil
}
