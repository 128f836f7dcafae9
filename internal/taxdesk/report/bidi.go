package report

import (
	"golang.org/x/text/unicode/bidi"
)

// paragraphLevel is the embedding level of every report cell: right to left.
const paragraphLevel = 1

// mirrored maps the paired punctuation the report can contain to its
// counterpart, for glyphs placed at right-to-left levels.
var mirrored = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	'«': '»', '»': '«',
}

// Visual reorders a logical-order string for a renderer that lays glyphs out
// strictly left to right. Levels are resolved per rune from the Unicode
// bidirectional classes of an RTL paragraph (weak, neutral and implicit
// rules); explicit embeddings and isolates are treated as neutrals. Runs are
// then reversed from the highest level down, so embedded Latin words and
// numbers keep their reading order. Digits after Arabic letters are Arabic
// numbers: a slash joins them, a hyphen does not, so 2026-10-25 in Arabic
// text is laid out as 25-10-2026 and reads year first from the right.
func Visual(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	levels := resolveLevels(runes)
	for i, r := range runes {
		if levels[i]%2 == 1 {
			if m, ok := mirrored[r]; ok {
				runes[i] = m
			}
		}
	}
	reorder(runes, levels)
	return string(runes)
}

func classesOf(runes []rune) []bidi.Class {
	out := make([]bidi.Class, len(runes))
	for i, r := range runes {
		p, _ := bidi.LookupRune(r)
		switch c := p.Class(); c {
		case bidi.L, bidi.R, bidi.AL, bidi.EN, bidi.ES, bidi.ET, bidi.AN,
			bidi.CS, bidi.NSM, bidi.B, bidi.S, bidi.WS, bidi.ON:
			out[i] = c
		default:
			out[i] = bidi.ON
		}
	}
	return out
}

func isNeutral(c bidi.Class) bool {
	return c == bidi.B || c == bidi.S || c == bidi.WS || c == bidi.ON
}

// strongDirection is the direction a resolved type counts as for the neutral rules.
func strongDirection(c bidi.Class) bidi.Class {
	if c == bidi.L {
		return bidi.L
	}
	return bidi.R
}

func resolveLevels(runes []rune) []int {
	original := classesOf(runes)
	n := len(original)
	t := make([]bidi.Class, n)
	copy(t, original)

	// W1: non-spacing marks take the type of the preceding character.
	prev := bidi.R
	for i := range t {
		if t[i] == bidi.NSM {
			t[i] = prev
		}
		prev = t[i]
	}

	// W2, W3: European numbers after Arabic letters become Arabic numbers.
	last := bidi.R
	for i := range t {
		switch t[i] {
		case bidi.L, bidi.R, bidi.AL:
			last = t[i]
		case bidi.EN:
			if last == bidi.AL {
				t[i] = bidi.AN
			}
		}
	}
	for i := range t {
		if t[i] == bidi.AL {
			t[i] = bidi.R
		}
	}

	// W4: a single separator between two numbers of the same kind joins them.
	for i := 1; i < n-1; i++ {
		before, after := t[i-1], t[i+1]
		switch {
		case t[i] == bidi.ES && before == bidi.EN && after == bidi.EN:
			t[i] = bidi.EN
		case t[i] == bidi.CS && before == after && (before == bidi.EN || before == bidi.AN):
			t[i] = before
		}
	}

	// W5: terminators next to European numbers are part of them.
	for i := 0; i < n; {
		if t[i] != bidi.ET {
			i++
			continue
		}
		j := i
		for j < n && t[j] == bidi.ET {
			j++
		}
		if (i > 0 && t[i-1] == bidi.EN) || (j < n && t[j] == bidi.EN) {
			for k := i; k < j; k++ {
				t[k] = bidi.EN
			}
		}
		i = j
	}

	// W6: remaining separators and terminators are neutral.
	for i := range t {
		if t[i] == bidi.ES || t[i] == bidi.ET || t[i] == bidi.CS {
			t[i] = bidi.ON
		}
	}

	// W7: European numbers in a left-to-right context are left to right.
	last = bidi.R
	for i := range t {
		switch t[i] {
		case bidi.L, bidi.R:
			last = t[i]
		case bidi.EN:
			if last == bidi.L {
				t[i] = bidi.L
			}
		}
	}

	// N1, N2: neutrals between same-direction text take that direction,
	// otherwise the paragraph direction.
	for i := 0; i < n; {
		if !isNeutral(t[i]) {
			i++
			continue
		}
		j := i
		for j < n && isNeutral(t[j]) {
			j++
		}
		before, after := bidi.R, bidi.R
		if i > 0 {
			before = strongDirection(t[i-1])
		}
		if j < n {
			after = strongDirection(t[j])
		}
		dir := bidi.R
		if before == after {
			dir = before
		}
		for k := i; k < j; k++ {
			t[k] = dir
		}
		i = j
	}

	// I2: at an odd paragraph level, L and numbers go up one level.
	levels := make([]int, n)
	for i, c := range t {
		levels[i] = paragraphLevel
		if c == bidi.L || c == bidi.EN || c == bidi.AN {
			levels[i] = paragraphLevel + 1
		}
	}

	// L1: separators and trailing whitespace return to the paragraph level.
	trailing := true
	for i := n - 1; i >= 0; i-- {
		switch original[i] {
		case bidi.S, bidi.B:
			levels[i] = paragraphLevel
			trailing = true
		case bidi.WS:
			if trailing {
				levels[i] = paragraphLevel
			}
		default:
			trailing = false
		}
	}
	return levels
}

// reorder applies L2: from the highest level down to the lowest odd level,
// every maximal run at that level or above is reversed.
func reorder(runes []rune, levels []int) {
	highest := 0
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}
	for k := highest; k >= paragraphLevel; k-- {
		for i := 0; i < len(runes); {
			if levels[i] < k {
				i++
				continue
			}
			j := i
			for j < len(runes) && levels[j] >= k {
				j++
			}
			reverseRange(runes, levels, i, j)
			i = j
		}
	}
}

func reverseRange(runes []rune, levels []int, i, j int) {
	for a, b := i, j-1; a < b; a, b = a+1, b-1 {
		runes[a], runes[b] = runes[b], runes[a]
		levels[a], levels[b] = levels[b], levels[a]
	}
}
