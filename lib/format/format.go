/*package format expands the file name patterns used for initial conditions
that are split across several files, e.g.

   File = ics/snap_010.{%d,0..7}
   File = ics/part{%03d,0..20 - 13}.txt

A pattern is fixed text plus at most one variable written as {verb,sequence}.
"verb" is a printf() verb (e.g. %03d) and "sequence" is a sequence format
giving the values the variable takes on. Patterns without a variable name a
single file.

Sequence formats build up sorted sets of natural numbers from tokens
separated by "+" or "-". Each token is either a number or two numbers
separated by "..":

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

Spaces around "+" and "-" are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxSequenceLength is the largest number of elements a sequence can expand
// to. Anything longer is assumed to be a typo.
const MaxSequenceLength = 1<<20

// ExpandFileFormat returns the file names matched by a pattern, in the order
// of the sequence.
func ExpandFileFormat(pattern string) ([]string, error) {
	start, end, err := variableBounds(pattern)
	if err != nil { return nil, err }
	if start == -1 { return []string{ pattern }, nil }

	v := pattern[start + 1: end - 1]
	comma := strings.Index(v, ",")
	if comma == -1 {
		return nil, fmt.Errorf("The variable '{%s}' in the file pattern " +
			"'%s' has no comma. Variables must be written as " +
			"{verb,sequence}, e.g. {%%03d,0..7}.", v, pattern)
	}

	verb, seqFormat := strings.TrimSpace(v[:comma]), v[comma + 1:]
	if !validVerb(verb) {
		return nil, fmt.Errorf("The variable '{%s}' in the file pattern " +
			"'%s' has the verb '%s', but only integer verbs like %%d or " +
			"%%03d are allowed.", v, pattern, verb)
	}

	seq, err := ExpandSequenceFormat(seqFormat)
	if err != nil {
		return nil, fmt.Errorf("The file pattern '%s' has an invalid " +
			"sequence. %s", pattern, err.Error())
	}

	out := make([]string, len(seq))
	for i := range seq {
		out[i] = pattern[:start] + fmt.Sprintf(verb, seq[i]) + pattern[end:]
	}
	return out, nil
}

// variableBounds returns the index of the '{' that starts the variable in
// pattern and the index just past its '}'. If there is no variable, -1 is
// returned for both.
func variableBounds(pattern string) (start, end int, err error) {
	start, end = -1, -1
	for i := range pattern {
		switch pattern[i] {
		case '{':
			if start != -1 {
				return -1, -1, fmt.Errorf("The file pattern '%s' has more " +
					"than one '{', but only a single variable is allowed.",
					pattern)
			}
			start = i
		case '}':
			if start == -1 || end != -1 {
				return -1, -1, fmt.Errorf("The file pattern '%s' has a '}' " +
					"at index %d that doesn't close a '{'.", pattern, i)
			}
			end = i + 1
		}
	}

	if start != -1 && end == -1 {
		return -1, -1, fmt.Errorf("The file pattern '%s' has a '{' at " +
			"index %d without a matching '}'.", pattern, start)
	}
	return start, end, nil
}

func validVerb(verb string) bool {
	if len(verb) < 2 || verb[0] != '%' || verb[len(verb) - 1] != 'd' {
		return false
	}
	for _, c := range verb[1: len(verb) - 1] {
		if c < '0' || c > '9' { return false }
	}
	return true
}

// ExpandSequenceFormat expands a sequence format into a sorted sequence of
// integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	tok, err := tokeniseSequenceFormat(format)
	if err != nil { return nil, err }
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil { return nil, err }

	set := map[int]bool{ }
	for _, tok := range adds {
		for _, n := range parseSequenceFormatToken(tok) {
			if set[n] {
				return nil, fmt.Errorf("The number %d is added more than " +
					"once.", n)
			}
			set[n] = true
		}
		if len(set) > MaxSequenceLength {
			return nil, fmt.Errorf("The sequence '%s' has more than %d " +
				"elements, which is almost certainly a typo.", format,
				MaxSequenceLength)
		}
	}

	for _, tok := range subs {
		for _, n := range parseSequenceFormatToken(tok) {
			if !set[n] {
				return nil, fmt.Errorf("The number %d is removed more times " +
					"than it was added.", n)
			}
			delete(set, n)
		}
	}

	out := make([]int, 0, len(set))
	for n := range set { out = append(out, n) }
	sort.Ints(out)
	return out, nil
}

// tokeniseSequenceFormat splits a sequence format into numbers, ranges, and
// operators.
func tokeniseSequenceFormat(format string) ([]string, error) {
	spaced := strings.ReplaceAll(format, "+", " + ")
	spaced = strings.ReplaceAll(spaced, "-", " - ")

	tok := strings.Fields(spaced)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The sequence format is empty.")
	}
	return tok, nil
}

// addsSubsSequenceFormat sorts tokens into the ones being added and the ones
// being removed. A leading "+" may be dropped.
func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("The sequence format is empty.")
	}

	adds, subs = []string{ }, []string{ }
	start := 0
	if tok[0] != "+" && tok[0] != "-" {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf("Element number 1, '%s', cannot be " +
				"parsed because %s", tok[0], err.Error())
		}
		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		op := tok[i]
		switch {
		case op != "+" && op != "-":
			return nil, nil, fmt.Errorf("Element number %d, '%s', should " +
				"be a '-' or '+', but isn't.", i + 1, op)
		case i + 1 >= len(tok):
			return nil, nil, fmt.Errorf("The sequence format ends in a " +
				"trailing '%s'.", op)
		}

		if err := isSequenceFormatToken(tok[i + 1]); err != nil {
			return nil, nil, fmt.Errorf("Element number %d, '%s', cannot be " +
				"parsed because %s", i + 2, tok[i + 1], err.Error())
		}

		if op == "+" {
			adds = append(adds, tok[i + 1])
		} else {
			subs = append(subs, tok[i + 1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns an error describing why tok isn't a number
// or range. The message is written to follow "because".
func isSequenceFormatToken(tok string) error {
	bounds := strings.Split(tok, "..")
	if len(bounds) > 2 { return fmt.Errorf("it has more than one '..'.") }

	n := make([]int, len(bounds))
	for i := range bounds {
		var err error
		if n[i], err = strconv.Atoi(bounds[i]); err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[i])
		}
	}

	if len(n) == 2 && n[1] < n[0] {
		return fmt.Errorf("lower bound %d is larger than upper bound %d.",
			n[0], n[1])
	}
	return nil
}

// parseSequenceFormatToken expands a token which has already passed
// isSequenceFormatToken.
func parseSequenceFormatToken(tok string) []int {
	bounds := strings.Split(tok, "..")
	start, _ := strconv.Atoi(bounds[0])
	end := start
	if len(bounds) == 2 { end, _ = strconv.Atoi(bounds[1]) }

	out := make([]int, 0, end - start + 1)
	for n := start; n <= end; n++ { out = append(out, n) }
	return out
}
