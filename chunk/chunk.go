// Package chunk splits long hex payloads into bounded segments so that each
// generated string literal stays under a target compiler's line ceiling.
package chunk

import "fmt"

const (
	// DefaultSize is the segment length used by generated test sources.
	DefaultSize = 1000

	// MaxLiteral is the line length at which SourcePawn's compiler fails.
	// A segment's whole emitted line, indentation and quotes included, must
	// stay strictly below it.
	MaxLiteral = 4096
)

// Split returns the ordered segments of s, each at most n bytes long. The
// segments are contiguous and their concatenation is s. An empty s yields a
// single empty segment, so a literal concatenation always has one operand.
//
// Split panics if n is not positive.
func Split(s string, n int) []string {
	if n <= 0 {
		panic(fmt.Sprintf("chunk: invalid segment size %d", n))
	}
	if s == "" {
		return []string{""}
	}
	out := make([]string, 0, Count(len(s), n))
	for start := 0; start < len(s); start += n {
		end := start + n
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[start:end])
	}
	return out
}

// Count reports how many segments Split produces for a string of length
// size. It is ceil(size/n), with a minimum of one.
func Count(size, n int) int {
	if size <= 0 {
		return 1
	}
	return (size + n - 1) / n
}
