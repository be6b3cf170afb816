// Package rsp parses NIST CAVP secure-hash response files (.rsp) into test
// vectors.
//
// A response file is line oriented. Three record shapes carry data:
//
//	Len = 32
//	Msg = c2ff5c81
//	MD = 3e8f6d0aa4ff6b6b4ffa6e2e73c0d1b5d1e6e1ae77b35b5c1a2c1b7fe04a5a59
//
// Comment lines ("#") are inert. Every other line, blank lines and section
// headers ("[L = 32]") included, completes the pending message/digest pair.
// A pair is turned into a Vector only if both halves are present; otherwise
// it is dropped without error. End of input does not complete a pair.
package rsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

// DefaultMaxLineSize bounds a single input line (16 MiB). Long-message
// files carry Msg lines of well over 100 KB.
const DefaultMaxLineSize = 16 * 1024 * 1024

const initialBufferSize = 64 * 1024

// Vector is one validated (length, message, digest) triple.
type Vector struct {
	// Index is 0-based and assigned in completion order.
	Index int

	// LenBits is the most recent valid length record seen before the
	// vector completed. Length and message are not bound atomically by
	// the file format; the parser trusts record order.
	LenBits int

	Message string
	Digest  string

	// Line is the 1-based input line that completed the vector.
	Line int
}

// DropReason says why a pending pair did not become a Vector.
type DropReason string

const (
	DropMissingMessage DropReason = "missing message"
	DropMissingDigest  DropReason = "missing digest"
	DropNoTrigger      DropReason = "no completion line before end of input"
)

// Options controls parser behavior.
type Options struct {
	// MaxLineSize is the longest accepted line in bytes. 0 means
	// DefaultMaxLineSize.
	MaxLineSize int

	// InertSections makes "[...]" lines ignored like comments instead of
	// completing the pending pair.
	InertSections bool

	// OnDrop, if set, is called for every pending pair that is discarded.
	// line is the 1-based line where the decision was made.
	OnDrop func(line int, reason DropReason)
}

func (o *Options) maxLineSize() int {
	if o != nil && o.MaxLineSize > 0 {
		return o.MaxLineSize
	}
	return DefaultMaxLineSize
}

// Parser is the per-pass state machine. The zero value is not usable; call
// NewParser. A Parser must not be shared between goroutines.
type Parser struct {
	inertSections bool
	onDrop        func(int, DropReason)

	line        int
	count       int
	maxLenBits  int
	lastLenBits int

	pendingMessage string
	pendingDigest  string
}

// NewParser returns a Parser ready to receive the first line.
func NewParser(opts *Options) *Parser {
	p := &Parser{}
	if opts != nil {
		p.inertSections = opts.InertSections
		p.onDrop = opts.OnDrop
	}
	return p
}

// Feed advances the state machine by one line. It returns the vector that
// this line completed, if any.
func (p *Parser) Feed(line string) (Vector, bool) {
	p.line++
	rec := Classify(line)
	switch rec.Kind {
	case KindComment:
		return Vector{}, false
	case KindSection:
		if p.inertSections {
			return Vector{}, false
		}
		return p.complete()
	case KindLength:
		if rec.Valid {
			p.lastLenBits = rec.Bits
			if rec.Bits > p.maxLenBits {
				p.maxLenBits = rec.Bits
			}
		}
		return Vector{}, false
	case KindMessage:
		p.pendingMessage = rec.Value
		return Vector{}, false
	case KindDigest:
		p.pendingDigest = rec.Value
		return Vector{}, false
	default:
		return p.complete()
	}
}

func (p *Parser) complete() (Vector, bool) {
	msg, md := p.pendingMessage, p.pendingDigest
	p.pendingMessage, p.pendingDigest = "", ""

	switch {
	case msg == "" && md == "":
		return Vector{}, false
	case msg == "":
		p.drop(DropMissingMessage)
		return Vector{}, false
	case md == "":
		p.drop(DropMissingDigest)
		return Vector{}, false
	}

	v := Vector{
		Index:   p.count,
		LenBits: p.lastLenBits,
		Message: msg,
		Digest:  md,
		Line:    p.line,
	}
	p.count++
	return v, true
}

// Close reports a trailing pair that never saw a completion line. The pair
// is discarded either way; Close only notifies OnDrop.
func (p *Parser) Close() {
	if p.pendingMessage != "" || p.pendingDigest != "" {
		p.drop(DropNoTrigger)
	}
	p.pendingMessage, p.pendingDigest = "", ""
}

func (p *Parser) drop(reason DropReason) {
	if p.onDrop != nil {
		p.onDrop(p.line, reason)
	}
}

// MaxLenBits is the largest valid length record seen so far, including
// lengths of triples that were dropped.
func (p *Parser) MaxLenBits() int { return p.maxLenBits }

// Count is the number of vectors emitted so far.
func (p *Parser) Count() int { return p.count }

// Lines is the number of lines fed so far.
func (p *Parser) Lines() int { return p.line }

// Result is the outcome of a full parse.
type Result struct {
	Vectors    []Vector
	MaxLenBits int
}

// Parse runs a fresh parser over lines. It cannot fail.
//
// Each element is one input line without its terminator. Splitting text
// with strings.Split(text, "\n") leaves an empty element after a final
// newline, and Parse treats that element as a blank completion line, which
// ParseReader never sees. Trim one trailing newline before splitting to get
// the same result as ParseReader.
func Parse(lines []string) *Result {
	return ParseWithOptions(lines, nil)
}

// ParseWithOptions is like Parse but accepts configuration options.
// MaxLineSize is not enforced on in-memory lines.
func ParseWithOptions(lines []string, opts *Options) *Result {
	p := NewParser(opts)
	res := &Result{}
	for _, line := range lines {
		if v, ok := p.Feed(line); ok {
			res.Vectors = append(res.Vectors, v)
		}
	}
	p.Close()
	res.MaxLenBits = p.MaxLenBits()
	return res
}

// ParseReader reads r to the end and collects every vector.
func ParseReader(r io.Reader, opts *Options) (*Result, error) {
	res := &Result{}
	maxLen, err := Scan(r, opts, func(v Vector) error {
		res.Vectors = append(res.Vectors, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.MaxLenBits = maxLen
	return res, nil
}

// Scan streams vectors from r to fn in index order without retaining them.
// It returns the maximum length seen across the whole input. An error from
// fn stops the scan and is returned unchanged.
func Scan(r io.Reader, opts *Options, fn func(Vector) error) (int, error) {
	p := NewParser(opts)
	maxLine := opts.maxLineSize()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(initialBufferSize, maxLine)), maxLine)
	for sc.Scan() {
		v, ok := p.Feed(sc.Text())
		if !ok {
			continue
		}
		if err := fn(v); err != nil {
			return p.MaxLenBits(), err
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return p.MaxLenBits(), rsperr.Wrap(rsperr.BoundExceeded, p.Lines()+1,
				fmt.Sprintf("line exceeds maximum size %d bytes", maxLine), err)
		}
		return p.MaxLenBits(), rsperr.Wrap(rsperr.InputIO, p.Lines()+1, "read input", err)
	}
	p.Close()
	return p.MaxLenBits(), nil
}
