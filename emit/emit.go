// Package emit turns parsed test vectors into test-harness source code.
//
// The generated source has three parts, always in this order: a fixed
// preamble of includes, one self-contained test unit per vector named by its
// index, and a driver routine that declares one shared output buffer and
// calls every unit in index order. The emitter never computes a digest; it
// only emits the call to the hash routine under test and the comparison
// against the expected hex text.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/lattice-substrate/rsp-testgen/chunk"
	"github.com/lattice-substrate/rsp-testgen/rsp"
	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

// Options controls what the emitter writes. Empty fields take the
// dialect's defaults.
type Options struct {
	Dialect      string
	HashFunction string
	UnitPrefix   string
	DriverName   string
	Includes     []string

	// Encoding is the output-encoding argument passed to the hash routine.
	// Only the sourcepawn dialect uses it.
	Encoding string

	// ChunkSize bounds every message literal segment. 0 means
	// chunk.DefaultSize.
	ChunkSize int

	Logger *zap.Logger
}

// MaxChunkSize is the largest segment size whose emitted line, indentation
// and quotes included, stays below chunk.MaxLiteral.
const MaxChunkSize = chunk.MaxLiteral - 1 - segmentOverhead

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate reports the first option that cannot produce compilable output.
// It does not modify o.
func (o Options) Validate() error {
	name := o.Dialect
	if name == "" {
		name = SourcePawn
	}
	d, ok := Lookup(name)
	if !ok {
		return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("unknown dialect %q (known: %v)", name, Dialects()))
	}
	d.Defaults(&o)
	if o.ChunkSize < 0 || o.ChunkSize > MaxChunkSize {
		return rsperr.New(rsperr.ConfigInvalid, -1,
			fmt.Sprintf("chunk size %d out of range (1..%d)", o.ChunkSize, MaxChunkSize))
	}
	for _, f := range []struct{ field, value string }{
		{"hash function", o.HashFunction},
		{"unit prefix", o.UnitPrefix},
		{"driver name", o.DriverName},
		{"encoding", o.Encoding},
	} {
		if f.value != "" && !identRE.MatchString(f.value) {
			return rsperr.New(rsperr.ConfigInvalid, -1, fmt.Sprintf("%s %q is not a valid identifier", f.field, f.value))
		}
	}
	return nil
}

func (o *Options) unitName(index int) string {
	return o.UnitPrefix + strconv.Itoa(index)
}

func (o *Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return chunk.DefaultSize
}

// BufferSize is the driver's shared buffer length, maxLenBits/8 + 1. It
// assumes no hex digest in the corpus is longer than maxLenBits/8
// characters, which holds for the NIST byte-oriented files but is not true
// in general.
func BufferSize(maxLenBits int) int {
	return maxLenBits/8 + 1
}

// Emitter writes generated test sources. It holds no per-run state and may
// be reused for several inputs.
type Emitter struct {
	opts    Options
	dialect Dialect
	log     *zap.Logger
}

// New validates opts and returns an Emitter.
func New(opts Options) (*Emitter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Dialect == "" {
		opts.Dialect = SourcePawn
	}
	d, _ := Lookup(opts.Dialect)
	d.Defaults(&opts)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{opts: opts, dialect: d, log: log}, nil
}

// Dialect returns the dialect the emitter renders.
func (e *Emitter) Dialect() Dialect { return e.dialect }

// UnitName returns the generated routine name for the vector at index.
func (e *Emitter) UnitName(index int) string { return e.opts.unitName(index) }

// WritePreamble writes the include block.
func (e *Emitter) WritePreamble(w io.Writer) error {
	return write(w, e.dialect.AppendPreamble(nil, &e.opts), "preamble")
}

// WriteUnit writes the test unit for v. The message literal is split into
// segments of at most the configured chunk size.
//
// Message and digest are copied into string literals verbatim. They are
// expected to be hex; text containing '"' or '\' yields source that does
// not compile.
func (e *Emitter) WriteUnit(w io.Writer, v rsp.Vector) error {
	u := Unit{
		Name:     e.UnitName(v.Index),
		Segments: chunk.Split(v.Message, e.opts.chunkSize()),
		Digest:   v.Digest,
	}
	return write(w, e.dialect.AppendUnit(nil, &e.opts, u), u.Name)
}

// WriteDriver writes the aggregator that calls units 0..count-1 in order
// with one shared buffer of BufferSize(maxLenBits) characters.
func (e *Emitter) WriteDriver(w io.Writer, count, maxLenBits int) error {
	return write(w, e.dialect.AppendDriver(nil, &e.opts, count, BufferSize(maxLenBits)), e.opts.DriverName)
}

// Emit writes the complete source for an already parsed result.
func (e *Emitter) Emit(w io.Writer, res *rsp.Result) error {
	if err := e.WritePreamble(w); err != nil {
		return err
	}
	for _, v := range res.Vectors {
		if err := e.WriteUnit(w, v); err != nil {
			return err
		}
	}
	return e.WriteDriver(w, len(res.Vectors), res.MaxLenBits)
}

// Summary describes one Generate run.
type Summary struct {
	Dialect    string
	Units      []UnitInfo
	MaxLenBits int
	BufferSize int
}

// UnitInfo records what was emitted for one vector. The message itself is
// not retained.
type UnitInfo struct {
	Index    int
	Name     string
	LenBits  int
	Digest   string
	Segments int
	Line     int
}

// Generate parses r and writes the complete test source to w in a single
// streaming pass: preamble, one unit per vector as it completes, then the
// driver.
func (e *Emitter) Generate(w io.Writer, r io.Reader, popts *rsp.Options) (*Summary, error) {
	bw := bufio.NewWriter(w)
	if err := e.WritePreamble(bw); err != nil {
		return nil, err
	}

	sum := &Summary{Dialect: e.dialect.Name()}
	maxLen, err := rsp.Scan(r, popts, func(v rsp.Vector) error {
		if err := e.WriteUnit(bw, v); err != nil {
			return err
		}
		info := UnitInfo{
			Index:    v.Index,
			Name:     e.UnitName(v.Index),
			LenBits:  v.LenBits,
			Digest:   v.Digest,
			Segments: chunk.Count(len(v.Message), e.opts.chunkSize()),
			Line:     v.Line,
		}
		sum.Units = append(sum.Units, info)
		e.log.Debug("emitted unit",
			zap.String("name", info.Name),
			zap.Int("line", info.Line),
			zap.Int("len_bits", info.LenBits),
			zap.Int("segments", info.Segments))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.MaxLenBits = maxLen
	sum.BufferSize = BufferSize(maxLen)
	if err := e.WriteDriver(bw, len(sum.Units), maxLen); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, rsperr.Wrap(rsperr.OutputIO, -1, "flush output", err)
	}
	return sum, nil
}

func write(w io.Writer, buf []byte, what string) error {
	if _, err := w.Write(buf); err != nil {
		return rsperr.Wrap(rsperr.OutputIO, -1, "write "+what, err)
	}
	return nil
}
