// Package manifest records what a generation run produced, as RFC 8785
// canonical JSON followed by a single LF.
//
// The manifest lists every emitted unit with its expected digest, so a CI job
// can diff two runs, or check a committed test source against its vectors,
// without reparsing generated code. Canonical form makes identical runs
// produce byte-identical manifests.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/lattice-substrate/rsp-testgen/atomicfile"
	"github.com/lattice-substrate/rsp-testgen/emit"
	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

// SchemaVersion identifies the manifest layout.
const SchemaVersion = "rsp-testgen.manifest.v1"

// Manifest is the machine-consumed record of one run.
type Manifest struct {
	SchemaVersion string `json:"schema_version"`
	Input         string `json:"input"`
	InputSHA256   string `json:"input_sha256"`
	Output        string `json:"output"`
	OutputSHA256  string `json:"output_sha256"`
	Dialect       string `json:"dialect"`
	MaxLenBits    int    `json:"max_len_bits"`
	BufferSize    int    `json:"buffer_size"`
	UnitCount     int    `json:"unit_count"`
	Units         []Unit `json:"units"`
}

// Unit is one emitted test unit.
type Unit struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	LenBits  int    `json:"len_bits"`
	Digest   string `json:"digest"`
	Segments int    `json:"segments"`
	Line     int    `json:"line"`
}

// Source identifies the files of a run. The hashes are lowercase hex.
type Source struct {
	Input        string
	InputSHA256  string
	Output       string
	OutputSHA256 string
}

// New builds a manifest from an emitter summary.
func New(sum *emit.Summary, src Source) *Manifest {
	m := &Manifest{
		SchemaVersion: SchemaVersion,
		Input:         src.Input,
		InputSHA256:   src.InputSHA256,
		Output:        src.Output,
		OutputSHA256:  src.OutputSHA256,
		Dialect:       sum.Dialect,
		MaxLenBits:    sum.MaxLenBits,
		BufferSize:    sum.BufferSize,
		UnitCount:     len(sum.Units),
		Units:         make([]Unit, 0, len(sum.Units)),
	}
	for _, u := range sum.Units {
		m.Units = append(m.Units, Unit{
			Index:    u.Index,
			Name:     u.Name,
			LenBits:  u.LenBits,
			Digest:   u.Digest,
			Segments: u.Segments,
			Line:     u.Line,
		})
	}
	return m
}

// Marshal returns the canonical bytes of m with a trailing LF.
func Marshal(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, rsperr.New(rsperr.InternalError, -1, "manifest is nil")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, rsperr.Wrap(rsperr.InternalError, -1, "marshal manifest", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, rsperr.Wrap(rsperr.InternalError, -1, "canonicalize manifest", err)
	}
	return append(canonical, '\n'), nil
}

// Write atomically writes the canonical manifest to path.
func Write(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data); err != nil {
		return rsperr.Wrap(rsperr.OutputIO, -1, "write manifest", err)
	}
	return nil
}

// Verify checks that data is a canonical manifest: one canonical JSON body,
// exactly one trailing LF, and a known schema version.
func Verify(data []byte) (*Manifest, error) {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return nil, rsperr.New(rsperr.InputIO, -1, "manifest: missing trailing LF")
	}
	body := data[:len(data)-1]
	if len(body) == 0 || body[len(body)-1] == '\n' {
		return nil, rsperr.New(rsperr.InputIO, -1, "manifest: empty body or multiple trailing LFs")
	}

	canonical, err := jsoncanonicalizer.Transform(body)
	if err != nil {
		return nil, rsperr.Wrap(rsperr.InputIO, -1, "manifest: invalid json", err)
	}
	if !bytes.Equal(canonical, body) {
		return nil, rsperr.New(rsperr.InputIO, -1, "manifest: not canonical")
	}

	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, rsperr.Wrap(rsperr.InputIO, -1, "manifest: decode", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, rsperr.New(rsperr.InputIO, -1, fmt.Sprintf("manifest: unsupported schema_version %q", m.SchemaVersion))
	}
	if m.UnitCount != len(m.Units) {
		return nil, rsperr.New(rsperr.InputIO, -1,
			fmt.Sprintf("manifest: unit_count %d does not match %d units", m.UnitCount, len(m.Units)))
	}
	return &m, nil
}

// Load reads and verifies a manifest file.
//
//nolint:gosec // manifest path is explicit operator input.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rsperr.Wrap(rsperr.InputIO, -1, "read manifest", err)
	}
	return Verify(data)
}
