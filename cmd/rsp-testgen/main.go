// Command rsp-testgen turns a NIST CAVP secure-hash response file into
// generated test-harness source that checks a hash routine against every
// vector in the file.
//
// Usage:
//
//	rsp-testgen [--config FILE] [--dialect sourcepawn|c] [--out FILE|-]
//	            [--manifest FILE] [--verbose] [--pause] <vectors.rsp>
//
// By default the output is written to tests_<stem>.sp in the current
// directory. Any argument count other than one prints usage guidance and
// exits successfully.
//
// Exit codes:
//
//	0  success, or usage guidance printed
//	2  unreadable input, invalid config, or bad flags
//	10 output or internal failure
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lattice-substrate/rsp-testgen/atomicfile"
	"github.com/lattice-substrate/rsp-testgen/config"
	"github.com/lattice-substrate/rsp-testgen/emit"
	"github.com/lattice-substrate/rsp-testgen/logging"
	"github.com/lattice-substrate/rsp-testgen/manifest"
	"github.com/lattice-substrate/rsp-testgen/rsp"
	"github.com/lattice-substrate/rsp-testgen/rsperr"
)

const exitSuccess = 0

const stdoutPath = "-"

const usageBanner = `Pass a .rsp file as the only argument.
One that contains the structure
	Len = ...
	Msg = ...
	MD = ...
Provided by the NIST:
https://csrc.nist.gov/Projects/Cryptographic-Algorithm-Validation-Program/Secure-Hashing
https://csrc.nist.gov/CSRC/media/Projects/Cryptographic-Algorithm-Validation-Program/documents/shs/shabytetestvectors.zip
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type flags struct {
	configPath   string
	dialect      string
	out          string
	manifestPath string
	verbose      bool
	pause        bool
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return writeClassifiedError(stderr, err)
	}
	return exitSuccess
}

func newRootCmd(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	var fl flags
	cmd := &cobra.Command{
		Use:   "rsp-testgen [flags] <vectors.rsp>",
		Short: "Generate hash test harness source from a NIST .rsp vector file",
		Long: `rsp-testgen reads a NIST CAVP secure-hash response file (Len/Msg/MD
triples) and writes test source with one test routine per vector plus a
driver that runs them all in order.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return writef(stdout, "%s", usageBanner)
			}
			return generate(cmd, fl, args[0], stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return rsperr.Wrap(rsperr.CLIUsage, -1, "invalid flags", err)
	})

	f := cmd.Flags()
	f.StringVar(&fl.configPath, "config", "", "YAML generator profile")
	f.StringVar(&fl.dialect, "dialect", "", fmt.Sprintf("target dialect %v (overrides config)", emit.Dialects()))
	f.StringVarP(&fl.out, "out", "o", "", `output file, "-" for stdout (default tests_<stem> in output_dir)`)
	f.StringVar(&fl.manifestPath, "manifest", "", "also write a canonical JSON manifest of the run")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "debug logging to stderr")
	f.BoolVar(&fl.pause, "pause", false, "wait for enter before exiting")
	return cmd
}

func loadConfig(fl flags) (*config.Config, error) {
	var cfg *config.Config
	if fl.configPath != "" {
		c, err := config.Load(fl.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, err
		}
	}
	if fl.dialect != "" {
		cfg.Dialect = fl.dialect
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo,cyclop // the run is a linear sequence of fallible steps.
func generate(cmd *cobra.Command, fl flags, inputPath string, stdout, stderr io.Writer) error {
	log := logging.New(stderr, fl.verbose)
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(fl)
	if err != nil {
		return err
	}
	em, err := emit.New(cfg.EmitOptions(log))
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath) //nolint:gosec // input path is explicit operator input.
	if err != nil {
		return rsperr.Wrap(rsperr.InputIO, -1, fmt.Sprintf("open input %q", inputPath), err)
	}
	defer func() { _ = in.Close() }()
	log.Debug("reading vectors", zap.String("input", inputPath), zap.String("dialect", cfg.Dialect))

	outPath := fl.out
	if outPath == "" {
		outPath = cfg.OutputPath(inputPath)
	}

	var dst io.Writer
	var pending *atomicfile.File
	if outPath == stdoutPath {
		dst = stdout
	} else {
		pending, err = atomicfile.Create(outPath)
		if err != nil {
			return rsperr.Wrap(rsperr.OutputIO, -1, fmt.Sprintf("create output %q", outPath), err)
		}
		defer pending.Abort()
		dst = pending
	}

	popts := cfg.ParseOptions()
	popts.OnDrop = func(line int, reason rsp.DropReason) {
		log.Debug("dropped incomplete vector", zap.Int("line", line), zap.String("reason", string(reason)))
	}

	inHash, outHash := sha256.New(), sha256.New()
	sum, err := em.Generate(io.MultiWriter(dst, outHash), io.TeeReader(in, inHash), popts)
	if err != nil {
		return err
	}
	if pending != nil {
		if err := pending.Commit(); err != nil {
			return rsperr.Wrap(rsperr.OutputIO, -1, fmt.Sprintf("commit output %q", outPath), err)
		}
	}
	log.Info("generated tests",
		zap.String("output", outPath),
		zap.Int("units", len(sum.Units)),
		zap.Int("max_len_bits", sum.MaxLenBits))

	if fl.manifestPath != "" {
		m := manifest.New(sum, manifest.Source{
			Input:        inputPath,
			InputSHA256:  hexSum(inHash),
			Output:       outPath,
			OutputSHA256: hexSum(outHash),
		})
		if err := manifest.Write(fl.manifestPath, m); err != nil {
			return err
		}
		log.Debug("wrote manifest", zap.String("path", fl.manifestPath))
	}

	report := stdout
	if outPath == stdoutPath {
		report = stderr
	}
	if err := writeSummary(report, sum.MaxLenBits, outPath); err != nil {
		return err
	}

	if fl.pause {
		return pauseForEnter(cmd.InOrStdin(), report)
	}
	return nil
}

func writeSummary(w io.Writer, maxLenBits int, outPath string) error {
	if err := writef(w, "Maxlen = %d bits\n", maxLenBits); err != nil {
		return err
	}
	if outPath == stdoutPath {
		return writeLine(w, "Wrote tests to standard output")
	}
	return writef(w, "Wrote tests to file %s\n", outPath)
}

func pauseForEnter(stdin io.Reader, w io.Writer) error {
	if err := writeLine(w, "Press enter to close."); err != nil {
		return err
	}
	if _, err := bufio.NewReader(stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return rsperr.Wrap(rsperr.InputIO, -1, "read stdin", err)
	}
	return nil
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// writeClassifiedError reports err on stderr and returns the exit code of
// its failure class. Unclassified errors are internal.
func writeClassifiedError(stderr io.Writer, err error) int {
	class := rsperr.InternalError
	var re *rsperr.Error
	if errors.As(err, &re) {
		class = re.Class
	}
	if werr := writef(stderr, "error: %v\n", err); werr != nil {
		return rsperr.InternalError.ExitCode()
	}
	return class.ExitCode()
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return rsperr.Wrap(rsperr.OutputIO, -1, "write stream", err)
	}
	return nil
}
