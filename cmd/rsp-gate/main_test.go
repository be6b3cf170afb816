package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  []string
	failAt int
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, _ io.Writer, _ io.Writer) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %v", name, args))
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return errors.New("boom")
	}
	return nil
}

func runGate(args ...string) (int, string, string, *fakeRunner) {
	fr := &fakeRunner{}
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut, fr)
	return code, out.String(), errOut.String(), fr
}

func TestRunHelp(t *testing.T) {
	code, out, _, fr := runGate("--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "--quick")
	assert.Empty(t, fr.calls)
}

func TestRunExecutesAllGates(t *testing.T) {
	code, out, errOut, fr := runGate()
	require.Equal(t, 0, code, "stderr=%q", errOut)
	assert.Len(t, fr.calls, len(gateSteps))
	assert.True(t, strings.HasSuffix(out, "all gates passed\n"))
}

func TestRunQuickSkipsSlowSteps(t *testing.T) {
	code, _, _, fr := runGate("--quick")
	require.Equal(t, 0, code)
	assert.Len(t, fr.calls, len(selectSteps(true)))
	for _, c := range fr.calls {
		assert.NotContains(t, c, "-race")
		assert.NotContains(t, c, "-fuzz")
	}
}

func TestRunList(t *testing.T) {
	code, out, _, fr := runGate("--list")
	require.Equal(t, 0, code)
	assert.Empty(t, fr.calls)
	assert.Equal(t, len(gateSteps), strings.Count(out, "\n"))
	assert.Contains(t, out, "conformance: go [test ./conformance -count=1 -v]")
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	fr := &fakeRunner{failAt: 2}
	var out, errOut bytes.Buffer
	code := run(nil, &out, &errOut, fr)
	assert.Equal(t, 1, code)
	assert.Len(t, fr.calls, 2)
	assert.Contains(t, errOut.String(), "gate failed: unit tests: boom")
}

func TestRunVerboseLogsTimings(t *testing.T) {
	fr := &fakeRunner{}
	var out, errOut bytes.Buffer
	code := run([]string{"-v", "--quick"}, &out, &errOut, fr)
	require.Equal(t, 0, code)
	assert.Contains(t, errOut.String(), "step finished")
}

func TestRunUnknownArgument(t *testing.T) {
	code, _, errOut, fr := runGate("--nope")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "error:")
	assert.Empty(t, fr.calls)
}

func TestRunRejectsPositionalArgs(t *testing.T) {
	code, _, _, fr := runGate("extra")
	assert.Equal(t, 2, code)
	assert.Empty(t, fr.calls)
}
