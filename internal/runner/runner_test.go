package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calm/internal/fault"
	"calm/internal/progress"
)

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) handler(line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return "", nil
}

func TestNewExecRejectsEmptyArgv(t *testing.T) {
	_, err := NewExec(nil)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindConfig))
	assert.Contains(t, err.Error(), "empty arguments for tool step")
}

func TestShellQuotesExtraArgs(t *testing.T) {
	var out collector
	ok, err := NewShell(`printf '%s\n'`).
		Arg("a b", "$HOME", `q"uote`).
		Run(context.Background(), Handlers{OnStdout: out.handler, Expect: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a b", "$HOME", `q"uote`}, out.lines)
}

func TestWaitDrainsBothStreamsWithoutDeadlock(t *testing.T) {
	script := `i=0; while [ $i -lt 5000 ]; do echo "out $i"; echo "err $i" >&2; i=$((i+1)); done`
	var out, errs collector
	ok, err := NewShell(script).Run(context.Background(), Handlers{OnStdout: out.handler, OnStderr: errs.handler})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, out.lines, 5000)
	assert.Len(t, errs.lines, 5000)
	assert.Equal(t, "out 4999", out.lines[4999])
}

func TestHandlerErrorSurfacesAfterExit(t *testing.T) {
	boom := errors.New("boom")
	seen := 0
	h := Handlers{OnStdout: func(string) (string, error) {
		seen++
		return "", boom
	}}
	ok, err := NewShell(`i=0; while [ $i -lt 2000 ]; do echo line; i=$((i+1)); done`).Run(context.Background(), h)
	assert.False(t, ok)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, seen, "handler must not be called after it failed")
}

func TestExpectSuccess(t *testing.T) {
	_, err := NewShell("exit 3").Run(context.Background(), DefaultHandlers())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindExecution))
	assert.Contains(t, err.Error(), "exit status 3")

	ok, err := NewShell("exit 3").Run(context.Background(), Handlers{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecResolvesAgainstSearchPath(t *testing.T) {
	bin := t.TempDir()
	script := filepath.Join(bin, "calm-hello")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"hello $GREETING $1\"\n"), 0o755))

	b, err := NewExec([]string{"calm-hello"})
	require.NoError(t, err)

	var out collector
	ok, err := b.SearchPath(bin).Env("GREETING", "there").Arg("world").
		Run(context.Background(), Handlers{OnStdout: out.handler, Expect: true})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"hello there world"}, out.lines)
	assert.True(t, strings.HasPrefix(b.PathEnv(), bin))
}

func TestExecMissingExecutable(t *testing.T) {
	b, err := NewExec([]string{"calm-definitely-missing"})
	require.NoError(t, err)
	_, err = b.Run(context.Background(), DefaultHandlers())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindIO))
}

func TestStatusLinesReachSink(t *testing.T) {
	ch := make(chan progress.Event, 8)
	ok, err := NewShell("echo '  hi  '; echo; echo there").
		Progress(progress.ChannelSink{Ch: ch}, "demo", "Running echo").
		Run(context.Background(), DefaultHandlers())
	require.NoError(t, err)
	assert.True(t, ok)
	close(ch)

	var msgs []string
	for ev := range ch {
		assert.Equal(t, "demo", ev.Tool)
		msgs = append(msgs, ev.Message)
	}
	assert.Equal(t, []string{"echo: hi", "echo: there"}, msgs)
}

func TestName(t *testing.T) {
	assert.Equal(t, "flake8", NewShell("/usr/bin/flake8 --format x").Name())
	b, _ := NewExec([]string{"./bin/eslint", "-f", "json"})
	assert.Equal(t, "eslint", b.Name())
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CALM_TEST_FROM_ENV", "env")
	vars := map[string]string{"CALM_TOOL_PATH": "/tools/x", "A": "a"}
	cases := map[string]string{
		"$CALM_TOOL_PATH/bin":    "/tools/x/bin",
		"${A}b":                  "ab",
		"$(A)":                   "a",
		"$$A":                    "$A",
		"$CALM_TEST_FROM_ENV":    "env",
		"x${CALM_TEST_MISSING}y": "xy",
		"no vars":                "no vars",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExpandVars(in, MapLookup(vars)), in)
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `"a b"`, ShellQuote("a b"))
	assert.Equal(t, `"\$x \"y\" \\ \`+"`"+`"`, ShellQuote(`$x "y" \ `+"`"))
}
