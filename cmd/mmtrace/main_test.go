package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplayTraces(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	err := app.Run([]string{"mmtrace", "--check", "../../trace/testdata/short1.rep", "../../trace/testdata/realloc.rep"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "short1.rep"))
	require.Contains(t, lines[0], "peak=8144")
	require.True(t, strings.HasPrefix(lines[1], "realloc.rep"))
	require.Contains(t, lines[1], "reallocs=5")
	require.True(t, strings.HasPrefix(lines[2], "2/2 traces passed"))
	require.Empty(t, stderr.String())
}

func TestReplayJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	err := app.Run([]string{"mmtrace", "--json", "--classes", "4", "../../trace/testdata/short1.rep"})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), `"SizeClasses":[0,0,0,1]`)
	require.Contains(t, stdout.String(), `"Type":"FREE"`)
}

func TestReplayVerbose(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	err := app.Run([]string{"mmtrace", "-v", "--mmap", "../../trace/testdata/short1.rep"})
	require.NoError(t, err)
	require.Contains(t, stderr.String(), "Allocator::extend")
}

func TestReplayFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	err := app.Run([]string{"mmtrace", "--max-heap", "8192", "../../trace/testdata/short1.rep"})
	require.Error(t, err)
	require.Contains(t, stdout.String(), "FAILED")
}

func TestReplayNoTraces(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)

	require.Error(t, app.Run([]string{"mmtrace"}))
}
