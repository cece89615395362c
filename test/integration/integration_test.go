//go:build integration

package integration

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/selfprofile/profile"
	"github.com/napolitain/selfprofile/profile/profiletest"
)

const sortedLines = 17

var (
	selfprofileBin string
	sortitemsBin   string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "selfprofile-integration-*")
	if err != nil {
		panic(err)
	}
	selfprofileBin = filepath.Join(dir, "selfprofile")
	sortitemsBin = filepath.Join(dir, "sortitems")

	root, err := findRoot()
	if err != nil {
		panic(err)
	}
	for pkg, out := range map[string]string{
		"./cmd/selfprofile":   selfprofileBin,
		"./example/sortitems": sortitemsBin,
	} {
		if res, err := runIn(root, nil, "go", "build", "-o", out, pkg); err != nil {
			panic(err.Error() + "\n" + res.stderr)
		}
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestIntegration_NoEventsReportsNothing(t *testing.T) {
	out, err := runIn("", nil, selfprofileBin, "--", sortitemsBin)
	require.NoError(t, err, out.stderr)

	lines := splitLines(out.stdout)
	require.Len(t, lines, 1+sortedLines)
	assert.Equal(t, "Sorting...", lines[0])
	assert.Equal(t, `00: { "H", 107, 0.900000 }`, lines[1])
}

func TestIntegration_CyclesOnly(t *testing.T) {
	requireOpenable(t, "PERF_COUNT_HW_CPU_CYCLES")

	out, err := runIn("", []string{"PERF_COUNT_HW_CPU_CYCLES=1"}, selfprofileBin, sortitemsBin)
	require.NoError(t, err, out.stderr)

	lines := splitLines(out.stdout)
	require.Len(t, lines, 1+sortedLines+1)
	assert.Regexp(t, regexp.MustCompile(`^PERF_COUNT_HW_CPU_CYCLES\(0\): \d+$`), lines[len(lines)-1])
}

func TestIntegration_UnopenableEventFailsBeforeWorkload(t *testing.T) {
	name := unopenableEvent(t)

	out, err := runIn("", []string{name + "=1"}, selfprofileBin, sortitemsBin)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected a non-zero exit, got %v", err)
	assert.NotEqual(t, 0, exitErr.ExitCode())
	assert.Empty(t, out.stdout)
	assert.Contains(t, out.stderr, name)
}

func TestIntegration_ExitStatusPassesThrough(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh in PATH")
	}

	out, err := runIn("", nil, selfprofileBin, "-q", "run", sh, "-c", "echo ran; exit 7")
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected a non-zero exit, got %v", err)
	assert.Equal(t, 7, exitErr.ExitCode())
	assert.Equal(t, "ran\n", out.stdout)
}

func TestIntegration_TableFormat(t *testing.T) {
	requireOpenable(t, "PERF_COUNT_HW_CPU_CYCLES", "PERF_COUNT_HW_INSTRUCTIONS")

	out, err := runIn("", []string{
		"PERF_COUNT_HW_CPU_CYCLES=1",
		"PERF_COUNT_HW_INSTRUCTIONS=1",
		"SELFPROFILE_FORMAT=table",
		"NO_COLOR=1",
	}, selfprofileBin, sortitemsBin)
	require.NoError(t, err, out.stderr)
	assert.Contains(t, out.stdout, "Hardware Counters")
	assert.Contains(t, out.stdout, "instructions per cycle")
}

func TestIntegration_HotRun(t *testing.T) {
	if testing.Short() {
		t.Skip("hot run builds a module copy")
	}
	root, err := findRoot()
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(root, "example", "sortitems", "main.go"))
	require.NoError(t, err)

	out, err := runIn(root, []string{"GOFLAGS=-mod=mod"}, selfprofileBin, "hot", "--root", root, "./example/sortitems")
	require.NoError(t, err, out.stderr)

	lines := splitLines(out.stdout)
	require.Len(t, lines, 1+sortedLines)
	assert.Equal(t, "Sorting...", lines[0])

	after, err := os.ReadFile(filepath.Join(root, "example", "sortitems", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "hot must not modify sources")
}

// requireOpenable skips the test unless the kernel lets this process count
// every named event.
func requireOpenable(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := probe(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

// unopenableEvent returns a catalog event the kernel refuses to open here.
func unopenableEvent(t *testing.T) string {
	t.Helper()
	for _, e := range profile.Events() {
		if probe(e.Name) != nil {
			return e.Name
		}
	}
	t.Skip("every counter can be opened on this machine")
	return ""
}

func probe(name string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	g := profile.New(profile.Options{Lookup: profiletest.Env(name), Inherit: true})
	if err := g.Begin(); err != nil {
		return err
	}
	return g.End()
}

type output struct {
	stdout, stderr string
}

func runIn(dir string, env []string, name string, args ...string) (output, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(cleanEnv(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return output{stdout: stdout.String(), stderr: stderr.String()}, err
}

// cleanEnv drops counter selections and selfprofile settings inherited from
// the test environment.
func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PERF_COUNT_") || strings.HasPrefix(kv, "SELFPROFILE_") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func findRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}
