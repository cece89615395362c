package main

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/selfprofile/internal/config"
	"github.com/napolitain/selfprofile/profile"
)

func shell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh in PATH")
	}
	return sh
}

func TestRunBinary_ExitStatus(t *testing.T) {
	sh := shell(t)

	for script, want := range map[string]int{
		"exit 0":        0,
		"exit 3":        3,
		"kill -TERM $$": 143,
		"kill -KILL $$": 137,
		`test "$X" = 1`: 0,
		`test "$X" = 2`: 1,
	} {
		code, err := runBinary(sh, []string{"-c", script}, []string{"X=1"})
		require.NoError(t, err, script)
		assert.Equal(t, want, code, script)
	}
}

func TestRunBinary_StartFailure(t *testing.T) {
	code, err := runBinary("/nonexistent/program", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 127, code)
}

func TestExitStatus(t *testing.T) {
	var err error = exitStatus(5)
	var exit exitStatus
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, exitStatus(5), exit)
	assert.Equal(t, "exit status 5", err.Error())
}

func TestLauncherOptions(t *testing.T) {
	opts := launcherOptions(config.Config{Status: "Measuring...", Quiet: true, Format: profile.FormatTable})
	assert.Equal(t, "Measuring...", opts.Status)
	assert.True(t, opts.Quiet)
	assert.Equal(t, profile.FormatTable, opts.Format)
	assert.True(t, opts.Profile.Inherit)
}

func TestHotEnv(t *testing.T) {
	env := hotEnv(config.Config{Status: "Go!", Format: profile.FormatPlain, Quiet: true, Debug: true})
	assert.Equal(t, []string{
		"SELFPROFILE_STATUS=Go!",
		"SELFPROFILE_FORMAT=plain",
		"SELFPROFILE_QUIET=true",
		"SELFPROFILE_DEBUG=true",
	}, env)
}

func TestEventsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"events", "--names"})
	require.NoError(t, cmd.Execute())

	names := strings.Fields(out.String())
	require.Len(t, names, len(profile.Events()))
	assert.Equal(t, "PERF_COUNT_HW_CPU_CYCLES", names[0])
	assert.Equal(t, "PERF_COUNT_LL_WRITE_MISS", names[len(names)-1])
}

func TestListEvents_MarksSelected(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	lookup := func(name string) (string, bool) {
		return "", name == "PERF_COUNT_HW_CPU_CYCLES" || name == "PERF_COUNT_L1D_READ_MISS"
	}
	require.NoError(t, listEvents(&out, lookup, false))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, len(profile.Events())+1)
	assert.Contains(t, lines[0], "EVENT")

	var marked []string
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "*") {
			marked = append(marked, strings.Fields(line)[1])
		}
	}
	assert.Equal(t, []string{"PERF_COUNT_HW_CPU_CYCLES", "PERF_COUNT_L1D_READ_MISS"}, marked)
	assert.Contains(t, out.String(), "hw-cache")
	assert.Contains(t, out.String(), "0x10000")
}

func TestInstrumentCommand_DryRun(t *testing.T) {
	dir := writeProject(t)

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"instrument", "-n", dir})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestRootCmd_RunFormIsUnambiguous(t *testing.T) {
	root := rootCmd()
	assert.Contains(t, root.Long, `"selfprofile run -- <program>"`)

	cmd, args, err := root.Find([]string{"run", "--", "events"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
	assert.Contains(t, args, "events")
}
