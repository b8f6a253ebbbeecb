package cli

// Test Plan for CLI Commands:
// - closure prints the reduced types of a method in text, JSON and YAML
// - closure accepts Type#method and rejects a method given twice
// - closure of an unknown type fails with ErrUnknownTarget and is stored
//   as a failed run
// - closure --batch solves every listed target, reports failures per
//   target and skips comments
// - cycles reports the cycle and the cheapest cut
// - runs lists stored runs, filters by kind and shows a stored result
// - runs without a database configured fails
// - watch needs exactly one of a target or --cycles
// - version prints build information
// - readTargets, parseTargets, checkFormat and formatNumber edge cases
//
// Commands share package-level flag state, so command tests do not run in
// parallel.

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/mvp-joe/depsolver/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var sampleProject = map[string]string{
	"src/main/java/com/shop/util/Text.java": `package com.shop.util;
public final class Text {
    public static String pad(String s, int n) { return s; }
    public static String unused() { return ""; }
}
`,
	"src/main/java/com/app/Alpha.java": `package com.app;
import org.springframework.stereotype.Service;
import org.springframework.beans.factory.annotation.Autowired;
@Service
public class Alpha {
    @Autowired private Beta beta;
}
`,
	"src/main/java/com/app/Beta.java": `package com.app;
import org.springframework.stereotype.Service;
import org.springframework.beans.factory.annotation.Autowired;
@Service
public class Beta {
    @Autowired private Alpha alpha;
}
`,
	".depsolver/config.yml": `base_package: com
storage:
  database: .depsolver/results.db
`,
}

// setupProject writes the sample project and returns its directory.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// resetFlags restores every flag variable to its default.
func resetFlags() {
	cfgFile, verbose, projectDir = "", false, ""
	closureFormat, closureBatch, closureQuiet = formatText, "", false
	cyclesFormat = formatText
	runsKind, runsShow, runsFormat = "", "", formatText
	watchFormat, watchCycles, watchDebounce = formatText, false, watcher.DefaultDebounce
}

// runCLI executes the root command against dir and returns stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := rootCmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func TestClosure_Text(t *testing.T) {
	dir := setupProject(t, sampleProject)

	out, err := runCLI(t, dir, "closure", "com.shop.util.Text", "unused")
	require.NoError(t, err)

	assert.Contains(t, out, "Closure of com.shop.util.Text#unused")
	assert.Contains(t, out, "class com.shop.util.Text")
	assert.Contains(t, out, "method unused()")
	assert.NotContains(t, out, "pad(")
}

func TestClosure_JSON(t *testing.T) {
	dir := setupProject(t, sampleProject)

	out, err := runCLI(t, dir, "closure", "com.shop.util.Text#unused", "--format", "json")
	require.NoError(t, err)

	var rep depsolver.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, []depsolver.Target{{Type: "com.shop.util.Text", Method: "unused"}}, rep.Targets)
	require.Len(t, rep.Nodes, 1)
	assert.Equal(t, "com.shop.util.Text#unused()", rep.Nodes[0].Handle)
	require.Len(t, rep.Stubs, 1)
	assert.Equal(t, []string{"unused()"}, rep.Stubs[0].Methods)
}

func TestClosure_YAML(t *testing.T) {
	dir := setupProject(t, sampleProject)

	out, err := runCLI(t, dir, "closure", "com.shop.util.Text", "pad", "-f", "yaml")
	require.NoError(t, err)

	var rep depsolver.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Nodes, 1)
	assert.Equal(t, "com.shop.util.Text#pad(String,int)", rep.Nodes[0].Handle)
}

func TestClosure_InvalidArguments(t *testing.T) {
	dir := setupProject(t, sampleProject)

	_, err := runCLI(t, dir, "closure", "com.shop.util.Text#pad", "unused")
	assert.ErrorContains(t, err, "method given twice")

	_, err = runCLI(t, dir, "closure")
	assert.ErrorContains(t, err, "requires a target or --batch")

	_, err = runCLI(t, dir, "closure", "com.shop.util.Text", "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestClosure_UnknownTargetStoredAsFailed(t *testing.T) {
	dir := setupProject(t, sampleProject)

	_, err := runCLI(t, dir, "closure", "com.shop.Nope", "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, depsolver.ErrUnknownTarget)

	out, err := runCLI(t, dir, "runs", "--kind", "closure")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "com.shop.Nope#run")
}

func TestClosure_Batch(t *testing.T) {
	dir := setupProject(t, sampleProject)
	batch := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(batch, []byte(`# utility methods
com.shop.util.Text unused

com.shop.util.Text#pad
com.shop.Missing
`), 0644))

	out, err := runCLI(t, dir, "closure", "--batch", batch, "--quiet", "--format", "json")
	assert.EqualError(t, err, "1 of 3 targets failed")

	var entries []batchEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "com.shop.util.Text#unused", entries[0].Target)
	require.NotNil(t, entries[0].Report)
	assert.Len(t, entries[0].Report.Nodes, 1)
	assert.Equal(t, "com.shop.util.Text#pad", entries[1].Target)
	assert.Empty(t, entries[1].Error)
	assert.Equal(t, "com.shop.Missing", entries[2].Target)
	assert.Contains(t, entries[2].Error, "unknown target")
	assert.Nil(t, entries[2].Report)

	_, err = runCLI(t, dir, "closure", "com.shop.util.Text", "--batch", batch)
	assert.ErrorContains(t, err, "cannot be combined")
}

func TestCycles(t *testing.T) {
	dir := setupProject(t, sampleProject)

	out, err := runCLI(t, dir, "cycles", "--format", "json")
	require.NoError(t, err)

	var a cycles.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, []cycles.Cycle{{"com.app.Alpha", "com.app.Beta"}}, a.Cycles)
	require.Len(t, a.Cuts, 1)
	assert.Equal(t, "com.app.Alpha", a.Cuts[0].From)
	assert.Equal(t, "com.app.Beta", a.Cuts[0].To)
	assert.Equal(t, cycles.Field, a.Cuts[0].Kind)
	assert.Equal(t, "beta", a.Cuts[0].Member)
	assert.InDelta(t, 1.5, a.TotalWeight, 1e-9)

	out, err = runCLI(t, dir, "cycles")
	require.NoError(t, err)
	assert.Contains(t, out, "com.app.Alpha -> com.app.Beta -> com.app.Alpha")
	assert.Contains(t, out, "Cut 1 injection point(s), total weight 1.5")
}

func TestCycles_None(t *testing.T) {
	dir := setupProject(t, map[string]string{
		"src/main/java/com/shop/util/Text.java": sampleProject["src/main/java/com/shop/util/Text.java"],
	})

	out, err := runCLI(t, dir, "cycles")
	require.NoError(t, err)
	assert.Contains(t, out, "No injection cycles")
}

func TestRuns_ListAndShow(t *testing.T) {
	dir := setupProject(t, sampleProject)

	_, err := runCLI(t, dir, "closure", "com.shop.util.Text", "unused")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "cycles")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "runs")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[1], "closure")
	assert.Contains(t, lines[1], "com.shop.util.Text#unused")
	assert.Contains(t, lines[2], "cycles")

	out, err = runCLI(t, dir, "runs", "--kind", "cycles")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	out, err = runCLI(t, dir, "runs", "--show", id, "--format", "yaml")
	require.NoError(t, err)
	var a cycles.Analysis
	require.NoError(t, yaml.Unmarshal([]byte(out), &a))
	require.Len(t, a.Cuts, 1)
	assert.Equal(t, "beta", a.Cuts[0].Member)

	_, err = runCLI(t, dir, "runs", "--kind", "bogus")
	assert.ErrorContains(t, err, "unknown run kind")
}

func TestRuns_NoDatabase(t *testing.T) {
	dir := setupProject(t, map[string]string{
		"src/main/java/com/shop/util/Text.java": sampleProject["src/main/java/com/shop/util/Text.java"],
	})

	_, err := runCLI(t, dir, "runs")
	assert.ErrorContains(t, err, "no results database configured")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "depsolver dev")
	assert.Contains(t, out, "Git commit: none")
}

func TestReadTargets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte("# only comments\n\n"), 0644))
	_, err := readTargets(path)
	assert.ErrorContains(t, err, "lists no targets")

	require.NoError(t, os.WriteFile(path, []byte("com.a.A\ncom.a.B#run extra\n"), 0644))
	_, err = readTargets(path)
	assert.ErrorContains(t, err, "targets.txt:2")

	_, err = readTargets(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "failed to open batch file")
}

func TestParseTargets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    depsolver.Target
		wantErr bool
	}{
		{name: "type only", args: []string{"com.a.A"}, want: depsolver.Target{Type: "com.a.A"}},
		{name: "two args", args: []string{"com.a.A", "run"}, want: depsolver.Target{Type: "com.a.A", Method: "run"}},
		{name: "hash form", args: []string{"com.a.A#run"}, want: depsolver.Target{Type: "com.a.A", Method: "run"}},
		{name: "method twice", args: []string{"com.a.A#run", "stop"}, wantErr: true},
		{name: "empty type", args: []string{"#run"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseTargets(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "12,345", formatNumber(12345))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-1,500", formatNumber(-1500))
}

func TestCheckFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []string{formatText, formatJSON, formatYAML} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("csv"))
}

func TestWatch_RequiresTargetOrCycles(t *testing.T) {
	dir := setupProject(t, sampleProject)

	_, err := runCLI(t, dir, "watch")
	assert.ErrorContains(t, err, "requires either a target or --cycles")

	_, err = runCLI(t, dir, "watch", "com.shop.util.Text", "--cycles")
	assert.ErrorContains(t, err, "requires either a target or --cycles")
}
