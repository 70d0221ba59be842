package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "boot.yaml", `
sequences:
  - name: boot
    steps:
      - filter: {apid: "1"}
      - card: "?"
        filter: {apid: "3"}
      - filter: {apid: "2"}
  - name: shutdown
    steps:
      - filter: {payload: "bye"}
`)

	specs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "boot", specs[0].Name)
	assert.Len(t, specs[0].Steps, 3)
	assert.Equal(t, "?", specs[0].Steps[1].Card)
	assert.Equal(t, "shutdown", specs[1].Name)
}

func TestLoadFileJSONSingleSequence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.json", `{
  "name": "single",
  "steps": [{"filter": {"apid": "A"}}, {"par": [{"filter": {"apid": "B"}}, {"filter": {"apid": "C"}}]}],
  "failures": {"reset": {"payload": "watchdog"}}
}`)

	specs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "single", specs[0].Name)
	assert.Len(t, specs[0].Steps[1].Par, 2)
	reset, ok := specs[0].Failures.Lookup("reset")
	require.True(t, ok)
	assert.Equal(t, "watchdog", reset.Payload)
}

func TestLoadFileKeepsFailureOrder(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "order.yaml", `
name: order
steps:
  - filter: { apid: A }
failures:
  reset: { payload: reset }
  crash: { payload: crash }
  abort: { payload: abort }
`)
	cuePath := writeFile(t, dir, "order.cue", `
name: "order"
steps: [{filter: {apid: "A"}}]
failures: {
	reset: {payload: "reset"}
	crash: {payload: "crash"}
	abort: {payload: "abort"}
}
`)

	for _, path := range []string{yamlPath, cuePath} {
		specs, err := LoadFile(path)
		require.NoError(t, err, path)
		require.Len(t, specs, 1)
		assert.Equal(t, []string{"reset", "crash", "abort"}, specs[0].Failures.Names(), path)
	}
}

func TestLoadFileNoSequence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.json", `{"hello": "world"}`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a sequence nor a sequences list")
}

func TestLoadFileCUESyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.cue", `sequences: [ {name: "x", steps: [}`)

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadPathDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", `sequences: [{name: "from-cue", steps: [{filter: {apid: "X"}}]}]`)
	writeFile(t, dir, "b.yaml", "name: from-yaml\nsteps:\n  - filter: {apid: Y}\n")
	writeFile(t, dir, "notes.txt", "ignored")

	specs, err := LoadPath(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "from-cue", specs[0].Name)
	assert.Equal(t, "from-yaml", specs[1].Name)
}

func TestLoadPathMissing(t *testing.T) {
	_, err := LoadPath(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFindSpecFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.yml", "")
	writeFile(t, dir, "a.json", "")
	writeFile(t, dir, "m.go", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.cue"), 0755))

	files, err := FindSpecFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "z.yml")}, files)
}
