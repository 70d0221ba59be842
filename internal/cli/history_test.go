package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
)

// seedHistory stores the runs of one check and returns the database path
// and the stored run ids.
func seedHistory(t *testing.T, messages string) (string, []string) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")

	out, _ := runCheckCommand(t, &RootOptions{Format: "json", DB: db}, "--save", bootSpec, messages)
	var resp checkResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.RunIDs, 2)
	return db, resp.Data.RunIDs
}

func runHistoryCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryListText(t *testing.T) {
	db, ids := seedHistory(t, bootOKMessages)

	out, err := runHistoryCommand(t, &RootOptions{Format: "text", DB: db})
	require.NoError(t, err)

	assert.Contains(t, out, ids[0]+"  boot  "+bootOKMessages+", 4 message(s)")
	assert.Contains(t, out, ids[1]+"  shutdown  ")
	assert.Contains(t, out, "2 run(s): ✓ ok 1")
}

func TestHistoryListJSON(t *testing.T) {
	db, ids := seedHistory(t, watchdogMessages)

	out, err := runHistoryCommand(t, &RootOptions{Format: "json", DB: db})
	require.NoError(t, err)

	var resp struct {
		Status string
		Data   HistoryResult
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, ids[0], resp.Data.Runs[0].ID)
	assert.Equal(t, 1, resp.Data.Runs[0].Counts[ir.StatusError])
	assert.NotEmpty(t, resp.Data.Runs[0].SpecHash)
	assert.Equal(t, 1, resp.Data.Totals[ir.StatusError])
	assert.Equal(t, 1, resp.Data.Totals[ir.StatusOK])
}

func TestHistoryFilterSequence(t *testing.T) {
	db, ids := seedHistory(t, watchdogMessages)

	out, err := runHistoryCommand(t, &RootOptions{Format: "json", DB: db}, "--sequence", "shutdown")
	require.NoError(t, err)

	var resp struct{ Data HistoryResult }
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, ids[1], resp.Data.Runs[0].ID)
	assert.Equal(t, 0, resp.Data.Totals[ir.StatusError])
}

func TestHistoryEmpty(t *testing.T) {
	db, _ := seedHistory(t, bootOKMessages)

	out, err := runHistoryCommand(t, &RootOptions{Format: "text", DB: db}, "--sequence", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs stored.")
}

func TestHistoryShowRun(t *testing.T) {
	db, ids := seedHistory(t, watchdogMessages)

	t.Run("text", func(t *testing.T) {
		out, err := runHistoryCommand(t, &RootOptions{Format: "text", DB: db}, "--run", ids[0])
		require.NoError(t, err)
		assert.Contains(t, out, "boot: 1 occurrence(s)")
		assert.Contains(t, out, "- watchdog")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runHistoryCommand(t, &RootOptions{Format: "json", DB: db}, "--run", ids[0])
		require.NoError(t, err)

		var resp struct{ Data ir.SequenceResult }
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "boot", resp.Data.Sequence)
		require.Len(t, resp.Data.Occurrences, 1)
		assert.Equal(t, []string{"watchdog"}, resp.Data.Occurrences[0].Failures)
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := runHistoryCommand(t, &RootOptions{Format: "markdown", DB: db}, "--run", ids[1])
		require.NoError(t, err)
		assert.Contains(t, out, "# Sequence shutdown")
	})
}

func TestHistoryUnknownRun(t *testing.T) {
	db, _ := seedHistory(t, bootOKMessages)

	out, err := runHistoryCommand(t, &RootOptions{Format: "text", DB: db}, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "run not found: missing")
}

func TestHistoryMissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "absent.db")

	out, err := runHistoryCommand(t, &RootOptions{Format: "text", DB: db})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}
