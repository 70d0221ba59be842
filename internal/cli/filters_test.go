package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewFiltersCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{bootSpec})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Sequence boot: 4 filter(s)")
	assert.Contains(t, output, "  APID:SYS payload contains 'power on'\n")
	assert.Contains(t, output, `  APID:SVC payload matches 'service (?P<service>\w+) up'`)
	assert.Contains(t, output, "  watchdog APID:WDG\n")
	assert.Contains(t, output, "Sequence shutdown: 1 filter(s)")
}

func TestFiltersJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewFiltersCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--sequence", "boot", bootSpec})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string
		Data   []SequenceFilters
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 1)

	filters := resp.Data[0].Filters
	require.Len(t, filters, 4)
	// step filters in declaration order, failures last
	assert.Equal(t, "power on", filters[0].Spec.Payload)
	assert.Equal(t, "SVC", filters[1].Spec.Apid)
	assert.Equal(t, "ready", filters[2].Spec.Payload)
	assert.Equal(t, "watchdog", filters[3].Spec.Name)
	assert.Equal(t, "WDG", filters[3].Spec.Apid)
}

func TestFiltersInvalidSequence(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewFiltersCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{brokenSpec})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
