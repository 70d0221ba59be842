package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/ir"
)

func TestStream_DeterministicTimes(t *testing.T) {
	msgs := NewStream().
		Log("A", "CTX", "one").
		Every(250).
		Log("B", "CTX", "two").
		Log("C", "CTX", "three").
		Messages()

	require.Len(t, msgs, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{msgs[0].Index, msgs[1].Index, msgs[2].Index})
	assert.Equal(t, []int64{1000, 1100, 1350},
		[]int64{msgs[0].ReceptionTimeMs, msgs[1].ReceptionTimeMs, msgs[2].ReceptionTimeMs})
	assert.Equal(t, int64(11000), msgs[1].TimeStamp)
	assert.Equal(t, "ECU1", msgs[0].Ecu)
	assert.Equal(t, ir.MstpLog, msgs[0].Mstp)
	assert.Equal(t, LevelInfo, msgs[0].Mtin)
}

func TestStream_Overrides(t *testing.T) {
	msgs := NewStream().
		At(5000).
		ECU("GW").
		Lifecycle("lc-2").
		Level("SYS", "MON", LevelError, "oops").
		Add(ir.Message{Apid: "X", TimeStamp: 42}).
		Messages()

	require.Len(t, msgs, 2)
	assert.Equal(t, int64(5000), msgs[0].ReceptionTimeMs)
	assert.Equal(t, "GW", msgs[0].Ecu)
	assert.Equal(t, "lc-2", msgs[1].Lifecycle)
	assert.Equal(t, LevelError, msgs[0].Mtin)
	assert.Equal(t, int64(42), msgs[1].TimeStamp)
}

func TestStream_MessagesIsCopy(t *testing.T) {
	s := NewStream().Log("A", "CTX", "a")
	msgs := s.Messages()
	msgs[0].Apid = "changed"

	assert.Equal(t, "A", s.Messages()[0].Apid)
}

func TestApidSequence(t *testing.T) {
	spec := ApidSequence("seq", "1", "2")

	require.Len(t, spec.Steps, 2)
	assert.Equal(t, "2", spec.Steps[1].Filter.Apid)
	assert.Len(t, Apids("1", "2", "1"), 3)
}
