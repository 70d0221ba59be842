// Package testutil provides builders for deterministic message streams.
package testutil

import (
	"github.com/roach88/seqcheck/internal/ir"
)

// DLT log levels as carried in MTIN for log messages.
const (
	LevelFatal   = 1
	LevelError   = 2
	LevelWarn    = 3
	LevelInfo    = 4
	LevelDebug   = 5
	LevelVerbose = 6
)

// Stream builds an ordered message list with deterministic indexes and
// times. Each message is received StepMs after the previous one; the device
// timestamp mirrors the reception time.
//
//	msgs := testutil.NewStream().
//		Log("SYS", "BOOT", "boot start").
//		Log("SYS", "BOOT", "boot done").
//		Messages()
type Stream struct {
	msgs      []ir.Message
	nowMs     int64
	stepMs    int64
	ecu       string
	lifecycle string
}

// NewStream starts a stream at 1000 ms, 100 ms between messages, ECU "ECU1".
func NewStream() *Stream {
	return &Stream{nowMs: 1000, stepMs: 100, ecu: "ECU1"}
}

// At sets the reception time of the next message.
func (s *Stream) At(ms int64) *Stream {
	s.nowMs = ms
	return s
}

// Every sets the spacing between following messages.
func (s *Stream) Every(ms int64) *Stream {
	s.stepMs = ms
	return s
}

// ECU sets the ECU id of following messages.
func (s *Stream) ECU(ecu string) *Stream {
	s.ecu = ecu
	return s
}

// Lifecycle sets the lifecycle of following messages.
func (s *Stream) Lifecycle(id string) *Stream {
	s.lifecycle = id
	return s
}

// Log appends an info-level verbose log message.
func (s *Stream) Log(apid, ctid, payload string) *Stream {
	return s.Level(apid, ctid, LevelInfo, payload)
}

// Level appends a verbose log message with the given log level.
func (s *Stream) Level(apid, ctid string, level int, payload string) *Stream {
	return s.Add(ir.Message{
		Mstp:    ir.MstpLog,
		Mtin:    level,
		Apid:    apid,
		Ctid:    ctid,
		Verbose: true,
		Payload: payload,
	})
}

// Add appends msg, filling in index, times, ECU and lifecycle when unset.
func (s *Stream) Add(msg ir.Message) *Stream {
	if msg.Index == 0 {
		msg.Index = int64(len(s.msgs) + 1)
	}
	if msg.ReceptionTimeMs == 0 {
		msg.ReceptionTimeMs = s.nowMs
	}
	if msg.TimeStamp == 0 {
		msg.TimeStamp = msg.ReceptionTimeMs * 10
	}
	if msg.Ecu == "" {
		msg.Ecu = s.ecu
	}
	if msg.Lifecycle == "" {
		msg.Lifecycle = s.lifecycle
	}
	s.msgs = append(s.msgs, msg)
	s.nowMs = msg.ReceptionTimeMs + s.stepMs
	return s
}

// Messages returns a copy of the messages built so far.
func (s *Stream) Messages() []ir.Message {
	out := make([]ir.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Apids builds one message per apid, all with context "CTX" and the apid as
// payload. Handy for order-only scenarios.
func Apids(apids ...string) []ir.Message {
	s := NewStream()
	for _, a := range apids {
		s.Log(a, "CTX", a)
	}
	return s.Messages()
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// ApidStep returns a step matching messages of apid.
func ApidStep(apid string) ir.StepSpec {
	return ir.StepSpec{Filter: &ir.FilterSpec{Apid: apid}}
}

// ApidSequence returns a sequence with one exact-once step per apid.
func ApidSequence(name string, apids ...string) ir.SequenceSpec {
	steps := make([]ir.StepSpec, len(apids))
	for i, a := range apids {
		steps[i] = ApidStep(a)
	}
	return ir.SequenceSpec{Name: name, Steps: steps}
}
