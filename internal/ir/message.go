package ir

// Message type values of the DLT header (MSTP).
const (
	MstpLog      = 0
	MstpAppTrace = 1
	MstpNwTrace  = 2
	MstpControl  = 3
)

// Message is one decoded DLT log message as seen by the matcher.
type Message struct {
	// Index is assigned by the caller, strictly increasing from 1; 0 means
	// unset. Diagnostics only.
	Index int64 `json:"index" yaml:"index"`

	// ReceptionTimeMs is the logger's reception time in milliseconds.
	ReceptionTimeMs int64 `json:"reception_time_ms" yaml:"reception_time_ms"`

	// TimeStamp is the device timestamp in 0.1 ms units.
	TimeStamp int64 `json:"timestamp" yaml:"timestamp"`

	Mstp      int    `json:"mstp" yaml:"mstp"`
	Mtin      int    `json:"mtin" yaml:"mtin"`
	Ecu       string `json:"ecu" yaml:"ecu"`
	Apid      string `json:"apid" yaml:"apid"`
	Ctid      string `json:"ctid" yaml:"ctid"`
	Verbose   bool   `json:"verbose" yaml:"verbose"`
	Payload   string `json:"payload" yaml:"payload"`
	Lifecycle string `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
}
