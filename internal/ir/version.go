package ir

// Versions recorded with every stored run, so results written by an older
// checker can be told apart.
const (
	IRVersion     = "1" // layout of SequenceSpec and SequenceResult
	EngineVersion = "0.1.0"
)
