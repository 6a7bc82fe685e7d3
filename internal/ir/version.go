package ir

// Version constants for the document schema and engine.
const (
	// SchemaVersion is the interaction document schema version understood here.
	SchemaVersion = "2"

	// EngineVersion is the engine version recorded with every run.
	EngineVersion = "0.1.0"
)
