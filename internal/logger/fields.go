package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldBatchID is the batch identifier for the current invocation
	FieldBatchID = "batch_id"

	// FieldTaskID is the remote generation task identifier
	FieldTaskID = "task_id"

	// FieldStub is the deterministic output-name stem for an entry
	FieldStub = "stub"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"
)

// Standard metric fields, used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
