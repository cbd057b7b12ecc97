package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph validation errors. These are user facing and block compilation.
const (
	// ErrCodeUnconnectedPort indicates an input/output port without any edge.
	ErrCodeUnconnectedPort ErrorCode = "UNCONNECTED_PORT"
	// ErrCodeMissingEndNode indicates the document has no End node.
	ErrCodeMissingEndNode ErrorCode = "MISSING_END_NODE"
	// ErrCodeNoProgramNode indicates the document has no program node.
	ErrCodeNoProgramNode ErrorCode = "NO_PROGRAM_NODE"
	// ErrCodeUnsavedNodeDetail indicates a program node whose configuration was never saved.
	ErrCodeUnsavedNodeDetail ErrorCode = "UNSAVED_NODE_DETAIL"
)

// Document contract errors. Compilation aborts without a workflow.
const (
	// ErrCodeInvalidDocument indicates the document could not be decoded.
	ErrCodeInvalidDocument ErrorCode = "INVALID_DOCUMENT"
	// ErrCodeDuplicateNode indicates two cells share a node id.
	ErrCodeDuplicateNode ErrorCode = "DUPLICATE_NODE"
	// ErrCodeUnknownNode indicates an edge endpoint that is not a node of the document.
	ErrCodeUnknownNode ErrorCode = "UNKNOWN_NODE"
	// ErrCodeUnknownPort indicates an edge endpoint port that the node does not declare.
	ErrCodeUnknownPort ErrorCode = "UNKNOWN_PORT"
	// ErrCodeUnknownKind indicates a node type outside the supported set.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"
	// ErrCodeAmbiguousEntry indicates no single entry node could be determined.
	ErrCodeAmbiguousEntry ErrorCode = "AMBIGUOUS_ENTRY"
	// ErrCodeCycleDetected indicates a node reachable from itself.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
	// ErrCodeUnresolvedJoin indicates fork branches that never reconverge (strict mode only).
	ErrCodeUnresolvedJoin ErrorCode = "UNRESOLVED_JOIN"
	// ErrCodeInvalidPayload indicates a program node configuration that fails its schema.
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// Compile anomalies. Reported alongside a workflow, never returned as errors.
const (
	// ErrCodeDeadEnd marks a program node with no successor.
	ErrCodeDeadEnd ErrorCode = "DEAD_END"
	// ErrCodeAmbiguousBranch marks a non-fork node with several successors.
	ErrCodeAmbiguousBranch ErrorCode = "AMBIGUOUS_BRANCH"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the caller sent too many requests.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodePayloadTooLarge indicates a request body above the configured limit.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrCodeOverloaded indicates every compile slot was busy.
	ErrCodeOverloaded ErrorCode = "OVERLOADED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeRateLimited: true,
	ErrCodeOverloaded:  true,
	ErrCodeInternal:    false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var validationCodes = map[ErrorCode]bool{
	ErrCodeUnconnectedPort:   true,
	ErrCodeMissingEndNode:    true,
	ErrCodeNoProgramNode:     true,
	ErrCodeUnsavedNodeDetail: true,
}

// IsValidationCode reports whether code is one of the graph validator's codes.
func IsValidationCode(code ErrorCode) bool {
	return validationCodes[code]
}
