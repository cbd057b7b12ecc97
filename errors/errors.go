package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Detail keys shared by constructors and callers.
const (
	DetailNodeID = "node_id"
	DetailPortID = "port_id"
	DetailNodes  = "nodes"
	DetailField  = "field"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NodeID returns the offending node id recorded on the error, if any.
func (e *AppError) NodeID() string {
	if e == nil || e.Details == nil {
		return ""
	}
	id, _ := e.Details[DetailNodeID].(string)
	return id
}

// PortID returns the offending port id recorded on the error, if any.
func (e *AppError) PortID() string {
	if e == nil || e.Details == nil {
		return ""
	}
	id, _ := e.Details[DetailPortID].(string)
	return id
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Validation constructors ---

// UnconnectedPort reports a node port that carries no edge.
func UnconnectedPort(nodeID, portID string) *AppError {
	return &AppError{
		Code: ErrCodeUnconnectedPort, Message: fmt.Sprintf("Node %q has an unconnected port %q.", nodeID, portID),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{DetailNodeID: nodeID, DetailPortID: portID},
	}
}

// MissingEndNode reports a document without an End node.
func MissingEndNode() *AppError {
	return &AppError{
		Code: ErrCodeMissingEndNode, Message: "The workflow is missing an end node.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NoProgramNode reports a document without any program node.
func NoProgramNode() *AppError {
	return &AppError{
		Code: ErrCodeNoProgramNode, Message: "The workflow needs at least one program node.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// UnsavedNodeDetail reports program nodes whose configuration has not been saved.
// The first id is the primary offender; all ids are listed under "nodes".
func UnsavedNodeDetail(nodeIDs ...string) *AppError {
	e := &AppError{
		Code: ErrCodeUnsavedNodeDetail, Message: "The configuration of the highlighted nodes has not been saved.",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{DetailNodes: nodeIDs},
	}
	if len(nodeIDs) > 0 {
		e.Details[DetailNodeID] = nodeIDs[0]
		if len(nodeIDs) == 1 {
			e.Message = fmt.Sprintf("The configuration of node %q has not been saved.", nodeIDs[0])
		}
	}
	return e
}

// --- Contract constructors ---

// InvalidDocument reports a document that could not be decoded.
func InvalidDocument(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidDocument, Message: fmt.Sprintf("Invalid graph document: %s", reason),
		HTTPStatus: http.StatusBadRequest, Cause: cause,
	}
}

// DuplicateNode reports two cells sharing an id.
func DuplicateNode(nodeID string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateNode, Message: fmt.Sprintf("Node id %q is used more than once.", nodeID),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{DetailNodeID: nodeID},
	}
}

// UnknownNode reports an edge that references a missing node.
func UnknownNode(edgeID, nodeID string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownNode, Message: fmt.Sprintf("Edge %q references unknown node %q.", edgeID, nodeID),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{DetailNodeID: nodeID, "edge_id": edgeID},
	}
}

// UnknownPort reports an edge that references a port its node does not declare.
func UnknownPort(edgeID, nodeID, portID string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownPort, Message: fmt.Sprintf("Edge %q references unknown port %q on node %q.", edgeID, portID, nodeID),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{DetailNodeID: nodeID, DetailPortID: portID, "edge_id": edgeID},
	}
}

// UnknownKind reports a node type outside the supported set.
func UnknownKind(nodeID, kind string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownKind, Message: fmt.Sprintf("Node %q has unsupported type %q.", nodeID, kind),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{DetailNodeID: nodeID, "kind": kind},
	}
}

// AmbiguousEntry reports that no single entry node exists.
func AmbiguousEntry(candidates []string) *AppError {
	msg := "No entry node could be determined."
	if len(candidates) > 1 {
		msg = fmt.Sprintf("Several entry candidates found: %s.", strings.Join(candidates, ", "))
	}
	return &AppError{
		Code: ErrCodeAmbiguousEntry, Message: msg,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{DetailNodes: candidates},
	}
}

// CycleDetected reports a cycle; path lists the nodes involved.
func CycleDetected(path []string) *AppError {
	e := &AppError{
		Code: ErrCodeCycleDetected, Message: fmt.Sprintf("Cycle detected: %s", strings.Join(path, " -> ")),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{DetailNodes: path},
	}
	if len(path) > 0 {
		e.Details[DetailNodeID] = path[0]
	}
	return e
}

// UnresolvedJoin reports fork branches without a common join node.
func UnresolvedJoin(forkID string) *AppError {
	return &AppError{
		Code: ErrCodeUnresolvedJoin, Message: fmt.Sprintf("Branches of fork %q do not reconverge on a common join node.", forkID),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{DetailNodeID: forkID},
	}
}

// InvalidPayload reports a program node configuration that fails its schema.
func InvalidPayload(nodeID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidPayload, Message: fmt.Sprintf("Node %q has an invalid configuration.", nodeID),
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
		Details:    map[string]any{DetailNodeID: nodeID},
	}
}

// --- Request constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details[DetailField] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{DetailField: field},
	}
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// Timeout creates a new AppError for an operation that ran out of time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates a new AppError for a caller over its request budget.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please slow down.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// PayloadTooLarge creates a new AppError for a request body over limit bytes.
func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: fmt.Sprintf("Request body exceeds %d bytes.", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"limit": limit},
	}
}

// Overloaded creates a new AppError for a request that found no free slot.
func Overloaded() *AppError {
	return &AppError{
		Code: ErrCodeOverloaded, Message: "The service is busy. Please retry shortly.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
