package core

import "fmt"

// ErrorKind names one of the error kinds the core surfaces.
type ErrorKind string

const (
	KindParseError             ErrorKind = "parse_error"
	KindPermissionDenied       ErrorKind = "permission_denied"
	KindToolExecutionFailure   ErrorKind = "tool_execution_failure"
	KindSchemaValidationFailure ErrorKind = "schema_validation_failure"
	KindIterationBudgetExceeded ErrorKind = "iteration_budget_exceeded"
	KindStuckLoopDetected       ErrorKind = "stuck_loop_detected"
	KindCancelled               ErrorKind = "cancelled"
	KindLLMTransportError       ErrorKind = "llm_transport_error"
)

// AgentError is the typed error every terminal failure of the loop is
// wrapped in, modelled after this module's ToolRegistryError idiom:
// a component/action/message triple plus an optional wrapped cause.
type AgentError struct {
	Kind    ErrorKind
	Action  string
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Action, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Err }

// KindOf returns the failure category, so callers can branch on it without
// reading the Kind field directly.
func (e *AgentError) KindOf() ErrorKind { return e.Kind }

func newErr(kind ErrorKind, action, message string, cause error) *AgentError {
	return &AgentError{Kind: kind, Action: action, Message: message, Err: cause}
}

func ErrIterationBudgetExceeded(max int) *AgentError {
	return newErr(KindIterationBudgetExceeded, "loop", fmt.Sprintf("exceeded %d iterations", max), nil)
}

func ErrStuckLoopDetected(reason string) *AgentError {
	return newErr(KindStuckLoopDetected, "stuckloop", reason, nil)
}

func ErrCancelled() *AgentError {
	return newErr(KindCancelled, "loop", "session cancelled", nil)
}

func ErrLLMTransport(cause error) *AgentError {
	return newErr(KindLLMTransportError, "llm", "LLM transport failed", cause)
}

func ErrSchemaValidation(message string, cause error) *AgentError {
	return newErr(KindSchemaValidationFailure, "schema", message, cause)
}
