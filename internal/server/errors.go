package server

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"taskmcp/internal/engine"
)

// Stable error codes carried in error envelopes.
const (
	CodeParseError     = mcp.PARSE_ERROR
	CodeMethodNotFound = mcp.METHOD_NOT_FOUND
	CodeInvalidParams  = mcp.INVALID_PARAMS
	CodeInternalError  = mcp.INTERNAL_ERROR
	CodeUnknownTool    = -32001
	CodeTaskNotFound   = -1
)

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func newRPCError(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errParse() *RPCError { return &RPCError{Code: CodeParseError, Message: "Parse error"} }

func errInternal() *RPCError { return &RPCError{Code: CodeInternalError, Message: "Internal error"} }

func errMissingArgument(name string) *RPCError {
	return &RPCError{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf("Missing required argument: %s", name),
		Data:    map[string]any{"field": name},
	}
}

// rpcErrorFor maps handler errors onto the wire error taxonomy.
func rpcErrorFor(err error) *RPCError {
	if err == nil {
		return nil
	}
	var re *RPCError
	if errors.As(err, &re) {
		return re
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error(), Data: map[string]any{"field": ve.Field}}
	}
	var nf engine.NotFoundError
	if errors.As(err, &nf) {
		return &RPCError{Code: CodeTaskNotFound, Message: nf.Error(), Data: map[string]any{"task_id": nf.ID}}
	}
	return &RPCError{Code: CodeInternalError, Message: err.Error()}
}
