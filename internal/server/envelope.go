package server

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Request is one line of input.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// wireRequest accepts any JSON type for jsonrpc and method so that a
// well-formed object is never reported as a parse error.
type wireRequest struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one line of output. ID is echoed verbatim; a request without
// an id gets a null id.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: mcp.JSONRPC_VERSION, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, rpcErr *RPCError) Response {
	return Response{JSONRPC: mcp.JSONRPC_VERSION, ID: id, Error: rpcErr}
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type serverCapabilities struct {
	Tools toolsCapability `json:"tools"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}
