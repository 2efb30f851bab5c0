package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"taskmcp/internal/engine"
	"taskmcp/internal/registry"
)

const (
	methodInitialize  = string(mcp.MethodInitialize)
	methodPing        = string(mcp.MethodPing)
	methodToolsList   = string(mcp.MethodToolsList)
	methodToolsCall   = string(mcp.MethodToolsCall)
	methodInitialized = "notifications/initialized"
)

// Info identifies the server in the initialize handshake.
type Info struct {
	Name            string
	Version         string
	ProtocolVersion string
}

// Dispatcher handles one decoded request at a time against the engine.
type Dispatcher struct {
	Engine engine.Engine
	Info   Info
	Logger *slog.Logger
}

func NewDispatcher(e engine.Engine, info Info, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{Engine: e, Info: info, Logger: logger}
}

// Handle always returns a response echoing req.ID. Panics raised while
// handling are converted into internal errors here.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.ErrorContext(ctx, "request handler panicked", "method", req.Method, "panic", r)
			resp = errorResponse(req.ID, newRPCError(CodeInternalError, "%v", r))
		}
	}()
	result, err := d.dispatch(ctx, req)
	if err != nil {
		rpcErr := rpcErrorFor(err)
		if rpcErr.Code == CodeInternalError {
			d.Logger.ErrorContext(ctx, "request failed", "method", req.Method, "err", err)
		}
		return errorResponse(req.ID, rpcErr)
	}
	return resultResponse(req.ID, result)
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case methodInitialize:
		return initializeResult{
			ProtocolVersion: d.Info.ProtocolVersion,
			Capabilities:    serverCapabilities{Tools: toolsCapability{ListChanged: true}},
			ServerInfo:      mcp.Implementation{Name: d.Info.Name, Version: d.Info.Version},
		}, nil
	case methodPing, methodInitialized:
		return struct{}{}, nil
	case methodToolsList:
		return mcp.ListToolsResult{Tools: registry.Tools()}, nil
	case methodToolsCall:
		var params callToolParams
		if len(req.Params) > 0 && string(req.Params) != "null" {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, newRPCError(CodeInvalidParams, "Invalid params: %v", err)
			}
		}
		return d.callTool(ctx, params.Name, arguments(params.Arguments))
	default:
		return nil, newRPCError(CodeMethodNotFound, "Unknown method: %s", req.Method)
	}
}

func (d *Dispatcher) callTool(ctx context.Context, name string, args arguments) (*mcp.CallToolResult, error) {
	if _, ok := registry.Lookup(name); !ok {
		return nil, newRPCError(CodeUnknownTool, "Unknown tool: %s", name)
	}
	if err := args.checkRequired(name); err != nil {
		return nil, err
	}
	d.Logger.DebugContext(ctx, "tool call", "tool", name)

	switch name {
	case registry.CreateTask:
		return d.createTask(ctx, args)
	case registry.ListTasks:
		return d.listTasks(ctx, args)
	case registry.UpdateTask:
		return d.updateTask(ctx, args)
	case registry.DeleteTask:
		return d.deleteTask(ctx, args)
	}
	return nil, fmt.Errorf("tool %s has no handler", name)
}

func (d *Dispatcher) createTask(ctx context.Context, args arguments) (*mcp.CallToolResult, error) {
	title, err := args.strOr("title", "")
	if err != nil {
		return nil, err
	}
	description, err := args.strOr("description", "")
	if err != nil {
		return nil, err
	}
	priority, err := args.strOr("priority", "")
	if err != nil {
		return nil, err
	}
	t, err := d.Engine.CreateTask(ctx, engine.TaskCreateOptions{Title: title, Description: description, Priority: priority})
	if err != nil {
		return nil, err
	}
	return textResult("Task created successfully: ", t)
}

func (d *Dispatcher) listTasks(ctx context.Context, args arguments) (*mcp.CallToolResult, error) {
	status, err := args.strOr("status", "")
	if err != nil {
		return nil, err
	}
	tasks, err := d.Engine.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}
	return textResult("Tasks: ", tasks)
}

func (d *Dispatcher) updateTask(ctx context.Context, args arguments) (*mcp.CallToolResult, error) {
	id, err := args.id("task_id")
	if err != nil {
		return nil, err
	}
	opts := engine.TaskUpdateOptions{ID: id}
	fields := []struct {
		name string
		dst  **string
	}{
		{"title", &opts.Title},
		{"description", &opts.Description},
		{"status", &opts.Status},
		{"priority", &opts.Priority},
	}
	for _, f := range fields {
		v, err := args.str(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	t, err := d.Engine.UpdateTask(ctx, opts)
	if err != nil {
		return nil, err
	}
	return textResult("Task updated successfully: ", t)
}

func (d *Dispatcher) deleteTask(ctx context.Context, args arguments) (*mcp.CallToolResult, error) {
	id, err := args.id("task_id")
	if err != nil {
		return nil, err
	}
	if err := d.Engine.DeleteTask(ctx, id); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted successfully", id)), nil
}

func textResult(prefix string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render result: %w", err)
	}
	return mcp.NewToolResultText(prefix + string(data)), nil
}
