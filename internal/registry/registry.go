// Package registry is the static catalog of task operations advertised by
// tools/list and consulted by the dispatcher for required arguments.
package registry

import (
	"github.com/mark3labs/mcp-go/mcp"

	"taskmcp/internal/domain"
)

const (
	CreateTask = "create_task"
	ListTasks  = "list_tasks"
	UpdateTask = "update_task"
	DeleteTask = "delete_task"
)

// Annotations are set explicitly; NewTool defaults every tool to destructive
// and open-world.
var tools = []mcp.Tool{
	mcp.NewTool(CreateTask,
		mcp.WithDescription("Create a new task"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Enum(domain.Priorities...), mcp.Description("Task priority")),
	),
	mcp.NewTool(ListTasks,
		mcp.WithDescription("List all tasks"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithString("status", mcp.Enum(domain.Statuses...), mcp.Description("Filter by status")),
	),
	mcp.NewTool(UpdateTask,
		mcp.WithDescription("Update an existing task"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Enum(domain.Statuses...), mcp.Description("New status")),
		mcp.WithString("priority", mcp.Enum(domain.Priorities...), mcp.Description("New priority")),
	),
	mcp.NewTool(DeleteTask,
		mcp.WithDescription("Delete a task"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID to delete")),
	),
}

// Tools returns the catalog in declaration order. The slice is a copy.
func Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(tools))
	copy(out, tools)
	return out
}

func Lookup(name string) (mcp.Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return mcp.Tool{}, false
}

// Required lists the argument names a call to name must carry.
func Required(name string) []string {
	t, ok := Lookup(name)
	if !ok {
		return nil
	}
	return append([]string(nil), t.InputSchema.Required...)
}

// Enum returns the closed set of values for an enumerated argument, if any.
func Enum(name, arg string) ([]string, bool) {
	t, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	prop, ok := t.InputSchema.Properties[arg].(map[string]any)
	if !ok {
		return nil, false
	}
	values, ok := prop["enum"].([]string)
	return values, ok
}
