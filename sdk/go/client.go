// Package taskmcpsdk is a minimal client for the taskmcp line protocol. It
// talks to a server over any reader/writer pair, such as the pipes of a
// child process.
package taskmcpsdk

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Client issues one request at a time and reads the matching response line.
type Client struct {
	mu     sync.Mutex
	r      *bufio.Reader
	w      io.Writer
	nextID int64
}

// New creates a client writing requests to w and reading responses from r.
func New(r io.Reader, w io.Writer) *Client {
	return &Client{r: bufio.NewReader(r), w: w}
}

// Task represents the task model.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// TaskUpdate lists fields to change; nil fields are left alone.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

// Tool describes one advertised operation.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	} `json:"inputSchema"`
}

type ServerInfo struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

// RPCError is an error envelope returned by the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is the server's task-not-found error.
func IsNotFound(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == -1
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	b, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}
	if _, err := c.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return fmt.Errorf("read response: %w", err)
	}
	var res response
	if err := json.Unmarshal(line, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if res.Error != nil {
		return res.Error
	}
	if string(res.ID) != fmt.Sprint(id) {
		return fmt.Errorf("response id %s does not match request %d", res.ID, id)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res.Result, out)
}

// callTool invokes a tool and returns the text of its single content item.
func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	var res struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := c.call(ctx, "tools/call", map[string]any{"name": name, "arguments": args}, &res); err != nil {
		return "", err
	}
	if len(res.Content) == 0 {
		return "", fmt.Errorf("%s: empty result", name)
	}
	return res.Content[0].Text, nil
}

// decodeText parses the JSON that follows the "<label>: " prefix of a result.
func decodeText(text string, out any) error {
	i := strings.Index(text, ": ")
	if i < 0 {
		return fmt.Errorf("unexpected result text %q", text)
	}
	return json.Unmarshal([]byte(text[i+2:]), out)
}

func (c *Client) Initialize(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.call(ctx, "initialize", map[string]any{}, &info)
	return info, err
}

func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var res struct {
		Tools []Tool `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &res); err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// CreateTask creates a task; empty description and priority use server defaults.
func (c *Client) CreateTask(ctx context.Context, title, description, priority string) (Task, error) {
	args := map[string]any{"title": title}
	if description != "" {
		args["description"] = description
	}
	if priority != "" {
		args["priority"] = priority
	}
	text, err := c.callTool(ctx, "create_task", args)
	if err != nil {
		return Task{}, err
	}
	var t Task
	return t, decodeText(text, &t)
}

// ListTasks lists tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, status string) ([]Task, error) {
	args := map[string]any{}
	if status != "" {
		args["status"] = status
	}
	text, err := c.callTool(ctx, "list_tasks", args)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	return tasks, decodeText(text, &tasks)
}

func (c *Client) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (Task, error) {
	args := map[string]any{"task_id": id}
	if upd.Title != nil {
		args["title"] = *upd.Title
	}
	if upd.Description != nil {
		args["description"] = *upd.Description
	}
	if upd.Status != nil {
		args["status"] = *upd.Status
	}
	if upd.Priority != nil {
		args["priority"] = *upd.Priority
	}
	text, err := c.callTool(ctx, "update_task", args)
	if err != nil {
		return Task{}, err
	}
	var t Task
	return t, decodeText(text, &t)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.callTool(ctx, "delete_task", map[string]any{"task_id": id})
	return err
}
