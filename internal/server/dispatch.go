package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofer-dev/gofer/internal/daemon"
	"github.com/gofer-dev/gofer/internal/logging"
	"github.com/gofer-dev/gofer/internal/project"
	"github.com/gofer-dev/gofer/internal/rpcerr"
)

// toolsListEntry is one element of the tools/list result array.
type toolsListEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// dispatch routes one parsed request to its handler and returns the
// result or error to embed in a Response. Notifications call this too;
// their return value is discarded by the caller.
func (c *Context) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return map[string]any{
			"protocolVersion": "2.0",
			"serverInfo":      map[string]any{"name": "gofer", "version": "0.1.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}, "resources": map[string]any{}, "prompts": map[string]any{}},
		}, nil

	case "initialized", "notifications/initialized":
		return nil, nil

	case "ping":
		return map[string]any{"pong": true}, nil

	case "tools/list":
		return c.toolsList(), nil

	case "tools/call":
		return c.toolsCall(ctx, params)

	case "resources/list":
		return map[string]any{"resources": []any{}}, nil

	case "resources/read":
		return nil, rpcerr.New(rpcerr.MethodNotFound, "resources/read: no resources are exposed")

	case "prompts/list":
		return map[string]any{"prompts": []any{}}, nil

	case "prompts/get":
		return nil, rpcerr.New(rpcerr.MethodNotFound, "prompts/get: no prompts are exposed")

	case "register":
		return c.handleRegister(params)
	case "activate":
		return c.handleActivate(params)
	case "deactivate":
		return c.handleDeactivate(params)
	case "status":
		return c.handleStatus(), nil
	case "health":
		return c.handleHealth(), nil
	case "metrics":
		return c.handleMetrics()
	case "shutdown":
		c.Shutdown.Fire()
		return map[string]any{"status": "shutting_down"}, nil
	case "sync_progress":
		return c.handleSyncProgress(params)

	default:
		return nil, rpcerr.New(rpcerr.MethodNotFound, "unknown method %q", method)
	}
}

func (c *Context) toolsList() map[string]any {
	var entries []toolsListEntry
	for _, t := range c.Registry.All() {
		entries = append(entries, toolsListEntry{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
	}
	return map[string]any{"tools": entries}
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

// toolsCall executes a verb through the tool dispatcher, enforcing the
// scoped request-permit limit per spec.md §4.10 before handing off to the
// registry, and wrapping the outcome into the {content, isError} shape
// tools/call's contract requires.
func (c *Context) toolsCall(ctx context.Context, raw json.RawMessage) (any, error) {
	var p toolsCallParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, rpcerr.Wrap(rpcerr.InvalidParams, err, "tools/call: malformed params")
	}
	if p.Name == "" {
		return nil, rpcerr.New(rpcerr.InvalidParams, "tools/call: missing required field %q", "name")
	}

	if !c.RequestPermits.TryAcquire(1) {
		return nil, rpcerr.New(rpcerr.ResourceExhausted, "request permit exhausted")
	}
	defer c.RequestPermits.Release(1)

	if tool := c.Registry.Get(p.Name); tool != nil && tool.Heavy {
		if !c.HeavyCooldown.Allow(p.Name) {
			return map[string]any{
				"content": []map[string]any{{"type": "text", "text": fmt.Sprintf("%s skipped: cooldown active", p.Name)}},
				"status":  "skipped",
			}, nil
		}
	}

	result, err := c.Registry.Execute(ctx, requestIDFromMeta(p.Meta), p.Name, p.Arguments)
	var durationMs int64
	if result != nil {
		durationMs = result.DurationMs
	}
	c.Metrics.RecordDispatch(p.Name, err == nil, float64(durationMs)/1000.0)

	if err != nil {
		logging.ServerWarn("tools/call %s failed: %v", p.Name, err)
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		}, nil
	}

	text, marshalErr := json.Marshal(result.Result)
	if marshalErr != nil {
		text = []byte(fmt.Sprintf("%v", result.Result))
	}
	return map[string]any{"content": []map[string]any{{"type": "text", "text": string(text)}}}, nil
}

func requestIDFromMeta(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	if id, ok := meta["requestId"].(string); ok {
		return id
	}
	return ""
}

type registerParams struct {
	ID   string `json:"id"`
	Root string `json:"root"`
}

func (c *Context) handleRegister(raw json.RawMessage) (any, error) {
	var p registerParams
	if err := json.Unmarshal(raw, &p); err != nil || p.Root == "" {
		return nil, rpcerr.New(rpcerr.InvalidParams, "register: missing required field %q", "root")
	}
	proj, err := c.Projects.Register(p.ID, p.Root)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.Internal, err, "register project")
	}
	return proj, nil
}

type projectIDParams struct {
	ID string `json:"id"`
}

func (c *Context) handleActivate(raw json.RawMessage) (any, error) {
	var p projectIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return nil, rpcerr.New(rpcerr.InvalidParams, "activate: missing required field %q", "id")
	}

	// When params._meta.progressToken is set, each liveness-probe stage
	// updates the progress tracker; the connection's sampler forwards the
	// latest stage as $/progress once per sample interval.
	token := progressToken(raw)
	var report project.ProgressFunc
	if token != "" {
		report = func(step, total int, message string) {
			c.Progress.Update(daemon.ProgressEvent{Token: token, Progress: step, Total: total, Message: message})
		}
	}

	proj, err := c.Projects.ActivateWithProgress(p.ID, report)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.StorageError, err, "activate project")
	}
	c.Broadcast.Publish(map[string]any{"method": "tools/list_changed"})
	return proj, nil
}

func (c *Context) handleDeactivate(raw json.RawMessage) (any, error) {
	var p projectIDParams
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return nil, rpcerr.New(rpcerr.InvalidParams, "deactivate: missing required field %q", "id")
	}
	if err := c.Projects.Deactivate(p.ID); err != nil {
		return nil, rpcerr.Wrap(rpcerr.StorageError, err, "deactivate project")
	}
	return map[string]any{"status": "success"}, nil
}

func (c *Context) handleStatus() any {
	return map[string]any{"projects": c.Projects.List(), "tool_count": c.Registry.Count()}
}

func (c *Context) handleHealth() any {
	return map[string]any{"status": "ok", "shutting_down": c.Shutdown.Fired()}
}

func (c *Context) handleMetrics() (any, error) {
	families, err := c.Metrics.Registry.Gather()
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.Internal, err, "gather metrics")
	}
	out := make([]string, 0, len(families))
	for _, mf := range families {
		out = append(out, mf.GetName())
	}
	return map[string]any{"metric_families": out}, nil
}

type syncProgressParams struct {
	ProgressToken string `json:"progressToken"`
}

func (c *Context) handleSyncProgress(raw json.RawMessage) (any, error) {
	var p syncProgressParams
	if err := json.Unmarshal(raw, &p); err != nil || p.ProgressToken == "" {
		return nil, rpcerr.New(rpcerr.InvalidParams, "sync_progress: missing required field %q", "progressToken")
	}
	ev, ok := c.Progress.Snapshot(p.ProgressToken)
	if !ok {
		return map[string]any{"found": false}, nil
	}
	return map[string]any{"found": true, "progress": ev}, nil
}
