package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gofer-dev/gofer/internal/logging"
	"github.com/gofer-dev/gofer/internal/ratelimit"
	"github.com/gofer-dev/gofer/internal/rpcerr"
)

// longRunningVerbs names the tools/call targets whose progress is worth
// sampling and forwarding as $/progress notifications.
var longRunningVerbs = map[string]bool{
	"reindex":  true,
	"activate": true,
}

// handleConn drives one accepted connection to completion: reads
// line-delimited JSON-RPC, applies the per-connection rate limit, dispatches
// requests and batches, and serialises writes (responses and progress
// notifications alike) through a single channel so they never interleave
// mid-line.
func (c *Context) handleConn(parent context.Context, conn net.Conn) {
	defer conn.Close()
	c.Metrics.ActiveConns.Inc()
	defer c.Metrics.ActiveConns.Dec()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	writeCh := make(chan []byte, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for line := range writeCh {
			if _, err := conn.Write(append(line, '\n')); err != nil {
				logging.ServerWarn("connection write failed: %v", err)
				return
			}
		}
	}()
	defer func() {
		close(writeCh)
		<-writerDone
	}()

	sub, unsubscribe := c.Broadcast.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case msg, ok := <-sub:
				if !ok {
					return
				}
				if line, err := json.Marshal(msg); err == nil {
					select {
					case writeCh <- line:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	limiter := ratelimit.New(c.RateLimitPerConn, c.RateLimitWindow)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.IdleTimeout)); err != nil {
			return
		}

		select {
		case <-c.Shutdown.Done():
			return
		default:
		}

		if !scanner.Scan() {
			return
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !limiter.Allow() {
			resp := newError(nil, -32000, (ratelimit.ErrRateLimited{}).Error())
			c.writeResponse(writeCh, resp)
			continue
		}

		c.handleLine(ctx, writeCh, append([]byte{}, line...))
	}
}

func (c *Context) writeResponse(writeCh chan []byte, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	writeCh <- data
}

// handleLine parses one line as either a single request or a JSON-RPC
// batch array, dispatching accordingly.
func (c *Context) handleLine(ctx context.Context, writeCh chan []byte, line []byte) {
	trimmed := bytes.TrimLeft(line, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(line, &batch); err != nil {
			c.writeResponse(writeCh, newError(nil, -32700, "Parse error"))
			return
		}
		if len(batch) == 0 {
			c.writeResponse(writeCh, newError(nil, -32600, "Invalid Request: empty batch"))
			return
		}
		if c.MaxBatchSize > 0 && len(batch) > c.MaxBatchSize {
			c.writeResponse(writeCh, newError(nil, -32000, "batch exceeds maximum size"))
			return
		}
		c.handleBatch(ctx, writeCh, batch)
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		c.writeResponse(writeCh, newError(nil, -32700, "Parse error"))
		return
	}
	c.handleSingle(ctx, writeCh, req)
}

// handleBatch dispatches every element concurrently and emits one array
// response preserving element order, independent of completion order.
func (c *Context) handleBatch(ctx context.Context, writeCh chan []byte, batch []json.RawMessage) {
	responses := make([]*Response, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range batch {
		i, raw := i, raw
		g.Go(func() error {
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				r := newError(nil, -32700, "Parse error")
				responses[i] = &r
				return nil
			}
			if req.IsNotification() {
				_, _ = c.dispatch(gctx, req.Method, req.Params)
				return nil
			}
			r := c.runOne(gctx, req)
			responses[i] = &r
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Response, 0, len(responses))
	for _, r := range responses {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	writeCh <- data
}

func (c *Context) handleSingle(ctx context.Context, writeCh chan []byte, req Request) {
	if req.IsNotification() {
		_, _ = c.dispatch(ctx, req.Method, req.Params)
		return
	}

	token := progressToken(req.Params)
	var stopProgress chan struct{}
	if token != "" && longRunningVerbs[methodOrVerb(req)] {
		stopProgress = make(chan struct{})
		go c.sampleProgress(ctx, writeCh, token, stopProgress)
	}

	resp := c.runOne(ctx, req)

	if stopProgress != nil {
		close(stopProgress)
		c.Progress.Clear(token)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	writeCh <- data
}

// methodOrVerb extracts the verb a tools/call names, so the long-running
// check matches the underlying tool rather than the literal RPC method.
func methodOrVerb(req Request) string {
	if req.Method != "tools/call" {
		return req.Method
	}
	var p toolsCallParams
	_ = json.Unmarshal(req.Params, &p)
	return p.Name
}

func (c *Context) sampleProgress(ctx context.Context, writeCh chan []byte, token string, stop chan struct{}) {
	ticker := time.NewTicker(progressSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ev, ok := c.Progress.Snapshot(token)
			if !ok {
				continue
			}
			n := progressNotification(ProgressParams{ProgressToken: token, Progress: ev.Progress, Total: ev.Total, Message: ev.Message})
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			select {
			case writeCh <- data:
			case <-ctx.Done():
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Context) runOne(ctx context.Context, req Request) Response {
	result, err := c.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		rr := rpcerr.ToResponse(err)
		return newError(req.ID, rr.Code, rr.Message)
	}
	return newResult(req.ID, result)
}

const progressSampleInterval = 500 * time.Millisecond
