package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gofer-dev/gofer/internal/config"
)

// rpcRequest is the minimal envelope the CLI needs to speak to a running
// daemon; it deliberately doesn't import internal/server to keep cmd/
// free of daemon-internal types, per the thin-CLI boundary.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// socketPathFor resolves the daemon socket path for a workspace the same
// way internal/bootstrap does, without constructing the rest of the
// collaborator graph.
func socketPathFor(root string) (string, error) {
	cfg, err := config.Load(resolveConfigPath(root))
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	socketPath := cfg.Socket
	if !filepath.IsAbs(socketPath) {
		socketPath = filepath.Join(root, socketPath)
	}
	return socketPath, nil
}

// call dials the daemon socket for the given workspace, sends one
// JSON-RPC request, and returns the decoded result (or an error wrapping
// the RPC error object).
func call(root, method string, params any) (json.RawMessage, error) {
	socketPath, err := socketPathFor(root)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		if logger != nil {
			logger.Warn("daemon unreachable", zap.String("socket", socketPath), zap.Error(err))
		}
		return nil, fmt.Errorf("connect to gofer daemon at %s (is it running? try `gofer serve`): %w", socketPath, err)
	}
	defer conn.Close()

	req := rpcRequest{JSONRPC: "2.0", ID: "cli-1", Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
	}
	return resp.Result, nil
}
