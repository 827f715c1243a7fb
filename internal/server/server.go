package server

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/gofer-dev/gofer/internal/logging"
)

// ListenAndServe binds the stream socket at c.SocketPath, removing any
// stale file left behind by a prior unclean shutdown, and accepts
// connections until c.Shutdown fires. Each accepted connection is gated by
// ConnSemaphore: once the bound is reached, further connections are
// accepted and immediately closed rather than left to block the listener.
func (c *Context) ListenAndServe(ctx context.Context) error {
	if err := removeStaleSocket(c.SocketPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", c.SocketPath)
	if err != nil {
		return err
	}
	defer ln.Close()
	defer os.Remove(c.SocketPath)

	go func() {
		select {
		case <-c.Shutdown.Done():
			ln.Close()
		case <-ctx.Done():
			c.Shutdown.Fire()
			ln.Close()
		}
	}()

	logging.Server("listening on %s", c.SocketPath)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if c.Shutdown.Fired() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.ServerWarn("accept failed: %v", err)
			continue
		}

		if !c.ConnSemaphore.TryAcquire(1) {
			logging.ServerWarn("connection limit reached, dropping new connection")
			conn.Close()
			continue
		}

		go func() {
			defer c.ConnSemaphore.Release(1)
			c.handleConn(c.Shutdown.Context(), conn)
		}()
	}
}

func removeStaleSocket(path string) error {
	if path == "" {
		return nil
	}
	_, err := net.Dial("unix", path)
	if err == nil {
		return errors.New("server: socket already in use by a running daemon: " + path)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return os.Remove(path)
	}
	return nil
}
