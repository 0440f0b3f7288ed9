package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
)

// maxFrameSize bounds a single JSON-RPC line. Large graph reads fit well
// inside this; anything bigger is a malformed client.
const maxFrameSize = 4 * 1024 * 1024

// StdioTransport speaks newline-delimited JSON-RPC over stdin/stdout, the
// standard MCP stdio framing. All logging goes to stderr; stdout carries
// nothing but response frames.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewStdioTransport creates a transport bound to os.Stdin/os.Stdout.
func NewStdioTransport(server *Server) *StdioTransport {
	return &StdioTransport{
		server: server,
		in:     os.Stdin,
		out:    os.Stdout,
		logger: log.New(os.Stderr, "mnemo-mcp: ", log.LstdFlags),
	}
}

// NewTransport creates a transport over arbitrary reader/writer pairs.
// Used by tests.
func NewTransport(server *Server, in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		server: server,
		in:     in,
		out:    out,
		logger: log.New(os.Stderr, "mnemo-mcp: ", log.LstdFlags),
	}
}

// Run reads request frames until EOF or context cancellation. Malformed JSON
// produces a parse-error response rather than terminating the loop; a single
// bad frame must not kill the session.
func (t *StdioTransport) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.logger.Printf("parse error: %v", err)
			t.write(errorResponse(nil, ErrCodeParseError, "parse error", err.Error()))
			continue
		}

		resp := t.handle(ctx, &req)
		if resp != nil {
			t.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin: %w", err)
	}
	return nil
}

// handle dispatches one request, converting a panic in a handler into an
// internal-error response so the transport loop survives.
func (t *StdioTransport) handle(ctx context.Context, req *JSONRPCRequest) (resp *JSONRPCResponse) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("panic in %s: %v", req.Method, r)
			resp = internalErrorResponse(req.ID, r)
		}
	}()
	return t.server.HandleRequest(ctx, req)
}

func (t *StdioTransport) write(resp *JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Printf("marshal response: %v", err)
		return
	}
	if _, err := t.out.Write(append(data, '\n')); err != nil {
		t.logger.Printf("write response: %v", err)
	}
}

// internalErrorResponse builds the response for an unexpected handler
// failure.
func internalErrorResponse(id interface{}, cause interface{}) *JSONRPCResponse {
	return errorResponse(id, ErrCodeInternalError, "internal error", fmt.Sprintf("%v", cause))
}
