// Package server implements the line-delimited JSON-RPC transport and the
// dispatcher that maps requests onto task operations.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Server reads one request per line from In and writes one response per line
// to Out, strictly in order.
type Server struct {
	Dispatcher *Dispatcher
	In         io.Reader
	Out        io.Writer
	Logger     *slog.Logger
}

type readResult struct {
	line []byte
	err  error
}

// Serve runs until In reaches end of stream, ctx is cancelled, or writing to
// Out fails. End of stream and cancellation return nil.
func (s *Server) Serve(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := bufio.NewWriter(s.Out)
	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go readLines(bufio.NewReader(s.In), lines, done)

	logger.InfoContext(ctx, "task server starting")
	for {
		var rr readResult
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "task server shutting down")
			return nil
		case rr = <-lines:
		}
		if len(rr.line) > 0 {
			if err := s.writeLine(out, s.handleLine(ctx, logger, rr.line)); err != nil {
				return err
			}
		}
		if rr.err != nil {
			if errors.Is(rr.err, io.EOF) {
				logger.InfoContext(ctx, "input closed")
				return nil
			}
			return fmt.Errorf("read request: %w", rr.err)
		}
	}
}

// readLines delivers each line, including a final unterminated one, followed
// by the terminating read error.
func readLines(r *bufio.Reader, out chan<- readResult, done <-chan struct{}) {
	for {
		line, err := r.ReadBytes('\n')
		select {
		case out <- readResult{line: line, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleLine(ctx context.Context, logger *slog.Logger, line []byte) (payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "unexpected error", "panic", r)
			payload = mustMarshal(errorResponse(nil, errInternal()))
		}
	}()
	req, err := decodeRequest(line)
	if err != nil {
		logger.ErrorContext(ctx, "invalid JSON received", "err", err)
		return mustMarshal(errorResponse(nil, errParse()))
	}
	resp := s.Dispatcher.Handle(ctx, req)
	data, err := json.Marshal(resp)
	if err != nil {
		logger.ErrorContext(ctx, "unexpected error", "method", req.Method, "err", err)
		return mustMarshal(errorResponse(nil, errInternal()))
	}
	return data
}

func decodeRequest(line []byte) (Request, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Request{}, errors.New("request is not a JSON object")
	}
	var w wireRequest
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Request{}, err
	}
	return Request{
		JSONRPC: rawString(w.JSONRPC),
		ID:      w.ID,
		Method:  rawString(w.Method),
		Params:  w.Params,
	}, nil
}

// rawString returns the decoded string, or the raw JSON text of any other
// value. A non-string method therefore never names a known method.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func mustMarshal(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return data
}

func (s *Server) writeLine(w *bufio.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return w.Flush()
}
