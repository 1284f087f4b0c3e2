package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/schema"

	"github.com/oakline/policyagent/internal/audit"
)

// StreamEventType classifies events emitted during a streaming run.
type StreamEventType string

const (
	// StreamText carries a fragment of model text as it arrives.
	StreamText StreamEventType = "text"
	// StreamToolStart marks the beginning of a tool execution.
	StreamToolStart StreamEventType = "tool_start"
	// StreamToolEnd marks the end of a tool execution.
	StreamToolEnd StreamEventType = "tool_end"
)

// StreamEvent is one incremental event from a streaming run.
type StreamEvent struct {
	Type StreamEventType
	Text string
	Tool string
}

// Stream delivers incremental events for one run and the final response
// once the run completes. Close abandons the run.
type Stream struct {
	events chan StreamEvent
	cancel context.CancelFunc
	done   chan struct{}

	final *Response
	err   error
}

// Recv returns the next event. ok is false once the run has finished and
// all events were consumed.
func (s *Stream) Recv() (StreamEvent, bool) {
	ev, ok := <-s.events
	return ev, ok
}

// Close abandons the run. Safe to call at any time, including after the
// run completed.
func (s *Stream) Close() {
	s.cancel()
}

// Final blocks until the run completes and returns its outcome.
func (s *Stream) Final() (*Response, error) {
	<-s.done
	return s.final, s.err
}

// RunStream answers a policy question while streaming text fragments and
// tool markers. Input guardrail rejection fails fast before any model call.
func (a *Agent) RunStream(ctx context.Context, query string) (*Stream, error) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = NewRequestID()
		ctx = WithRequestID(ctx, requestID)
	}

	validation := a.input.Validate(query)
	if !validation.Valid {
		slog.Warn("input rejected", "request_id", requestID, "risk", validation.RiskLevel, "error", validation.ErrorMessage)
		a.appendAudit(audit.Event{
			Type:      audit.TypeInputRejected,
			RequestID: requestID,
			Result:    validation.ErrorMessage,
			RiskLevel: string(validation.RiskLevel),
		})
		if _, err := a.metrics.RecordRequest(true, false); err != nil {
			slog.Warn("record request metrics failed", "error", err)
		}
		return nil, &InputRejectedError{Result: validation}
	}

	if err := a.bindTools(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan StreamEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		s.final, s.err = a.runStreaming(runCtx, requestID, validation.SanitizedInput, s)
	}()

	return s, nil
}

func (a *Agent) runStreaming(ctx context.Context, requestID, sanitized string, s *Stream) (*Response, error) {
	conv := NewConversation(BuildMessages(sanitized))

	for conv.Iterations() < a.maxIterations {
		full, err := a.streamOneTurn(ctx, conv.Messages(), s)
		if err != nil {
			return nil, err
		}
		conv.AddModelTurn(full)
		if conv.Terminal() {
			break
		}

		for _, tc := range full.ToolCalls {
			if !s.emit(ctx, StreamEvent{Type: StreamToolStart, Tool: tc.Function.Name}) {
				return nil, ctx.Err()
			}
		}
		results, records := a.executeToolCalls(ctx, requestID, full.ToolCalls)
		conv.AddToolResults(results, records)
		for _, rec := range records {
			if !s.emit(ctx, StreamEvent{Type: StreamToolEnd, Tool: rec.Tool}) {
				return nil, ctx.Err()
			}
		}
	}

	if !conv.Terminal() {
		return a.finalize(requestID, conv), ErrMaxIterations
	}
	return a.finalize(requestID, conv), nil
}

// streamOneTurn streams one model response, emitting text fragments, and
// returns the reassembled message including tool calls.
func (a *Agent) streamOneTurn(ctx context.Context, messages []*schema.Message, s *Stream) (*schema.Message, error) {
	reader, err := a.model.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var chunks []*schema.Message
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			if !s.emit(ctx, StreamEvent{Type: StreamText, Text: chunk.Content}) {
				return nil, ctx.Err()
			}
		}
	}
	return schema.ConcatMessages(chunks)
}

// emit sends an event unless the consumer abandoned the stream.
func (s *Stream) emit(ctx context.Context, ev StreamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
