package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/oakline/policyagent/internal/guardrails"
	"github.com/oakline/policyagent/internal/tools"
)

func drain(t *testing.T, s *Stream) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for {
		ev, ok := s.Recv()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestRunStream_FragmentsConcatenateToFinalText(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: decisionText},
	}}
	a := newTestAgent(t, m)

	s, err := a.RunStream(context.Background(), "Can I fly economy to Denver?")
	if err != nil {
		t.Fatalf("RunStream error: %v", err)
	}
	events := drain(t, s)

	var b strings.Builder
	for _, ev := range events {
		if ev.Type != StreamText {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		b.WriteString(ev.Text)
	}
	if b.String() != decisionText {
		t.Fatalf("fragments do not reassemble final text:\n%q\nvs\n%q", b.String(), decisionText)
	}

	resp, err := s.Final()
	if err != nil {
		t.Fatalf("Final error: %v", err)
	}
	if resp.Decision == nil || resp.Decision.PolicyReference != "travel-001" {
		t.Fatalf("unexpected final decision: %+v", resp.Decision)
	}
}

func TestRunStream_EmitsToolMarkers(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role:      schema.Assistant,
			Content:   "Checking the employee.",
			ToolCalls: []schema.ToolCall{toolCall("call_1", tools.NameEmployeeLookup, `{"employee_id":"emp001"}`)},
		},
		{Role: schema.Assistant, Content: decisionText},
	}}
	a := newTestAgent(t, m)

	s, err := a.RunStream(context.Background(), "Can emp001 fly economy?")
	if err != nil {
		t.Fatalf("RunStream error: %v", err)
	}
	events := drain(t, s)

	var sawStart, sawEnd bool
	for _, ev := range events {
		switch ev.Type {
		case StreamToolStart:
			if ev.Tool != tools.NameEmployeeLookup {
				t.Fatalf("unexpected tool in start marker: %q", ev.Tool)
			}
			sawStart = true
		case StreamToolEnd:
			if !sawStart {
				t.Fatal("tool end before tool start")
			}
			sawEnd = true
		}
	}
	if !sawStart || !sawEnd {
		t.Fatalf("expected tool start and end markers, got %+v", events)
	}

	resp, err := s.Final()
	if err != nil {
		t.Fatalf("Final error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool record, got %d", len(resp.ToolCalls))
	}
}

func TestRunStream_RejectedInputFailsFast(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: decisionText},
	}}
	a := newTestAgent(t, m)

	_, err := a.RunStream(context.Background(), strings.Repeat("x", 5000))
	var rejected *InputRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected InputRejectedError, got %v", err)
	}
	if m.calls != 0 {
		t.Fatalf("model must not be called, got %d calls", m.calls)
	}
}

// blockedStreamModel produces more fragments than the event buffer holds, so
// the producer blocks until the consumer reads or closes.
type blockedStreamModel struct{}

func (m *blockedStreamModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: "unused"}, nil
}

func (m *blockedStreamModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	chunks := make([]*schema.Message, 100)
	for i := range chunks {
		chunks[i] = &schema.Message{Role: schema.Assistant, Content: "chunk "}
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *blockedStreamModel) BindTools(toolInfos []*schema.ToolInfo) error {
	return nil
}

func TestRunStream_CloseAbandonsRun(t *testing.T) {
	a := New(&blockedStreamModel{}, testToolRegistry(t), Options{
		Input: guardrails.NewInputGuardrail(2000, nil),
	})

	s, err := a.RunStream(context.Background(), "long answer please")
	if err != nil {
		t.Fatalf("RunStream error: %v", err)
	}
	// Let the producer fill the buffer, then abandon without reading.
	time.Sleep(20 * time.Millisecond)
	s.Close()

	if _, err := s.Final(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled after Close, got %v", err)
	}
}
