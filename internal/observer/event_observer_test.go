package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"go-tamper-inspector/internal/logger"

	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []ComparisonEvent
}

func (r *recordingObserver) OnEvent(ctx context.Context, event ComparisonEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string {
	return r.name
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event ComparisonEvent) {
	panic("boom")
}

func (panickingObserver) GetObserverName() string {
	return "panicking"
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, ComparisonEvent{EventType: ComparisonStarted})
	m.OnEvent(ctx, ComparisonEvent{EventType: ComparisonStarted})
	m.OnEvent(ctx, ComparisonEvent{EventType: ComparisonStarted})
	m.OnEvent(ctx, ComparisonEvent{
		EventType:      ComparisonCompleted,
		ProcessingTime: 2 * time.Second,
		Metadata:       map[string]interface{}{"regions": 3},
	})
	m.OnEvent(ctx, ComparisonEvent{
		EventType:      ComparisonCompleted,
		ProcessingTime: 4 * time.Second,
		Metadata:       map[string]interface{}{"regions": 0},
	})
	m.OnEvent(ctx, ComparisonEvent{EventType: ComparisonFailed})
	m.OnEvent(ctx, ComparisonEvent{EventType: ImageFetchFailed})

	metrics := m.GetMetrics()
	tests := []struct {
		key      string
		expected interface{}
	}{
		{"total_comparisons", int64(3)},
		{"completed_comparisons", int64(2)},
		{"failed_comparisons", int64(1)},
		{"tampered_comparisons", int64(1)},
		{"total_regions", int64(3)},
		{"failed_fetches", int64(1)},
		{"avg_processing_time", "3s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if metrics[tt.key] != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, metrics[tt.key])
			}
		})
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(l)
	o.OnEvent(context.Background(), ComparisonEvent{
		EventType:    ComparisonFailed,
		ComparisonID: "abc123",
		ErrorMessage: "dimension mismatch",
	})

	out := buf.String()
	for _, want := range []string{`"comparison_id":"abc123"`, `"error":"dimension mismatch"`, `"level":"error"`, "Image comparison failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got %s", want, out)
		}
	}
}

func TestEventPublisher(t *testing.T) {
	p := NewEventPublisher()
	first := &recordingObserver{name: "first"}
	second := &recordingObserver{name: "second"}
	p.Subscribe(first)
	p.Subscribe(second)
	p.Subscribe(panickingObserver{})

	p.NotifyObservers(context.Background(), ComparisonEvent{EventType: ComparisonStarted})
	p.Wait()

	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("Expected one event per observer, got %d and %d", first.count(), second.count())
	}
	if first.events[0].Timestamp.IsZero() {
		t.Error("Expected timestamp to be filled in")
	}

	p.Unsubscribe(second)
	p.NotifyObservers(context.Background(), ComparisonEvent{EventType: ComparisonCompleted})
	p.Wait()

	if first.count() != 2 {
		t.Errorf("Expected 2 events for subscribed observer, got %d", first.count())
	}
	if second.count() != 1 {
		t.Errorf("Expected unsubscribed observer to stay at 1 event, got %d", second.count())
	}
}

func TestEventPublisher_PanicLoggedThroughAppLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.Logger.Out
	logger.Logger.SetOutput(&buf)
	t.Cleanup(func() { logger.Logger.SetOutput(previous) })

	p := NewEventPublisher()
	p.Subscribe(panickingObserver{})
	p.NotifyObservers(context.Background(), ComparisonEvent{EventType: ComparisonFailed})
	p.Wait()

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["observer"] != "panicking" || entry["level"] != "error" {
		t.Errorf("Expected an error entry for the panicking observer, got %v", entry)
	}
	if entry["event_type"] != string(ComparisonFailed) {
		t.Errorf("Expected event_type %s, got %v", ComparisonFailed, entry["event_type"])
	}
}
