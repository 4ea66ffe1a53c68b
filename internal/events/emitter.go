package events

import (
	"context"
	"log/slog"
	"sync"
)

// Multi fans every event out to the registered observers in registration
// order.
type Multi struct {
	observers []Observer
	mu        sync.RWMutex
}

// NewMulti creates a Multi with the given observers. Nil entries are dropped.
func NewMulti(observers ...Observer) *Multi {
	m := &Multi{}
	for _, o := range observers {
		m.Register(o)
	}
	return m
}

// Register adds an observer.
func (m *Multi) Register(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Multi) snapshot() []Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Observer, len(m.observers))
	copy(out, m.observers)
	return out
}

// OnPhaseStart implements Observer.
func (m *Multi) OnPhaseStart(ctx context.Context, phase Phase, total int) {
	for _, o := range m.snapshot() {
		o.OnPhaseStart(ctx, phase, total)
	}
}

// OnItem implements Observer.
func (m *Multi) OnItem(ctx context.Context, event ItemEvent) {
	for _, o := range m.snapshot() {
		o.OnItem(ctx, event)
	}
}

// OnPhaseEnd implements Observer.
func (m *Multi) OnPhaseEnd(ctx context.Context, summary PhaseSummary) {
	for _, o := range m.snapshot() {
		o.OnPhaseEnd(ctx, summary)
	}
}

// LogObserver writes progress to a structured logger. Item events are
// logged at debug level, failures at warn.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With(slog.String("component", "sync_progress"))}
}

// OnPhaseStart implements Observer.
func (l *LogObserver) OnPhaseStart(ctx context.Context, phase Phase, total int) {
	l.logger.InfoContext(ctx, "phase started",
		slog.String("phase", string(phase)),
		slog.Int("items", total))
}

// OnItem implements Observer.
func (l *LogObserver) OnItem(ctx context.Context, event ItemEvent) {
	attrs := []any{
		slog.String("phase", string(event.Phase)),
		slog.String("card", event.Key.String()),
		slog.String("outcome", string(event.Outcome)),
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}

	if event.Outcome == OutcomeFailed {
		l.logger.WarnContext(ctx, "item failed", attrs...)
		return
	}
	l.logger.DebugContext(ctx, "item processed", attrs...)
}

// OnPhaseEnd implements Observer.
func (l *LogObserver) OnPhaseEnd(ctx context.Context, s PhaseSummary) {
	attrs := []any{
		slog.String("phase", string(s.Phase)),
		slog.Int("processed", s.Processed),
		slog.Int("changed", s.Changed),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Duration("duration", s.Duration),
	}
	if s.Err != nil {
		l.logger.ErrorContext(ctx, "phase aborted", append(attrs, slog.String("error", s.Err.Error()))...)
		return
	}
	l.logger.InfoContext(ctx, "phase finished", attrs...)
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	Started   []Phase
	Items     []ItemEvent
	Summaries []PhaseSummary
}

// OnPhaseStart implements Observer.
func (r *Recorder) OnPhaseStart(_ context.Context, phase Phase, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Started = append(r.Started, phase)
}

// OnItem implements Observer.
func (r *Recorder) OnItem(_ context.Context, event ItemEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, event)
}

// OnPhaseEnd implements Observer.
func (r *Recorder) OnPhaseEnd(_ context.Context, s PhaseSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summaries = append(r.Summaries, s)
}

// ItemsFor returns the item events of one phase.
func (r *Recorder) ItemsFor(phase Phase) []ItemEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ItemEvent
	for _, e := range r.Items {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}
