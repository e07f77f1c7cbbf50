package security

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
	detail []map[string]string
}

func (s *recordingSink) LogSecurityEvent(_ context.Context, eventType, ip, ua, reason string, details map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
	s.detail = append(s.detail, details)
}

func newTestMonitor(capacity int, sink Sink) (*Monitor, *time.Time) {
	m := NewMonitor(capacity, sink, zap.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMonitor_RecordFillsDefaults(t *testing.T) {
	sink := &recordingSink{}
	m, now := newTestMonitor(10, sink)

	e := m.Record(context.Background(), Event{Type: EventSpam, IP: "1.1.1.1", Path: "/api/contact", Method: "POST"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, *now, e.Time)
	assert.Equal(t, SeverityMedium, e.Severity)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "spam", sink.events[0])
	assert.Equal(t, "medium", sink.detail[0]["severity"])
	assert.Equal(t, "/api/contact", sink.detail[0]["path"])
}

func TestMonitor_RingKeepsNewest(t *testing.T) {
	m, _ := newTestMonitor(3, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.Record(ctx, Event{Type: EventInjectionAttempt, Message: fmt.Sprint(i)})
	}

	got := m.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].Message)
	assert.Equal(t, "3", got[1].Message)
	assert.Equal(t, "2", got[2].Message)

	assert.Len(t, m.Recent(2), 2)
}

func TestMonitor_Filter(t *testing.T) {
	m, now := newTestMonitor(10, nil)
	ctx := context.Background()
	base := *now
	m.Record(ctx, Event{Type: EventRateLimited, Severity: SeverityMedium, IP: "a", Time: base.Add(-2 * time.Hour)})
	m.Record(ctx, Event{Type: EventInjectionAttempt, Severity: SeverityHigh, IP: "b", Time: base.Add(-time.Minute)})
	m.Record(ctx, Event{Type: EventInjectionAttempt, Severity: SeverityHigh, IP: "a", Time: base})

	assert.Len(t, m.Filter(Filter{Type: EventInjectionAttempt}), 2)
	assert.Len(t, m.Filter(Filter{Severity: SeverityMedium}), 1)
	assert.Len(t, m.Filter(Filter{IP: "a"}), 2)
	assert.Len(t, m.Filter(Filter{Since: base.Add(-time.Hour)}), 2)
	assert.Len(t, m.Filter(Filter{Limit: 1}), 1)
}

func TestMonitor_Stats(t *testing.T) {
	m, now := newTestMonitor(10, nil)
	ctx := context.Background()
	m.Record(ctx, Event{Type: EventRateLimited, IP: "10.0.0.1", Time: now.Add(-3 * time.Hour)})
	m.Record(ctx, Event{Type: EventInjectionAttempt, Severity: SeverityHigh, IP: "10.0.0.2"})
	m.Record(ctx, Event{Type: EventInjectionAttempt, Severity: SeverityHigh, IP: "10.0.0.2"})

	st := m.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 10, st.Capacity)
	assert.Equal(t, 2, st.ByType[EventInjectionAttempt])
	assert.Equal(t, 1, st.ByType[EventRateLimited])
	assert.Equal(t, 2, st.BySeverity[SeverityHigh])
	assert.Equal(t, 2, st.LastHour)
	require.Len(t, st.TopIPs, 2)
	assert.Equal(t, IPCount{IP: "10.0.0.2", Count: 2}, st.TopIPs[0])
	require.NotNil(t, st.Oldest)
	assert.Equal(t, now.Add(-3*time.Hour), *st.Oldest)
}

func TestMonitor_ClearAndPrune(t *testing.T) {
	m, now := newTestMonitor(4, nil)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		m.Record(ctx, Event{Type: EventSpam, Message: fmt.Sprint(i), Time: now.Add(time.Duration(i-6) * 24 * time.Hour)})
	}

	removed := m.Prune(now.Add(-3 * 24 * time.Hour))
	assert.Equal(t, 1, removed)
	got := m.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "5", got[0].Message)

	// The ring still accepts writes after pruning.
	m.Record(ctx, Event{Type: EventSpam, Message: "new"})
	m.Record(ctx, Event{Type: EventSpam, Message: "newer"})
	got = m.Recent(0)
	require.Len(t, got, 4)
	assert.Equal(t, "newer", got[0].Message)
	assert.Equal(t, "new", got[1].Message)
	assert.Equal(t, "4", got[3].Message)

	assert.Equal(t, 4, m.Clear())
	assert.Empty(t, m.Recent(0))
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor(50, nil, zap.NewNop())
	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Record(ctx, Event{Type: EventRateLimited, IP: "x"})
				_ = m.Stats()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, m.Recent(0), 50)
}
