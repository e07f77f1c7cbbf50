package security

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a kind of security event.
type EventType string

const (
	EventInjectionAttempt EventType = "injection_attempt"
	EventRateLimited      EventType = "rate_limited"
	EventLoginFailure     EventType = "login_failure"
	EventAccountLocked    EventType = "account_locked"
	EventUnauthorized     EventType = "unauthorized"
	EventCSRFFailure      EventType = "csrf_failure"
	EventSuspiciousUpload EventType = "suspicious_upload"
	EventSpam             EventType = "spam"
)

// Severity grades an event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Event is one entry in the monitor.
type Event struct {
	ID        string            `json:"id"`
	Time      time.Time         `json:"time"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Path      string            `json:"path,omitempty"`
	Method    string            `json:"method,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// Sink receives every recorded event. *auditlog.Logger implements it.
type Sink interface {
	LogSecurityEvent(ctx context.Context, eventType, ip, userAgent, reason string, details map[string]string)
}

// DefaultCapacity is used when NewMonitor is given a non-positive size.
const DefaultCapacity = 1000

// Monitor keeps the most recent security events in a fixed-size ring.
// It is safe for concurrent use. Events are lost on restart; the audit
// sink is the durable record.
type Monitor struct {
	mu    sync.RWMutex
	buf   []Event
	head  int // next write position
	count int

	sink Sink
	log  *zap.Logger
	now  func() time.Time
}

// NewMonitor creates a monitor holding up to capacity events.
func NewMonitor(capacity int, sink Sink, log *zap.Logger) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		buf:  make([]Event, capacity),
		sink: sink,
		log:  log,
		now:  time.Now,
	}
}

// Capacity returns the ring size.
func (m *Monitor) Capacity() int { return len(m.buf) }

// Record stores e, filling ID and Time when unset, and forwards it to the sink.
// A nil Monitor drops the event.
func (m *Monitor) Record(ctx context.Context, e Event) Event {
	if m == nil {
		return e
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = m.now()
	}
	if e.Severity == "" {
		e.Severity = SeverityMedium
	}

	m.mu.Lock()
	m.buf[m.head] = e
	m.head = (m.head + 1) % len(m.buf)
	if m.count < len(m.buf) {
		m.count++
	}
	m.mu.Unlock()

	if m.sink != nil {
		details := make(map[string]string, len(e.Details)+4)
		for k, v := range e.Details {
			details[k] = v
		}
		details["severity"] = string(e.Severity)
		if e.Path != "" {
			details["path"] = e.Path
			details["method"] = e.Method
		}
		if e.UserID != "" {
			details["user_id"] = e.UserID
		}
		m.sink.LogSecurityEvent(ctx, string(e.Type), e.IP, e.UserAgent, e.Message, details)
	} else {
		m.log.Warn("security event",
			zap.String("type", string(e.Type)),
			zap.String("severity", string(e.Severity)),
			zap.String("ip", e.IP),
			zap.String("message", e.Message))
	}
	return e
}

// snapshot returns events newest first. Caller holds at least a read lock.
func (m *Monitor) snapshot() []Event {
	out := make([]Event, 0, m.count)
	for i := 1; i <= m.count; i++ {
		idx := (m.head - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out
}

// Recent returns up to n events, newest first. n <= 0 returns all.
func (m *Monitor) Recent(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.snapshot()
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Filter selects events. Zero-valued fields match everything.
type Filter struct {
	Type     EventType
	Severity Severity
	IP       string
	Since    time.Time
	Limit    int
}

// Filter returns matching events, newest first.
func (m *Monitor) Filter(f Filter) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.snapshot() {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Severity != "" && e.Severity != f.Severity {
			continue
		}
		if f.IP != "" && e.IP != f.IP {
			continue
		}
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// IPCount is an address and how many events it produced.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// Stats summarizes the events currently held.
type Stats struct {
	Total      int               `json:"total"`
	Capacity   int               `json:"capacity"`
	ByType     map[EventType]int `json:"by_type"`
	BySeverity map[Severity]int  `json:"by_severity"`
	TopIPs     []IPCount         `json:"top_ips"`
	LastHour   int               `json:"last_hour"`
	Oldest     *time.Time        `json:"oldest,omitempty"`
}

// topIPLimit caps Stats.TopIPs.
const topIPLimit = 10

// Stats computes counts by type, severity and source address.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	events := m.snapshot()
	m.mu.RUnlock()

	st := Stats{
		Total:      len(events),
		Capacity:   len(m.buf),
		ByType:     map[EventType]int{},
		BySeverity: map[Severity]int{},
		TopIPs:     []IPCount{},
	}
	hourAgo := m.now().Add(-time.Hour)
	ips := map[string]int{}
	for _, e := range events {
		st.ByType[e.Type]++
		st.BySeverity[e.Severity]++
		if e.IP != "" {
			ips[e.IP]++
		}
		if e.Time.After(hourAgo) {
			st.LastHour++
		}
	}
	if n := len(events); n > 0 {
		t := events[n-1].Time
		st.Oldest = &t
	}

	for ip, c := range ips {
		st.TopIPs = append(st.TopIPs, IPCount{IP: ip, Count: c})
	}
	sort.Slice(st.TopIPs, func(i, j int) bool {
		if st.TopIPs[i].Count != st.TopIPs[j].Count {
			return st.TopIPs[i].Count > st.TopIPs[j].Count
		}
		return st.TopIPs[i].IP < st.TopIPs[j].IP
	})
	if len(st.TopIPs) > topIPLimit {
		st.TopIPs = st.TopIPs[:topIPLimit]
	}
	return st
}

// Clear drops every event and returns how many were removed.
func (m *Monitor) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.count
	m.buf = make([]Event, len(m.buf))
	m.head, m.count = 0, 0
	return n
}

// Prune drops events older than cutoff and returns how many were removed.
func (m *Monitor) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.snapshot()
	keep := events[:0]
	for _, e := range events {
		if !e.Time.Before(cutoff) {
			keep = append(keep, e)
		}
	}
	removed := len(events) - len(keep)
	if removed == 0 {
		return 0
	}

	buf := make([]Event, len(m.buf))
	// keep is newest first; write oldest first so head lands after the newest.
	for i := range keep {
		buf[i] = keep[len(keep)-1-i]
	}
	m.buf = buf
	m.count = len(keep)
	m.head = m.count % len(m.buf)
	return removed
}
