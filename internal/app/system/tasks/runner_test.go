package tasks_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/tasks"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func counting(name string, every time.Duration, n *atomic.Int32) tasks.Job {
	return tasks.Job{Name: name, Interval: every, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}}
}

func stopWithin(t *testing.T, r *tasks.Runner, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return r.Stop(ctx)
}

func TestRunner_RunsImmediatelyAndOnInterval(t *testing.T) {
	r := tasks.New(zap.NewNop())
	var fast, slow atomic.Int32
	r.Register(counting("fast", 20*time.Millisecond, &fast))
	r.Register(counting("slow", time.Hour, &slow))

	r.Start()
	time.Sleep(110 * time.Millisecond)
	if err := stopWithin(t, r, 5*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := fast.Load(); got < 2 {
		t.Errorf("fast runs = %d, want at least 2", got)
	}
	if got := slow.Load(); got != 1 {
		t.Errorf("slow runs = %d, want 1 (startup run only)", got)
	}
}

func TestRunner_StopCancelsJobContext(t *testing.T) {
	r := tasks.New(zap.NewNop())
	started := make(chan struct{})
	sawCancel := make(chan struct{})
	r.Register(tasks.Job{Name: "waiter", Interval: time.Hour, Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(sawCancel)
		return ctx.Err()
	}})

	r.Start()
	<-started
	if err := stopWithin(t, r, 5*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-sawCancel:
	default:
		t.Error("job context was not cancelled by Stop")
	}
}

func TestRunner_StopDeadlineNamesStragglers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := tasks.New(zap.New(core))
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	r.Register(tasks.Job{Name: "stubborn", Interval: time.Hour, Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})

	r.Start()
	<-started
	if err := stopWithin(t, r, 50*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want DeadlineExceeded", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("warn logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["jobs"]; !strings.Contains(strings.Join(toStrings(got), ","), "stubborn") {
		t.Errorf("jobs field = %v, want stubborn", got)
	}
}

func toStrings(v any) []string {
	if ss, ok := v.([]any); ok {
		out := make([]string, 0, len(ss))
		for _, s := range ss {
			out = append(out, s.(string))
		}
		return out
	}
	return nil
}

func TestRunner_RunOnce(t *testing.T) {
	r := tasks.New(zap.NewNop())
	var n atomic.Int32
	r.Register(counting("manual", time.Hour, &n))
	r.Register(tasks.Job{Name: "bounded", Interval: time.Hour, Timeout: 20 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	r.Register(tasks.Job{Name: "panics", Interval: time.Hour, Run: func(context.Context) error {
		panic("boom")
	}})

	ctx := context.Background()
	if err := r.RunOnce(ctx, "manual"); err != nil || n.Load() != 1 {
		t.Errorf("RunOnce(manual) = %v with %d runs, want nil and 1", err, n.Load())
	}
	if err := r.RunOnce(ctx, "bounded"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunOnce(bounded) = %v, want DeadlineExceeded", err)
	}
	if err := r.RunOnce(ctx, "panics"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("RunOnce(panics) = %v, want recovered panic", err)
	}
	if err := r.RunOnce(ctx, "missing"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(missing) = %v, want ErrUnknownJob", err)
	}

	if got := strings.Join(r.Names(), ","); got != "manual,bounded,panics" {
		t.Errorf("Names() = %s, want manual,bounded,panics", got)
	}
}
