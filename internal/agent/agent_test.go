package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestAgent_StartValidation(t *testing.T) {
	log := testLogger()

	tests := []struct {
		name     string
		interval time.Duration
		check    CheckFunc
	}{
		{"zero interval", 0, func(context.Context) error { return nil }},
		{"negative interval", -time.Second, func(context.Context) error { return nil }},
		{"nil check", time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New("bad", tt.interval, tt.check, log)
			err := a.Start(context.Background())
			if err == nil {
				t.Fatal("Start() succeeded, want configuration error")
			}
			var appErr *apperrors.AppError
			if !apperrors.AsAppError(err, &appErr) || appErr.Code != apperrors.ErrCodeConfiguration {
				t.Errorf("Start() error = %v, want %s", err, apperrors.ErrCodeConfiguration)
			}
			if a.Status().Running {
				t.Error("agent reports running after failed start")
			}
		})
	}
}

func TestAgent_StartStop(t *testing.T) {
	var cycles atomic.Int64
	a := New("ticker", 10*time.Millisecond, func(context.Context) error {
		cycles.Add(1)
		return nil
	}, testLogger())

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded, want already-running error")
	}

	waitFor(t, func() bool { return cycles.Load() >= 3 })

	s := a.Status()
	if !s.Running {
		t.Error("Status().Running = false, want true")
	}
	if s.LastCheckTime.IsZero() {
		t.Error("Status().LastCheckTime is zero after cycles ran")
	}

	a.Stop()
	if a.Status().Running {
		t.Error("Status().Running = true after Stop()")
	}

	// Stop on a stopped agent is a no-op.
	a.Stop()

	n := cycles.Load()
	time.Sleep(50 * time.Millisecond)
	if cycles.Load() != n {
		t.Error("cycles kept running after Stop()")
	}
}

func TestAgent_Restart(t *testing.T) {
	var cycles atomic.Int64
	a := New("restart", 10*time.Millisecond, func(context.Context) error {
		cycles.Add(1)
		return nil
	}, testLogger())

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	a.Stop()

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer a.Stop()

	n := cycles.Load()
	waitFor(t, func() bool { return cycles.Load() > n })
}

func TestAgent_CheckErrorKeepsRunning(t *testing.T) {
	checkErr := errors.New("source exploded")
	var cycles atomic.Int64
	a := New("flaky", 10*time.Millisecond, func(context.Context) error {
		cycles.Add(1)
		return checkErr
	}, testLogger())

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	waitFor(t, func() bool { return cycles.Load() >= 2 })

	s := a.Status()
	if !s.Running {
		t.Error("agent stopped after a failing cycle")
	}
	if s.LastError != checkErr.Error() {
		t.Errorf("Status().LastError = %q, want %q", s.LastError, checkErr.Error())
	}
}

func TestAgent_LastErrorClearsOnSuccess(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	a := New("recovering", time.Hour, func(context.Context) error {
		if fail.Load() {
			return errors.New("transient")
		}
		return nil
	}, testLogger())

	a.RunOnce(context.Background())
	if a.Status().LastError == "" {
		t.Fatal("LastError empty after failing cycle")
	}

	fail.Store(false)
	a.RunOnce(context.Background())
	if got := a.Status().LastError; got != "" {
		t.Errorf("LastError = %q after successful cycle, want empty", got)
	}
}

func TestAgent_NoOverlap(t *testing.T) {
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int64
	a := New("slow", time.Hour, func(context.Context) error {
		cur := inFlight.Add(1)
		if cur > maxInFlight.Load() {
			maxInFlight.Store(cur)
		}
		<-release
		inFlight.Add(-1)
		return nil
	}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.RunOnce(context.Background())
		}()
	}

	// Give the concurrent triggers time to race for the cycle lock.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := maxInFlight.Load(); got > 1 {
		t.Errorf("max in-flight cycles = %d, want at most 1", got)
	}
}

func TestAgent_StatusFunc(t *testing.T) {
	a := New("detailed", time.Hour, func(context.Context) error { return nil }, testLogger(),
		WithStatusFunc(func() map[string]interface{} {
			return map[string]interface{}{"flagged": 7}
		}))

	s := a.Status()
	if s.Status["flagged"] != 7 {
		t.Errorf("Status().Status = %v, want flagged=7", s.Status)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
