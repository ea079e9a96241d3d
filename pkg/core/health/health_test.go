package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthy(name string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
}

func withStatus(name string, status Status) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		return CheckResult{Status: status, Message: string(status)}
	})
}

func TestNewChecker(t *testing.T) {
	checker := NewChecker("registry", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "3 entities"}
	})

	assert.Equal(t, "registry", checker.Name())
	result := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, "3 entities", result.Message)
}

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		expected Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Checker{healthy("a"), healthy("b")}, StatusHealthy},
		{"degraded", []Checker{healthy("a"), withStatus("b", StatusDegraded)}, StatusDegraded},
		{"unknown counts as degraded", []Checker{withStatus("a", "")}, StatusDegraded},
		{"unhealthy wins", []Checker{withStatus("a", StatusDegraded), withStatus("b", StatusUnhealthy)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry("ecsq", "1.0.0")
			for _, c := range tt.checkers {
				r.Register(c)
			}

			report := r.Check(context.Background())
			assert.Equal(t, tt.expected, report.Status)
			assert.Len(t, report.Checks, len(tt.checkers))
			assert.Equal(t, "ecsq", report.Service)
		})
	}
}

func TestRegistry_CheckFillsResult(t *testing.T) {
	r := NewRegistry("ecsq", "1.0.0")
	r.RegisterFunc("zeta", func(ctx context.Context) CheckResult {
		time.Sleep(time.Millisecond)
		return CheckResult{Status: StatusHealthy}
	})
	r.RegisterFunc("alpha", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	report := r.Check(context.Background())
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "alpha", report.Checks[0].Name)
	assert.Equal(t, "zeta", report.Checks[1].Name)
	assert.GreaterOrEqual(t, report.Checks[1].Duration, time.Millisecond)
	assert.False(t, report.Checks[0].Timestamp.IsZero())
}

func TestRegistry_ChecksRunConcurrently(t *testing.T) {
	r := NewRegistry("ecsq", "1.0.0")
	var running, peak atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		r.RegisterFunc(name, func(ctx context.Context) CheckResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return CheckResult{Status: StatusHealthy}
		})
	}

	r.Check(context.Background())
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry("ecsq", "1.0.0")
	r.Register(withStatus("bad", StatusUnhealthy))
	assert.Equal(t, StatusUnhealthy, r.Check(context.Background()).Status)

	r.Unregister("bad")
	assert.Equal(t, StatusHealthy, r.Check(context.Background()).Status)
}

func TestRegistry_CheckWithTimeout(t *testing.T) {
	r := NewRegistry("ecsq", "1.0.0")
	r.RegisterFunc("slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Message: ctx.Err().Error()}
	})

	report := r.CheckWithTimeout(10 * time.Millisecond)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks[0].Message)
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry("ecsq", "1.0.0")
	r.Register(healthy("registry"))

	rec := httptest.NewRecorder()
	r.Handler(time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, "registry", report.Checks[0].Name)

	r.Register(withStatus("store", StatusUnhealthy))
	rec = httptest.NewRecorder()
	r.Handler(time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReport_String(t *testing.T) {
	report := &Report{Service: "ecsq", Status: StatusHealthy, Uptime: 90 * time.Second}
	assert.Equal(t, "Service: ecsq, Status: healthy, Uptime: 1m30s, Checks: 0", report.String())
}
