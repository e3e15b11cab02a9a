package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err   error
	delay time.Duration
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(Component{"search_index", &mockPinger{}}, Component{"database", &mockPinger{}})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"search_index", "database"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_DatabaseError(t *testing.T) {
	svc := New(
		Component{"search_index", &mockPinger{}},
		Component{"database", &mockPinger{err: errors.New("conn refused")}},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["search_index"] != CheckOK {
		t.Errorf("expected search_index %q, got %q", CheckOK, r.Checks["search_index"])
	}
}

func TestCheck_AllDown(t *testing.T) {
	down := errors.New("down")
	svc := New(Component{"search_index", &mockPinger{err: down}}, Component{"database", &mockPinger{err: down}})
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(Component{"search_index", &mockPinger{delay: time.Second}}).WithTimeout(10 * time.Millisecond)
	r := svc.Check(context.Background())
	if r.Checks["search_index"] != CheckError {
		t.Errorf("slow component should fail, got %q", r.Checks["search_index"])
	}
}

func TestCheck_NoComponents(t *testing.T) {
	if r := New().Check(context.Background()); r.Status != Healthy || len(r.Checks) != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
}
