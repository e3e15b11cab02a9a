package clustering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
)

type mockStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	xaddErr error
	setKeys []string
	ttls    []time.Duration
	streams []string
	entries []map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	m.setKeys = append(m.setKeys, key)
	m.ttls = append(m.ttls, ttl)
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *mockStore) XAdd(_ context.Context, stream string, fields map[string]string) (string, error) {
	if m.xaddErr != nil {
		return "", m.xaddErr
	}
	m.streams = append(m.streams, stream)
	m.entries = append(m.entries, fields)
	return "1-0", nil
}

func TestStatus(t *testing.T) {
	s := newMockStore()
	s.data["t:clustering:abc"] = []byte(`{"status":"finished","result":[[1,2],[3]]}`)
	r := New(s, "t:", "", time.Minute)

	st, found, err := r.Status(context.Background(), "abc")
	if err != nil || !found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if st.State != cluster.Finished || len(st.Clusters) != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatus_Missing(t *testing.T) {
	_, found, err := New(newMockStore(), "t:", "", time.Minute).Status(context.Background(), "abc")
	if err != nil || found {
		t.Errorf("found = %v, err = %v", found, err)
	}
}

func TestStatus_Errors(t *testing.T) {
	s := newMockStore()
	s.data["t:clustering:bad"] = []byte(`garbage`)
	r := New(s, "t:", "", time.Minute)
	if _, found, err := r.Status(context.Background(), "bad"); err == nil || !found {
		t.Errorf("undecodable entry: found = %v, err = %v", found, err)
	}

	s.getErr = &db.Error{Op: db.OpGet, Err: errors.New("conn refused")}
	if _, _, err := r.Status(context.Background(), "abc"); err == nil {
		t.Error("expected transport error")
	}
}

func TestRequest_OnlyWinnerEnqueues(t *testing.T) {
	s := newMockStore()
	r := New(s, "t:", "", 10*time.Minute)
	req := Request{ID: "r1", Fingerprint: "fp", Query: "q=dog", Features: "audio_as"}

	requested, err := r.Request(context.Background(), req)
	if err != nil || !requested {
		t.Fatalf("first: requested = %v, err = %v", requested, err)
	}
	requested, err = r.Request(context.Background(), req)
	if err != nil || requested {
		t.Fatalf("second: requested = %v, err = %v", requested, err)
	}

	if len(s.entries) != 1 {
		t.Fatalf("stream entries = %d, want 1", len(s.entries))
	}
	if s.streams[0] != "t:clustering:requests" {
		t.Errorf("stream = %q", s.streams[0])
	}
	if e := s.entries[0]; e["fingerprint"] != "fp" || e["query"] != "q=dog" || e["features"] != "audio_as" || e["request_id"] != "r1" {
		t.Errorf("entry = %v", e)
	}
	if s.ttls[0] != 10*time.Minute {
		t.Errorf("ttl = %v", s.ttls[0])
	}

	st, err := cluster.Decode(s.data["t:clustering:fp"])
	if err != nil || st.State != cluster.Pending {
		t.Errorf("pending entry = %+v, %v", st, err)
	}
}

func TestRequest_Errors(t *testing.T) {
	s := newMockStore()
	s.setErr = errors.New("boom")
	if _, err := New(s, "t:", "", time.Minute).Request(context.Background(), Request{Fingerprint: "a"}); err == nil {
		t.Error("expected SET NX error")
	}

	s = newMockStore()
	s.xaddErr = errors.New("boom")
	if _, err := New(s, "t:", "custom", time.Minute).Request(context.Background(), Request{Fingerprint: "a"}); err == nil {
		t.Error("expected XADD error")
	}
}

func TestRequest_EnqueueFailureClearsPending(t *testing.T) {
	s := newMockStore()
	s.xaddErr = errors.New("stream unavailable")
	r := New(s, "t:", "", time.Minute)
	req := Request{ID: "r1", Fingerprint: "fp"}

	if _, err := r.Request(context.Background(), req); err == nil {
		t.Fatal("expected XADD error")
	}
	if _, found, _ := r.Status(context.Background(), "fp"); found {
		t.Fatal("pending entry left behind after failed enqueue")
	}

	s.xaddErr = nil
	requested, err := r.Request(context.Background(), req)
	if err != nil || !requested {
		t.Fatalf("retry: requested = %v, err = %v", requested, err)
	}
	if len(s.streams) != 1 {
		t.Errorf("stream entries = %d, want 1", len(s.streams))
	}
}

func TestRequest_ClearFailureReportsBoth(t *testing.T) {
	s := newMockStore()
	s.xaddErr = errors.New("stream unavailable")
	s.delErr = errors.New("del refused")

	_, err := New(s, "t:", "", time.Minute).Request(context.Background(), Request{Fingerprint: "fp"})
	if !errors.Is(err, s.xaddErr) || !errors.Is(err, s.delErr) {
		t.Errorf("err = %v, want both causes", err)
	}
}
