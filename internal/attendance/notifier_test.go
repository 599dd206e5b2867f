package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPresentByFace(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 15, 0, 0, time.FixedZone("X", 3600))
	ev := PresentByFace("S1", at)
	if ev.Status != "present" || ev.Method != "face" || ev.StudentID != "S1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Timestamp.Location() != time.UTC || !ev.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))
	if err := n.Notify(context.Background(), PresentByFace("S7", time.Now())); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("attendance").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries", len(entries))
	}
	if entries[0].ContextMap()["student_id"] != "S7" {
		t.Errorf("fields = %v", entries[0].ContextMap())
	}
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Event
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return r.err
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a down")}
	b := &recordingNotifier{}
	err := MultiNotifier{a, NopNotifier{}, b}.Notify(context.Background(), PresentByFace("S1", time.Now()))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Error("every notifier should receive the event")
	}
}

func TestHTTPNotifier(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewHTTPNotifier(HTTPConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer k"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), PresentByFace("S1", time.Now())); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(got) != 1 || got[0].StudentID != "S1" || got[0].Method != "face" {
		t.Errorf("server received %+v", got)
	}
}

func TestHTTPNotifier_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := NewHTTPNotifier(HTTPConfig{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), PresentByFace("S1", time.Now())); err == nil {
		t.Fatal("expected error for 500")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestNewHTTPNotifier_RequiresURL(t *testing.T) {
	if _, err := NewHTTPNotifier(HTTPConfig{}); err == nil {
		t.Error("expected error")
	}
}
