package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/types"
)

func TestDeliverContent(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("jobId") != "job-1" || r.URL.Query().Get("flow") != "a" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"url":"https://sheets/content"}`))
	}))
	defer srv.Close()

	c := New(Options{ContentURL: srv.URL + "/hook?flow=a", Timeout: time.Second}, logger.Discard().Entry)
	url, err := c.DeliverContent(context.Background(), "job-1", []types.ContentRecord{{VideoLink: "v1", Handle: "alice"}})
	if err != nil {
		t.Fatalf("DeliverContent() error = %v", err)
	}
	if url != "https://sheets/content" {
		t.Fatalf("url = %q", url)
	}
	if len(got) != 1 || got[0]["Video Link"] != "v1" {
		t.Fatalf("payload = %v", got)
	}
	if _, leaked := got[0]["Handle"]; leaked {
		t.Fatal("join field leaked into the payload")
	}
}

func TestDeliverRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"url":"https://sheets/creator"}`))
	}))
	defer srv.Close()

	c := New(Options{CreatorURL: srv.URL, Timeout: 5 * time.Second}, logger.Discard().Entry)
	url, err := c.DeliverCreators(context.Background(), "job-2", []types.CreatorRecord{{CreatorHandle: "@a"}})
	if err != nil || url != "https://sheets/creator" {
		t.Fatalf("DeliverCreators() = %q, %v", url, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDeliverClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Options{ContentURL: srv.URL, Timeout: 5 * time.Second}, logger.Discard().Entry)
	if _, err := c.DeliverContent(context.Background(), "job-3", nil); err == nil {
		t.Fatal("DeliverContent() error = nil")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDeliverNotConfigured(t *testing.T) {
	c := New(Options{}, logger.Discard().Entry)
	if _, err := c.DeliverCreators(context.Background(), "job-4", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("DeliverCreators() error = %v", err)
	}
}
