package scraper

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

func newFakeApify(t *testing.T, finalStatus string, dataset string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var input map[string]any
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/acts/"+PostsActor+"/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("token") != "tok" {
			t.Errorf("unexpected start request %s %s", r.Method, r.URL)
		}
		json.NewDecoder(r.Body).Decode(&input)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"run-1","status":"READY"}}`))
	})
	mux.HandleFunc("/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		status := "RUNNING"
		if polls.Add(1) > 1 {
			status = finalStatus
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"id": "run-1", "status": status, "defaultDatasetId": "ds-1",
		}})
	})
	mux.HandleFunc("/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dataset))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &input
}

func newTestTikTok(url string) *TikTok {
	return NewTikTok(NewClient(Options{
		BaseURL:      url,
		Token:        "tok",
		PollInterval: time.Millisecond,
		Timeout:      5 * time.Second,
	}, logger.Discard().Entry))
}

func TestFetchPosts(t *testing.T) {
	srv, input := newFakeApify(t, "SUCCEEDED",
		`[{"id":"1","text":"hi","diggCount":500,"authorMeta":{"name":"alice","fans":10}},{"error":"hashtag not found"}]`)

	res, err := newTestTikTok(srv.URL).FetchPosts(context.Background(), types.Criteria{
		Hashtags:    []string{"food", "travel"},
		ResultCount: 10,
		MinLikes:    100,
	})
	if err != nil {
		t.Fatalf("FetchPosts() error = %v", err)
	}
	if res.RunID != "run-1" || res.DatasetID != "ds-1" {
		t.Fatalf("ids = %s/%s", res.RunID, res.DatasetID)
	}
	if len(res.Items) != 1 || res.Items[0].DiggCount != 500 || res.Items[0].AuthorMeta.Name != "alice" {
		t.Fatalf("items = %+v", res.Items)
	}
	if got := (*input)["resultsPerPage"]; got != float64(8) {
		t.Errorf("resultsPerPage = %v, want 8", got)
	}
	if got := (*input)["leastDiggs"]; got != float64(100) {
		t.Errorf("leastDiggs = %v, want 100", got)
	}
}

func TestFetchPostsRunFailed(t *testing.T) {
	srv, _ := newFakeApify(t, "FAILED", `[]`)
	_, err := newTestTikTok(srv.URL).FetchPosts(context.Background(), types.Criteria{Hashtags: []string{"x"}, ResultCount: 1})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Type != "failed" {
		t.Fatalf("FetchPosts() error = %v, want provider error", err)
	}
}

func TestFetchPostsOnlyErrorItems(t *testing.T) {
	srv, _ := newFakeApify(t, "SUCCEEDED", `[{"error":"rate limited by tiktok"}]`)
	_, err := newTestTikTok(srv.URL).FetchPosts(context.Background(), types.Criteria{Hashtags: []string{"x"}, ResultCount: 1})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Message != "rate limited by tiktok" {
		t.Fatalf("FetchPosts() error = %v", err)
	}
}

func TestFetchPostsSkipsMalformedItems(t *testing.T) {
	srv, _ := newFakeApify(t, "SUCCEEDED",
		`[{"id":"1","diggCount":500,"authorMeta":{"name":"alice"}},{"id":"2","diggCount":"1.2K","authorMeta":{"name":"bob"}}]`)
	res, err := newTestTikTok(srv.URL).FetchPosts(context.Background(), types.Criteria{Hashtags: []string{"x"}, ResultCount: 1})
	if err != nil {
		t.Fatalf("FetchPosts() error = %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "1" || res.Items[0].DiggCount != 500 {
		t.Fatalf("items = %+v", res.Items)
	}
}

func TestFetchPostsOnlyMalformedItems(t *testing.T) {
	srv, _ := newFakeApify(t, "SUCCEEDED", `[{"id":"2","diggCount":"1.2K"}]`)
	res, err := newTestTikTok(srv.URL).FetchPosts(context.Background(), types.Criteria{Hashtags: []string{"x"}, ResultCount: 1})
	if err == nil {
		t.Fatalf("FetchPosts() = %+v, want error", res)
	}
}

func TestStartRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`))
	}))
	defer srv.Close()

	_, err := newTestTikTok(srv.URL).FetchProfiles(context.Background(), []string{"alice"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Type != "token-not-valid" {
		t.Fatalf("FetchProfiles() error = %v", err)
	}
}

func TestPostInput(t *testing.T) {
	week := PostInput(types.Criteria{Hashtags: []string{"a"}, ResultCount: 10, TimePeriodDays: 7, MinLikes: 50, Keywords: []string{"vegan"}})
	if week["oldestPostDateUnified"] != "7 days" {
		t.Errorf("oldestPostDateUnified = %v", week["oldestPostDateUnified"])
	}
	if _, ok := week["leastDiggs"]; ok {
		t.Error("time window should replace leastDiggs")
	}
	if week["resultsPerPage"] != 15 || week["searchSection"] != "/video" {
		t.Errorf("input = %v", week)
	}

	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	abs := PostInput(types.Criteria{Hashtags: []string{"a", "b", "c"}, ResultCount: 100, OldestPost: &cutoff})
	if abs["oldestPostDateUnified"] != "2025-03-01" || abs["resultsPerPage"] != 50 {
		t.Errorf("input = %v", abs)
	}
}
