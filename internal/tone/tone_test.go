package tone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"creator-scout-go/internal/logger"
)

func TestClassifySortsByScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("FormFile() error = %v", err)
		}
		w.Write([]byte(`{"labels":[{"label":"Music","score":0.2},{"label":"Speech","score":0.7},{"label":"Silence","score":0.05}]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := New(srv.URL, 5*time.Second, logger.Discard().Entry)
	labels, err := c.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	got := TopLabels(labels, 2)
	if len(got) != 2 || got[0] != "Speech" || got[1] != "Music" {
		t.Fatalf("TopLabels() = %v, want [Speech Music]", got)
	}
	if all := TopLabels(labels, 10); len(all) != 3 {
		t.Fatalf("TopLabels(10) = %v", all)
	}
}

func TestClassifyNotConfigured(t *testing.T) {
	c := New("", time.Second, logger.Discard().Entry)
	if _, err := c.Classify(context.Background(), "x.wav"); err == nil {
		t.Fatal("Classify() expected error without TONE_URL")
	}
}
