package media

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseProbe(t *testing.T) {
	p, err := parseProbe([]byte(`{"format":{"duration":"31.042","format_name":"mp3","size":"496128"}}`))
	if err != nil {
		t.Fatalf("parseProbe() error = %v", err)
	}
	if p.DurationSeconds != 31.042 || p.FormatName != "mp3" || p.SizeBytes != 496128 {
		t.Fatalf("parseProbe() = %+v", p)
	}

	if _, err := parseProbe([]byte(`{"format":{"duration":"N/A"}}`)); err == nil {
		t.Fatal("parseProbe() expected error for non-numeric duration")
	}
	if _, err := parseProbe([]byte(`not json`)); err == nil {
		t.Fatal("parseProbe() expected error for invalid json")
	}
}

func TestProbeMissingBinary(t *testing.T) {
	f := New("", filepath.Join(t.TempDir(), "no-ffprobe"))
	if _, err := f.Probe(context.Background(), "clip.mp3"); err == nil {
		t.Fatal("Probe() expected error for missing binary")
	}
}
