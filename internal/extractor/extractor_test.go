package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"sign in phrase", errors.New("ERROR: Sign in to confirm you're not a bot"), true},
		{"429 status", errors.New("HTTP Error 429: Too Many Requests"), true},
		{"unrelated failure", errors.New("ERROR: video unavailable"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RateLimited(tt.err); got != tt.want {
				t.Errorf("RateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRateLimitError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &RateLimitError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected RateLimitError to unwrap to its inner error")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected Error to unwrap to its inner error")
	}
}

func TestFindStagedFile(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "audio.opus")
	writeEmpty(t, dir, "audio.jpg")

	got, err := findStagedFile(dir, "audio.", []string{".jpg", ".jpeg", ".png", ".webp"})
	if err != nil {
		t.Fatalf("findStagedFile: %v", err)
	}
	if filepath.Base(got) != "audio.opus" {
		t.Errorf("findStagedFile() = %q, want audio.opus", got)
	}
}

func TestFindThumbnail(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "audio.opus")
	writeEmpty(t, dir, "audio.jpg")

	got, err := findThumbnail(dir)
	if err != nil {
		t.Fatalf("findThumbnail: %v", err)
	}
	if filepath.Base(got) != "audio.jpg" {
		t.Errorf("findThumbnail() = %q, want audio.jpg", got)
	}
}

func writeEmpty(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	_ = f.Close()
}
