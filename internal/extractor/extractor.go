// Package extractor implements the audio extractor external collaborator:
// given a catalog video id, it shells out to yt-dlp to pull the audio
// stream down, embeds it at the track's final location, and optionally
// recovers a cover image.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cesargomez89/catalogd/internal/config"
	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/storage"
)

// rateLimitPhrases are substrings yt-dlp is known to emit on its stderr
// when YouTube throttles or challenges the request. This substring match is
// the core's only knowledge of the extractor's failure mode.
var rateLimitPhrases = []string{
	"sign in to confirm",
	"confirm you're not a bot",
	"429",
	"too many requests",
	"http error 403",
}

// RateLimited reports whether err's text matches one of the known
// rate-limit phrases.
func RateLimited(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Meta carries the catalog-side context the extractor needs to name and
// place the downloaded file.
type Meta struct {
	Title             string
	Album             string
	Artist            string
	Year              string
	TrackNumber       int
	CoverPathOverride string
}

// Result is what a successful Extract call hands back to the caller.
type Result struct {
	AudioPath string
	CoverPath string // empty when no cover was recovered
}

// RateLimitError signals that the cookie-reset retry was already
// attempted internally and the rate-limit signal persisted.
type RateLimitError struct{ Err error }

func (e *RateLimitError) Error() string { return fmt.Sprintf("extractor rate limited: %v", e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

// Error wraps any other extractor failure.
type Error struct{ Err error }

func (e *Error) Error() string { return fmt.Sprintf("extractor failed: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Extractor drives yt-dlp as a subprocess.
type Extractor struct {
	binPath     string
	cookiesPath string
	musicRoot   string
	coversDir   string
}

// New locates a yt-dlp binary on PATH and prepares an Extractor. It
// returns an error if no binary can be found: fail fast at startup
// rather than surfacing it job by job.
func New(cfg *config.Config) (*Extractor, error) {
	bin, err := locateBinary()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		binPath:     bin,
		cookiesPath: filepath.Join(cfg.ConfigRoot, "yt-dlp-cookies.txt"),
		musicRoot:   cfg.MusicRoot,
		coversDir:   cfg.CoversDir(),
	}, nil
}

func locateBinary() (string, error) {
	for _, name := range []string{"yt-dlp", "yt-dlp.exe"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("yt-dlp not found in PATH")
}

// Extract downloads videoID's audio into its final catalog location and,
// when possible, a cover image alongside it. On a rate-limit signal it
// resets the on-disk cookie jar and retries exactly once.
func (e *Extractor) Extract(ctx context.Context, videoID string, m Meta) (Result, error) {
	audioPath, coverPath, err := e.attempt(ctx, videoID, m)
	if err == nil {
		return Result{AudioPath: audioPath, CoverPath: coverPath}, nil
	}

	if !RateLimited(err) {
		return Result{}, &Error{Err: err}
	}

	if resetErr := e.resetCookies(); resetErr != nil {
		return Result{}, &RateLimitError{Err: err}
	}

	audioPath, coverPath, retryErr := e.attempt(ctx, videoID, m)
	if retryErr != nil {
		if RateLimited(retryErr) {
			return Result{}, &RateLimitError{Err: retryErr}
		}
		return Result{}, &Error{Err: retryErr}
	}
	return Result{AudioPath: audioPath, CoverPath: coverPath}, nil
}

// resetCookies clears the cached session so the next attempt re-derives
// fresh cookies.
func (e *Extractor) resetCookies() error {
	if err := os.Remove(e.cookiesPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// attempt runs a single yt-dlp invocation and places the resulting audio
// file at its final <music_root>/<safe(artist)>/<safe(album)>/<NN - title>
// path, returning an optional cover path staged under the covers
// directory.
func (e *Extractor) attempt(ctx context.Context, videoID string, m Meta) (audioPath, coverPath string, err error) {
	stageDir, err := os.MkdirTemp("", "catalogd-extract-*")
	if err != nil {
		return "", "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	outTmpl := filepath.Join(stageDir, "audio.%(ext)s")
	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	args := []string{
		"--extract-audio",
		"--audio-format", "best",
		"--no-playlist",
		"--newline",
		"--output", outTmpl,
	}
	if _, statErr := os.Stat(e.cookiesPath); statErr == nil {
		args = append(args, "--cookies", e.cookiesPath)
	}
	if m.CoverPathOverride == "" {
		args = append(args, "--write-thumbnail", "--convert-thumbnails", "jpg")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if runErr := cmd.Run(); runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return "", "", fmt.Errorf("%s", msg)
	}

	stagedAudio, findErr := findStagedFile(stageDir, "audio.", []string{".jpg", ".jpeg", ".png", ".webp"})
	if findErr != nil {
		return "", "", findErr
	}

	ext := filepath.Ext(stagedAudio)
	finalPath := storage.TrackPath(e.musicRoot, m.Artist, m.Album, m.TrackNumber, m.Title, ext)
	finalPath = storage.ResolveCollision(finalPath, time.Now().UnixNano())
	if err := storage.EnsureDir(filepath.Dir(finalPath)); err != nil {
		return "", "", fmt.Errorf("ensure track dir: %w", err)
	}
	if err := os.Rename(stagedAudio, finalPath); err != nil {
		return "", "", fmt.Errorf("move downloaded audio: %w", err)
	}

	if m.CoverPathOverride != "" {
		return finalPath, "", nil
	}

	stagedCover, thumbErr := findThumbnail(stageDir)
	if thumbErr != nil || stagedCover == "" {
		return finalPath, "", nil
	}
	coverDest := filepath.Join(e.coversDir, videoID+constants.ExtJPG)
	if err := storage.EnsureDir(filepath.Dir(coverDest)); err != nil {
		return finalPath, "", nil
	}
	if err := os.Rename(stagedCover, coverDest); err != nil {
		return finalPath, "", nil
	}
	return finalPath, coverDest, nil
}

// findStagedFile returns the first entry in dir matching prefix that isn't
// one of excludeExts (used to separate the audio file from a thumbnail
// yt-dlp wrote alongside it).
func findStagedFile(dir, prefix string, excludeExts []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		excluded := false
		for _, x := range excludeExts {
			if ext == x {
				excluded = true
				break
			}
		}
		if !excluded {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("downloaded audio file not found in staging dir")
}

func findThumbnail(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".webp" {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", nil
}
