package domain

import "testing"

func TestJobType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		expected string
	}{
		{"sync_artist", JobTypeSyncArtist, "sync_artist"},
		{"import_album", JobTypeImportAlbum, "import_album"},
		{"download_track", JobTypeDownloadTrack, "download_track"},
		{"download_lyrics", JobTypeDownloadLyrics, "download_lyrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.jobType) != tt.expected {
				t.Errorf("JobType %s = %q, want %q", tt.name, tt.jobType, tt.expected)
			}
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusReserved, false},
		{JobStatusDone, true},
		{JobStatusFailed, true},
		{JobStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestThumbnailsValueScanRoundTrip(t *testing.T) {
	in := Thumbnails{
		{URL: "https://example.com/small.jpg", Width: 120, Height: 120},
		{URL: "https://example.com/large.jpg", Width: 1200, Height: 1200},
	}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var out Thumbnails
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("round trip length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("element %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestThumbnailsScanNull(t *testing.T) {
	var out Thumbnails
	if err := out.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if out != nil {
		t.Errorf("expected nil after scanning NULL, got %+v", out)
	}
}

func TestJSONMapValueScanRoundTrip(t *testing.T) {
	in := JSONMap{"artist_id": "a1", "priority": float64(5)}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var out JSONMap
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if out["artist_id"] != "a1" {
		t.Errorf("artist_id = %v, want a1", out["artist_id"])
	}
}

func TestAlbumDownloadStatusValues(t *testing.T) {
	want := []AlbumDownloadStatus{
		AlbumDownloadIdle,
		AlbumDownloadPending,
		AlbumDownloadDownloading,
		AlbumDownloadCompleted,
		AlbumDownloadFailed,
	}

	seen := map[AlbumDownloadStatus]bool{}
	for _, s := range want {
		if seen[s] {
			t.Errorf("duplicate status value %q", s)
		}
		seen[s] = true
	}
}
