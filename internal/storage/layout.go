// Package storage implements the filesystem external collaborator: the
// fixed music_root/artist/album/track layout, the safe(·) path
// sanitizer, and thumbnail selection.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
)

// Safe sanitizes an upstream name into a filesystem path component: only
// alphanumerics, spaces, and the characters in constants.SafePathChars
// survive; everything else is dropped. Trailing dots/spaces are trimmed so
// Windows-mounted volumes don't choke on them.
func Safe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(constants.SafePathChars, r):
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), ". ")
}

// ArtistDir returns <music_root>/<safe(artist)>.
func ArtistDir(musicRoot, artistName string) string {
	return filepath.Join(musicRoot, Safe(artistName))
}

// AlbumDir returns <music_root>/<safe(artist)>/<safe(album)>.
func AlbumDir(musicRoot, artistName, albumName string) string {
	return filepath.Join(ArtistDir(musicRoot, artistName), Safe(albumName))
}

// TrackFilename builds <NN - title>.<ext>: NN is the zero-padded track
// number when it is greater than 0, omitted otherwise; ext is normalized
// to include its leading dot.
func TrackFilename(trackNumber int, title, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := Safe(title)
	if trackNumber > 0 {
		name = fmt.Sprintf("%02d - %s", trackNumber, name)
	}
	return name + ext
}

// TrackPath returns the full predicted path for a track's audio file.
func TrackPath(musicRoot, artistName, albumName string, trackNumber int, title, ext string) string {
	return filepath.Join(AlbumDir(musicRoot, artistName, albumName), TrackFilename(trackNumber, title, ext))
}

// BackdropPath is where sync_artist writes an artist's largest thumbnail.
func BackdropPath(musicRoot, artistName string) string {
	return filepath.Join(ArtistDir(musicRoot, artistName), constants.BackdropFileName)
}

// CoverPath is where import_album/download_track write an album's largest
// thumbnail.
func CoverPath(musicRoot, artistName, albumName string) string {
	return filepath.Join(AlbumDir(musicRoot, artistName, albumName), constants.CoverFileName)
}

// EnsureDir creates path (and parents) if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// WriteFile writes data to path, creating its parent directory first.
func WriteFile(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, data, constants.FilePermissions)
}

// ResolveCollision returns path unchanged if nothing exists there yet;
// otherwise it appends a Unix-nanosecond suffix before the extension so
// the append-only layout never silently overwrites an unrelated file.
func ResolveCollision(path string, nowUnixNano int64) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%d%s", base, nowUnixNano, ext)
}

// PickBestThumbnail prefers the greatest known width; ties fall back to
// the last url in the list. Changing this changes which image_local path
// gets written on re-sync, a compatibility break for existing libraries.
func PickBestThumbnail(thumbs domain.Thumbnails) *domain.Thumbnail {
	if len(thumbs) == 0 {
		return nil
	}
	best := thumbs[0]
	for _, t := range thumbs[1:] {
		if t.Width >= best.Width {
			best = t
		}
	}
	return &best
}
