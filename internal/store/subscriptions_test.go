package store

import (
	"errors"
	"testing"

	"github.com/cesargomez89/catalogd/internal/domain"
)

func TestEnsureArtistSubscription_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	db.UpsertArtist(&domain.Artist{ID: "a1", Name: "Artist", Followed: true})

	if err := db.EnsureArtistSubscription("a1", 6); err != nil {
		t.Fatalf("EnsureArtistSubscription: %v", err)
	}
	if err := db.EnsureArtistSubscription("a1", 12); err != nil {
		t.Fatalf("EnsureArtistSubscription (second call): %v", err)
	}

	sub, err := db.GetArtistSubscription("a1")
	if err != nil {
		t.Fatalf("GetArtistSubscription: %v", err)
	}
	if sub.SyncIntervalHrs != 6 {
		t.Errorf("expected first insert's interval to stick, got %d", sub.SyncIntervalHrs)
	}
}

func TestMarkArtistSynced(t *testing.T) {
	db := newTestDB(t)
	db.UpsertArtist(&domain.Artist{ID: "a1", Name: "Artist", Followed: true})
	db.EnsureArtistSubscription("a1", 6)

	if err := db.MarkArtistSynced("a1", errors.New("catalog unreachable")); err != nil {
		t.Fatalf("MarkArtistSynced (error): %v", err)
	}
	sub, _ := db.GetArtistSubscription("a1")
	if sub.LastError == nil || *sub.LastError != "catalog unreachable" {
		t.Errorf("LastError = %v", sub.LastError)
	}
	if sub.LastSyncedAt != nil {
		t.Error("expected LastSyncedAt to remain unset after a failed sync")
	}

	if err := db.MarkArtistSynced("a1", nil); err != nil {
		t.Fatalf("MarkArtistSynced (success): %v", err)
	}
	sub, _ = db.GetArtistSubscription("a1")
	if sub.LastSyncedAt == nil {
		t.Error("expected LastSyncedAt to be set after a successful sync")
	}
	if sub.LastError != nil {
		t.Errorf("expected LastError cleared on success, got %v", sub.LastError)
	}
}

func TestEnsureAlbumSubscription_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	db.UpsertAlbum(&domain.Album{ID: "al1", Title: "Album"})
	artistID := "a1"

	if err := db.EnsureAlbumSubscription("al1", &artistID); err != nil {
		t.Fatalf("EnsureAlbumSubscription: %v", err)
	}
	if err := db.EnsureAlbumSubscription("al1", &artistID); err != nil {
		t.Fatalf("EnsureAlbumSubscription (second call): %v", err)
	}

	sub, err := db.GetAlbumSubscription("al1")
	if err != nil {
		t.Fatalf("GetAlbumSubscription: %v", err)
	}
	if sub.DownloadStatus != domain.AlbumDownloadIdle {
		t.Errorf("DownloadStatus = %s, want idle", sub.DownloadStatus)
	}
}

func TestRefreshAlbumDownloadStatus(t *testing.T) {
	db := newTestDB(t)
	db.UpsertAlbum(&domain.Album{ID: "al1", Title: "Album"})
	db.EnsureAlbumSubscription("al1", nil)

	albumID := "al1"
	db.UpsertTrack(&domain.Track{ID: "t1", Title: "One", AlbumID: &albumID, Status: domain.TrackStatusDone})

	status, err := db.RefreshAlbumDownloadStatus("al1")
	if err != nil {
		t.Fatalf("RefreshAlbumDownloadStatus: %v", err)
	}
	if status != domain.AlbumDownloadCompleted {
		t.Errorf("status = %s, want completed", status)
	}

	sub, _ := db.GetAlbumSubscription("al1")
	if sub.DownloadStatus != domain.AlbumDownloadCompleted {
		t.Errorf("persisted DownloadStatus = %s, want completed", sub.DownloadStatus)
	}
}

func TestListAlbumSubscriptionsNeedingDownload(t *testing.T) {
	db := newTestDB(t)

	db.UpsertAlbum(&domain.Album{ID: "done-album", Title: "Done"})
	db.EnsureAlbumSubscription("done-album", nil)
	db.SetAlbumDownloadStatus("done-album", domain.AlbumDownloadCompleted)

	db.UpsertAlbum(&domain.Album{ID: "pending-album", Title: "Pending"})
	db.EnsureAlbumSubscription("pending-album", nil)

	pending, err := db.ListAlbumSubscriptionsNeedingDownload()
	if err != nil {
		t.Fatalf("ListAlbumSubscriptionsNeedingDownload: %v", err)
	}
	if len(pending) != 1 || pending[0].AlbumID != "pending-album" {
		t.Errorf("expected only pending-album, got %+v", pending)
	}
}
