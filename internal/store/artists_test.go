package store

import (
	"testing"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

func TestUpsertAndGetArtist(t *testing.T) {
	db := newTestDB(t)

	a := &domain.Artist{ID: "a1", Name: "Boards of Canada", Followed: true}
	if err := db.UpsertArtist(a); err != nil {
		t.Fatalf("UpsertArtist: %v", err)
	}

	got, err := db.GetArtist("a1")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if got == nil || got.Name != "Boards of Canada" {
		t.Fatalf("GetArtist = %+v", got)
	}

	a.Name = "Boards of Canada (renamed)"
	if err := db.UpsertArtist(a); err != nil {
		t.Fatalf("UpsertArtist (update): %v", err)
	}
	got, _ = db.GetArtist("a1")
	if got.Name != "Boards of Canada (renamed)" {
		t.Errorf("expected upsert to update name, got %q", got.Name)
	}
}

func TestListFollowedArtists(t *testing.T) {
	db := newTestDB(t)

	db.UpsertArtist(&domain.Artist{ID: "a1", Name: "Followed", Followed: true})
	db.UpsertArtist(&domain.Artist{ID: "a2", Name: "Not followed", Followed: false})

	followed, err := db.ListFollowedArtists()
	if err != nil {
		t.Fatalf("ListFollowedArtists: %v", err)
	}
	if len(followed) != 1 || followed[0].ID != "a1" {
		t.Errorf("ListFollowedArtists = %+v, want only a1", followed)
	}
}

func TestArtistsNeedingSync(t *testing.T) {
	db := newTestDB(t)

	db.UpsertArtist(&domain.Artist{ID: "never-synced", Name: "Never", Followed: true})
	db.UpsertArtist(&domain.Artist{ID: "recently-synced", Name: "Recent", Followed: true})
	db.UpsertArtist(&domain.Artist{ID: "stale", Name: "Stale", Followed: true})
	db.UpsertArtist(&domain.Artist{ID: "not-followed", Name: "Skip", Followed: false})

	if err := db.EnsureArtistSubscription("recently-synced", 6); err != nil {
		t.Fatalf("EnsureArtistSubscription: %v", err)
	}
	if err := db.MarkArtistSynced("recently-synced", nil); err != nil {
		t.Fatalf("MarkArtistSynced: %v", err)
	}

	if err := db.EnsureArtistSubscription("stale", 6); err != nil {
		t.Fatalf("EnsureArtistSubscription: %v", err)
	}
	old := time.Now().Add(-7 * time.Hour)
	if _, err := db.Exec("UPDATE artist_subscriptions SET last_synced_at = ? WHERE artist_id = ?", old, "stale"); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	needing, err := db.ArtistsNeedingSync(6)
	if err != nil {
		t.Fatalf("ArtistsNeedingSync: %v", err)
	}

	ids := map[string]bool{}
	for _, a := range needing {
		ids[a.ID] = true
	}
	if !ids["never-synced"] {
		t.Error("expected never-synced artist (no subscription) to need sync")
	}
	if !ids["stale"] {
		t.Error("expected stale artist to need sync")
	}
	if ids["recently-synced"] {
		t.Error("did not expect recently-synced artist to need sync")
	}
	if ids["not-followed"] {
		t.Error("did not expect unfollowed artist to need sync")
	}
}
