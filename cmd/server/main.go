// Command server boots the orchestrator: it opens the catalog database,
// wires the external collaborators (catalog, lyrics, extractor), starts a
// pool of workers and the scheduler, and exposes a small unauthenticated
// operability surface for health and queue-depth visibility.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/catalogd/internal/catalog"
	"github.com/cesargomez89/catalogd/internal/config"
	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/extractor"
	"github.com/cesargomez89/catalogd/internal/handlers"
	"github.com/cesargomez89/catalogd/internal/logger"
	"github.com/cesargomez89/catalogd/internal/lyrics"
	"github.com/cesargomez89/catalogd/internal/scheduler"
	"github.com/cesargomez89/catalogd/internal/store"
	"github.com/cesargomez89/catalogd/internal/worker"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log := appLogger.Logger

	if err := bootstrapDirs(cfg); err != nil {
		log.Error("failed to bootstrap directories", "error", err)
		os.Exit(1)
	}
	if err := ensureSecrets(cfg); err != nil {
		log.Error("failed to bootstrap secrets file", "error", err)
		os.Exit(1)
	}

	db, err := store.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		log.Error("failed to open catalog database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	config.ApplySettingsFile(db, cfg.ConfigRoot, log)

	catalogClient, err := catalog.NewCachedClient(
		catalog.NewRestyClient(cfg.CatalogBaseURL),
		db,
		constants.CatalogLRUSize,
		constants.CatalogCacheTTL,
	)
	if err != nil {
		log.Error("failed to build catalog client", "error", err)
		os.Exit(1)
	}

	lyricsClient := lyrics.NewRestyClient(cfg.LyricsBaseURL)

	ext, err := extractor.New(cfg)
	if err != nil {
		log.Error("failed to locate audio extractor", "error", err)
		os.Exit(1)
	}

	dispatcher := handlers.NewDispatcher()
	dispatcher.Register(domain.JobTypeSyncArtist, handlers.NewSyncArtistHandler(db, catalogClient, cfg.MusicRoot))
	dispatcher.Register(domain.JobTypeImportAlbum, handlers.NewImportAlbumHandler(db, catalogClient, cfg.MusicRoot))
	dispatcher.Register(domain.JobTypeDownloadTrack, handlers.NewDownloadTrackHandler(db, ext, cfg.MusicRoot))
	dispatcher.Register(domain.JobTypeDownloadLyrics, handlers.NewDownloadLyricsHandler(db, lyricsClient))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerPoolSize; i++ {
		w := worker.New(db, dispatcher, cfg, log)
		if cfg.WorkerName != "" && cfg.WorkerPoolSize > 1 {
			w.Name = fmt.Sprintf("%s-%d", cfg.WorkerName, i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	sched := scheduler.New(db, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthzHandler(db))
	r.Get("/stats/jobs", jobStatsHandler(db))

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	cancel()
	wg.Wait()
	log.Info("shutdown complete")
}

// bootstrapDirs creates every well-known directory under ConfigRoot and
// MusicRoot the first time the orchestrator runs against a fresh
// installation.
func bootstrapDirs(cfg *config.Config) error {
	dirs := []string{
		cfg.MusicRoot,
		cfg.ConfigRoot,
		cfg.CacheDir(),
		cfg.CoversDir(),
		cfg.LyricsStageDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return err
		}
	}
	return nil
}

type secretsFile struct {
	JWTSecret string `json:"jwt_secret"`
}

// ensureSecrets writes a fresh secrets.json with a 64-byte URL-safe
// random jwt_secret the first time ConfigRoot is populated; a
// pre-existing file is left untouched.
func ensureSecrets(cfg *config.Config) error {
	path := cfg.SecretsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	secret := secretsFile{JWTSecret: base64.URLEncoding.EncodeToString(raw)}

	data, err := json.MarshalIndent(secret, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, constants.SecretsFilePerms)
}

func healthzHandler(db *store.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var one int
		if err := db.Get(&one, "SELECT 1"); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func jobStatsHandler(db *store.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetJobStats()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
