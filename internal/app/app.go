// Package app wires configuration, storage and handlers into the running
// catalog viewer.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"spt3g-viewer/internal/api"
	"spt3g-viewer/internal/catalog"
	"spt3g-viewer/internal/config"
	internaldb "spt3g-viewer/internal/db"
	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/filter"
	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/notes"
	"spt3g-viewer/internal/skymap"
	"spt3g-viewer/internal/ui"
	"spt3g-viewer/internal/viewstate"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	DuckDB *sql.DB
	Logger *slog.Logger
}

// App is the fully wired viewer.
type App struct {
	Catalog *catalog.Store
	Notes   *notes.Service
	Backup  *notes.Backup // nil when backups are disabled
	Router  http.Handler

	closers []func() error
}

// New loads the catalog, opens the notes store and builds the router. The
// catalog is loaded eagerly so that a missing colour-by column fails here
// instead of on the first page view.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	a := &App{}

	src, err := NewFileSource(cfg)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog.NewStore(deps.DuckDB, src, catalog.Files{
		Base:      cfg.CatalogFile,
		FitParams: cfg.FitParamsFile,
	}, deps.Logger.With("component", "catalog"))

	records, err := a.Catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	colorBy := filter.ResolveColumn(cfg.DefaultColorBy)
	if err := skymap.ValidateColorOptions(records.Columns, colorBy); err != nil {
		return nil, fmt.Errorf("colour options: %w", err)
	}
	deps.Logger.Info("catalog loaded", "sources", len(records.Records))

	repo, closeNotes, err := OpenNotes(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeNotes)
	a.Notes = notes.NewService(repo, deps.Logger.With("component", "notes"))

	if cfg.NotesBackupSchedule != "" {
		a.Backup = notes.NewBackup(repo, cfg.NotesBackupDir, deps.Logger.With("component", "notes-backup"))
		if err := a.Backup.Schedule(cfg.NotesBackupSchedule); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Backup.Start()
		a.closers = append(a.closers, func() error {
			a.Backup.Stop()
			return nil
		})
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	auth, err := middleware.NewAuthenticator(cfg.SecretKey, cfg.Username, cfg.Password, cfg.LoginTTL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("authenticator: %w", err)
	}

	uiHandler := ui.NewHandler(
		a.Catalog,
		a.Notes,
		renderer,
		viewstate.NewStore(cfg.SessionTTL, colorBy),
		auth,
		cfg.AssetsDir,
		cfg.BasePath,
		cfg.IsProduction(),
		deps.Logger.With("component", "ui"),
	)
	apiHandler := api.NewHandler(a.Catalog, a.Notes, renderer, colorBy, deps.Logger.With("component", "api"))
	a.Router = NewRouter(cfg, uiHandler, apiHandler, auth)
	return a, nil
}

// Close stops background work and releases the notes store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewFileSource returns the S3 source when a bucket is configured and the
// local catalog directory otherwise.
func NewFileSource(cfg *config.Config) (domain.FileSource, error) {
	if !cfg.CatalogS3.Enabled() {
		return catalog.LocalSource{Dir: cfg.CatalogDir()}, nil
	}
	s3src, err := catalog.NewS3Source(catalog.S3Options{
		Endpoint: cfg.CatalogS3.Endpoint,
		Region:   cfg.CatalogS3.Region,
		KeyID:    cfg.CatalogS3.KeyID,
		Secret:   cfg.CatalogS3.Secret,
		Bucket:   cfg.CatalogS3.Bucket,
		Prefix:   cfg.CatalogS3.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}
	return s3src, nil
}

// OpenNotes opens the configured notes backend. The returned func releases
// it.
func OpenNotes(ctx context.Context, cfg *config.Config) (domain.NotesRepository, func() error, error) {
	noop := func() error { return nil }
	if cfg.NotesBackend != config.NotesBackendSQLite {
		repo, err := notes.OpenJSONFile(cfg.NotesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load notes: %w", err)
		}
		return repo, noop, nil
	}

	db, err := internaldb.OpenMigrated(cfg.NotesDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("notes database: %w", err)
	}
	repo, err := notes.OpenSQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("load notes: %w", err)
	}
	return repo, db.Close, nil
}

func newRenderer(cfg *config.Config) (*skymap.Renderer, error) {
	bgURL := cfg.BasePath + "assets/" + cfg.MapImage
	bg, err := skymap.LoadBackground(cfg.AssetPath(cfg.MapImage), bgURL)
	if err != nil {
		return nil, err
	}
	cal, err := skymap.LoadCalibration(cfg.AssetPath(cfg.MapWCS))
	if err != nil {
		return nil, err
	}
	wcs, err := skymap.NewWCS(cal, bg.Width, bg.Height)
	if err != nil {
		return nil, fmt.Errorf("map projection: %w", err)
	}
	return skymap.NewRenderer(wcs, bg), nil
}
