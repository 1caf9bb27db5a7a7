package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"

	"spt3g-viewer/internal/app"
	"spt3g-viewer/internal/catalog"
	"spt3g-viewer/internal/config"
	"spt3g-viewer/internal/notes"
)

// runtime carries the configuration resolved by the root command.
type runtime struct {
	cfg *config.Config
}

func (rt *runtime) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withCatalog loads the catalog into a throwaway in-memory DuckDB and calls fn.
func (rt *runtime) withCatalog(ctx context.Context, fn func(*catalog.Store) error) error {
	duck, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer duck.Close() //nolint:errcheck

	src, err := app.NewFileSource(rt.cfg)
	if err != nil {
		return err
	}
	store := catalog.NewStore(duck, src, catalog.Files{
		Base:      rt.cfg.CatalogFile,
		FitParams: rt.cfg.FitParamsFile,
	}, rt.logger())
	if _, err := store.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return fn(store)
}

// withNotes opens the configured notes backend and calls fn.
func (rt *runtime) withNotes(ctx context.Context, fn func(*notes.Service) error) error {
	repo, closeRepo, err := app.OpenNotes(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer closeRepo() //nolint:errcheck
	return fn(notes.NewService(repo, rt.logger()))
}
