// Package catalog loads the merged SPT-3G source catalog from two CSV files
// and caches it for the life of the process.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"spt3g-viewer/internal/domain"
)

// Files names the two input tables inside a FileSource.
type Files struct {
	Base      string // positions, fluxes and spectral indices
	FitParams string // modified blackbody fit parameters, including z
}

// Store loads and caches the catalog. It is safe for concurrent use.
type Store struct {
	duck   *sql.DB
	src    domain.FileSource
	files  Files
	logger *slog.Logger

	mu        sync.Mutex
	records   *domain.RecordSet
	redshifts map[string]float64
}

var _ domain.CatalogLoader = (*Store)(nil)

// NewStore creates a Store that joins files from src using the DuckDB handle.
func NewStore(duck *sql.DB, src domain.FileSource, files Files, logger *slog.Logger) *Store {
	return &Store{duck: duck, src: src, files: files, logger: logger}
}

// Load returns the merged catalog, reading the files on first use only. A
// failed load is not cached.
func (s *Store) Load(ctx context.Context) (*domain.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records != nil {
		return s.records, nil
	}

	basePath, fitPath, cleanup, err := s.materialize(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	set, err := s.join(ctx, basePath, fitPath)
	if err != nil {
		return nil, err
	}

	s.records = set
	s.redshifts = make(map[string]float64, len(set.Records))
	for _, r := range set.Records {
		s.redshifts[r.SourceName] = r.Redshift
	}
	s.logger.Info("catalog loaded", "sources", len(set.Records), "base", s.files.Base, "fit_params", s.files.FitParams)
	return set, nil
}

// Redshift returns the photometric redshift of source from the cached
// catalog. It reports false before the first successful Load.
func (s *Store) Redshift(source string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.redshifts[source]
	return z, ok
}

// Redshifts returns a copy of the source → redshift lookup.
func (s *Store) Redshifts() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.redshifts))
	for k, v := range s.redshifts {
		out[k] = v
	}
	return out
}

type localPather interface {
	Path(name string) string
}

// materialize returns local paths for both input files, downloading them
// concurrently when the source is remote.
func (s *Store) materialize(ctx context.Context) (string, string, func(), error) {
	if lp, ok := s.src.(localPather); ok {
		return lp.Path(s.files.Base), lp.Path(s.files.FitParams), func() {}, nil
	}

	dir, err := os.MkdirTemp("", "spt3g-catalog-*")
	if err != nil {
		return "", "", nil, fmt.Errorf("create catalog temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	paths := [2]string{
		filepath.Join(dir, "base.csv"),
		filepath.Join(dir, "fit_params.csv"),
	}
	names := [2]string{s.files.Base, s.files.FitParams}

	g, gctx := errgroup.WithContext(ctx)
	for i := range names {
		g.Go(func() error {
			return s.download(gctx, names[i], paths[i])
		})
	}
	if err := g.Wait(); err != nil {
		cleanup()
		return "", "", nil, err
	}
	return paths[0], paths[1], cleanup, nil
}

func (s *Store) download(ctx context.Context, name, dst string) error {
	rc, err := s.src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	f, err := os.Create(dst) //nolint:gosec // dst is inside our temp dir
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	return f.Close()
}

// join reads both CSV files into temporary DuckDB tables and inner-joins them
// on source_name, taking from the fit-parameter table only the columns the
// base table lacks. Base file order is preserved.
func (s *Store) join(ctx context.Context, basePath, fitPath string) (*domain.RecordSet, error) {
	conn, err := s.duck.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("duckdb conn: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	for table, p := range map[string]string{"catalog_base": basePath, "catalog_fit": fitPath} {
		stmt := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true)", table, quoteLiteral(p))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(p), err)
		}
	}
	defer func() {
		for _, table := range []string{"catalog_base", "catalog_fit"} {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+table)
		}
	}()

	left, err := tableColumns(ctx, conn, "catalog_base")
	if err != nil {
		return nil, err
	}
	right, err := tableColumns(ctx, conn, "catalog_fit")
	if err != nil {
		return nil, err
	}
	key := string(domain.ColSourceName)
	if !slices.Contains(left, key) || !slices.Contains(right, key) {
		return nil, fmt.Errorf("both catalog files need a %q column", key)
	}
	extra := JoinColumns(left, right, key)

	present := domain.ColumnSet{domain.ColSourceName: true}
	selects := []string{"CAST(l." + quoteIdent(key) + " AS VARCHAR)"}
	for _, col := range domain.NumericColumns {
		name := string(col)
		switch {
		case slices.Contains(left, name):
			selects = append(selects, "TRY_CAST(l."+quoteIdent(name)+" AS DOUBLE)")
		case slices.Contains(extra, name):
			selects = append(selects, "TRY_CAST(r."+quoteIdent(name)+" AS DOUBLE)")
		default:
			selects = append(selects, "CAST(NULL AS DOUBLE)")
			s.logger.Warn("catalog column missing", "column", name)
			continue
		}
		present[col] = true
	}

	query := fmt.Sprintf(
		"SELECT %s FROM catalog_base l JOIN catalog_fit r ON l.%s = r.%s ORDER BY l.rowid",
		strings.Join(selects, ", "), quoteIdent(key), quoteIdent(key),
	)
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("join catalog: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	set := &domain.RecordSet{Columns: present}
	seen := make(map[string]struct{})
	for rows.Next() {
		var name sql.NullString
		vals := make([]sql.NullFloat64, len(domain.NumericColumns))
		dest := make([]any, 0, len(vals)+1)
		dest = append(dest, &name)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if !name.Valid || strings.TrimSpace(name.String) == "" {
			continue
		}
		if _, dup := seen[name.String]; dup {
			return nil, fmt.Errorf("duplicate source_name %q in catalog", name.String)
		}
		seen[name.String] = struct{}{}

		rec := domain.SourceRecord{SourceName: name.String}
		for i, col := range domain.NumericColumns {
			v := math.NaN()
			if vals[i].Valid {
				v = vals[i].Float64
			}
			rec.SetValue(col, v)
		}
		set.Records = append(set.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return set, nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SELECT * FROM "+table+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return cols, nil
}
