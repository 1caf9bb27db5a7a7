package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spt3g-viewer/internal/config"
	"spt3g-viewer/internal/middleware"
)

const (
	testBaseCSV = `source_name,spt3g_ra(deg),spt3g_dec(deg),spt3g_s220(mjy),spt3g_s150(mjy),spt3g_alpha90,spt3g_alpha220
SPT3G_A,352.0,-55.0,2.0,0.7,1.9,2.5
SPT3G_B,353.0,-54.5,5.0,1.5,2.1,3.0
`
	testFitCSV = `source_name,z
SPT3G_A,0.5
SPT3G_B,1.2
`
	testWCS = "ctype1: RA---TAN\nctype2: DEC--TAN\nnaxis1: 80\nnaxis2: 60\ncrpix1: 40.5\ncrpix2: 30.5\ncrval1: 352.5\ncrval2: -55.0\ncd1_1: -0.05\ncd2_2: 0.05\n"
)

func testConfig(t *testing.T, baseCSV string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o750))

	write := func(path, body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	write(filepath.Join(dir, "base.csv"), baseCSV)
	write(filepath.Join(dir, "fit.csv"), testFitCSV)
	write(filepath.Join(assets, "map.wcs.yaml"), testWCS)

	f, err := os.Create(filepath.Join(assets, "map.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 80, 60))))
	require.NoError(t, f.Close())

	return &config.Config{
		NotesFile:          filepath.Join(dir, "notes.json"),
		NotesBackend:       config.NotesBackendJSON,
		NotesDBPath:        filepath.Join(dir, "notes.sqlite"),
		NotesBackupDir:     filepath.Join(dir, "backups"),
		Username:           "alice",
		Password:           "pw",
		SecretKey:          "test-secret",
		LoginTTL:           time.Hour,
		BasePath:           "/",
		FilePrefix:         dir,
		AssetsDir:          assets,
		CatalogFile:        "base.csv",
		FitParamsFile:      "fit.csv",
		MapImage:           "map.png",
		MapWCS:             "map.wcs.yaml",
		DefaultColorBy:     "z",
		SessionTTL:         time.Hour,
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	a, err := New(context.Background(), Deps{
		Cfg:    cfg,
		DuckDB: duck,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	auth, err := middleware.NewAuthenticator(cfg.SecretKey, cfg.Username, cfg.Password, cfg.LoginTTL)
	require.NoError(t, err)
	token, _, err := auth.Issue(cfg.Username)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestNew_WiresCatalogAndRouter(t *testing.T) {
	cfg := testConfig(t, testBaseCSV)
	a := newTestApp(t, cfg)

	assert.Nil(t, a.Backup)
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sources?sort=z:desc", nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	rec = serve(a, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Count int `json:"count"`
		Rows  []struct {
			SourceName string `json:"source_name"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "SPT3G_B", out.Rows[0].SourceName)

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestNew_BasePathAndForwardedBy(t *testing.T) {
	cfg := testConfig(t, testBaseCSV)
	cfg.BasePath = "/spt3g/"
	cfg.RequireForwardedBy = "cdn"
	a := newTestApp(t, cfg)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/spt3g/login", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/spt3g/login", nil)
	req.Header.Set("X-Forwarded-By", "cdn")
	rec = serve(a, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/spt3g/login"`)

	req = httptest.NewRequest(http.MethodGet, "/spt3g/", nil)
	req.Header.Set("X-Forwarded-By", "cdn")
	rec = serve(a, req)
	assert.Equal(t, "/spt3g/login", rec.Header().Get("Location"))

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_SQLiteNotesWithBackup(t *testing.T) {
	cfg := testConfig(t, testBaseCSV)
	cfg.NotesBackend = config.NotesBackendSQLite
	cfg.NotesBackupSchedule = "@every 1h"
	a := newTestApp(t, cfg)

	require.NotNil(t, a.Backup)
	require.NoError(t, a.Notes.Save(context.Background(), "SPT3G_A", "lensed"))
	assert.Equal(t, "lensed", a.Notes.Get("SPT3G_A"))

	path, err := a.Backup.Snapshot(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		base   string
	}{
		{
			name: "missing colour column",
			base: "source_name,spt3g_ra(deg),spt3g_dec(deg),spt3g_s220(mjy)\nSPT3G_A,352.0,-55.0,2.0\n",
		},
		{
			name:   "default colour-by is not a colour option",
			mutate: func(c *config.Config) { c.DefaultColorBy = "ra" },
		},
		{
			name:   "bad backup schedule",
			mutate: func(c *config.Config) { c.NotesBackupSchedule = "not a schedule" },
		},
		{
			name:   "missing map image",
			mutate: func(c *config.Config) { c.MapImage = "nope.png" },
		},
		{
			name:   "missing catalog",
			mutate: func(c *config.Config) { c.CatalogFile = "nope.csv" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := tt.base
			if base == "" {
				base = testBaseCSV
			}
			cfg := testConfig(t, base)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			duck, err := sql.Open("duckdb", "")
			require.NoError(t, err)
			defer duck.Close() //nolint:errcheck

			_, err = New(context.Background(), Deps{
				Cfg:    cfg,
				DuckDB: duck,
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			assert.Error(t, err)
		})
	}
}
