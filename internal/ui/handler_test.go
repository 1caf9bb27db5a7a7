package ui

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/notes"
	"spt3g-viewer/internal/skymap"
	"spt3g-viewer/internal/viewstate"
)

type fakeCatalog struct {
	set domain.RecordSet
}

func (f *fakeCatalog) Load(context.Context) (*domain.RecordSet, error) { return &f.set, nil }

func (f *fakeCatalog) Redshift(source string) (float64, bool) {
	for _, r := range f.set.Records {
		if r.SourceName == source {
			return r.Redshift, true
		}
	}
	return 0, false
}

// gatedCatalog blocks the first Load after arm until release is closed.
type gatedCatalog struct {
	*fakeCatalog

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCatalog) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedCatalog) Load(ctx context.Context) (*domain.RecordSet, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()
	if armed {
		close(entered)
		<-release
	}
	return g.fakeCatalog.Load(ctx)
}

// countingCatalog counts catalog loads.
type countingCatalog struct {
	*fakeCatalog
	loads atomic.Int64
}

func (c *countingCatalog) Load(ctx context.Context) (*domain.RecordSet, error) {
	c.loads.Add(1)
	return c.fakeCatalog.Load(ctx)
}

type linearProjector struct{}

func (linearProjector) Project(ra, dec float64) (float64, float64) { return ra * 10, dec * 10 }

func sampleCatalog() *fakeCatalog {
	cols := domain.ColumnSet{}
	for _, c := range domain.NumericColumns {
		cols[c] = true
	}
	cols[domain.ColSourceName] = true
	return &fakeCatalog{set: domain.RecordSet{
		Columns: cols,
		Records: []domain.SourceRecord{
			{SourceName: "A", Redshift: 0.5, RA: 1, Dec: 1, S220: 10, S150: 5, Alpha90: math.NaN(), Alpha220: 1},
			{SourceName: "B", Redshift: 1.2, RA: 2, Dec: 2, S220: 20, S150: 6, Alpha90: 2, Alpha220: 2},
			{SourceName: "C", Redshift: 2.0, RA: 3, Dec: 3, S220: 5, S150: 7, Alpha90: 3, Alpha220: 3},
		},
	}}
}

type testEnv struct {
	srv       *httptest.Server
	client    *http.Client
	notesPath string
	assetsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, sampleCatalog())
}

func newTestEnvWith(t *testing.T, catalog CatalogReader) *testEnv {
	t.Helper()
	notesPath := filepath.Join(t.TempDir(), "notes.json")
	repo, err := notes.OpenJSONFile(notesPath)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth, err := middleware.NewAuthenticator("test-secret", "alice", "pw", time.Hour)
	require.NoError(t, err)
	renderer := skymap.NewRenderer(linearProjector{}, skymap.Background{URL: "/assets/map.jpg", Width: 100, Height: 100})
	assetsDir := t.TempDir()

	h := NewHandler(
		catalog,
		notes.NewService(repo, logger),
		renderer,
		viewstate.NewStore(time.Hour, domain.ColRedshift),
		auth,
		assetsDir,
		"/",
		false,
		logger,
	)
	r := chi.NewRouter()
	MountRoutes(r, h, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, notesPath: notesPath, assetsDir: assetsDir}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values, header http.Header) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if !form.Has("csrf_token") {
		form.Set("csrf_token", e.csrfToken(t))
	}
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.get(t, "/login")
	resp, _ := e.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHome_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLogin_RejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/login")
	resp, body := env.post(t, "/login", url.Values{"username": {"alice"}, "password": {"nope"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")
}

func TestLogin_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/login")
	resp, _ := env.post(t, "/login", url.Values{"username": {"alice"}, "password": {"pw"}, "csrf_token": {"wrong"}}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogout_ClearsLogin(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	resp, _ := env.post(t, "/logout", nil, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestHome_ShowsAllRowsByDefault(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Showing 3 result(s)")
	assert.Contains(t, body, `id="sky-map"`)
	assert.Contains(t, body, `data-theme="dark"`)
	for _, name := range []string{"A", "B", "C"} {
		assert.Contains(t, body, `source=`+name+`"`)
	}
}

func TestHome_FilterSubmissionIsRemembered(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, body := env.get(t, "/?search=&z_min=0.4&z_max=1.5")
	assert.Contains(t, body, "Showing 2 result(s)")
	assert.NotContains(t, body, `source=C"`)

	_, body = env.get(t, "/")
	assert.Contains(t, body, "Showing 2 result(s)")
	assert.Contains(t, body, `value="0.4"`)
}

func TestHome_InvalidRangeKeepsCriteria(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/?search=&z_min=2&z_max=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "min &gt; max")
	assert.Contains(t, body, "Showing 3 result(s)")
}

func TestHome_SortLinkKeepsFilters(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.get(t, "/?search=&z_min=0.4&z_max=1.5")
	_, body := env.get(t, "/?sort="+url.QueryEscape("spt3g_s220(mjy):desc"))
	assert.Contains(t, body, "Showing 2 result(s)")
	assert.Less(t, strings.Index(body, `source=B"`), strings.Index(body, `source=A"`))
}

func TestCatalogFragment_PatchesAndCommits(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/fragments/catalog?search=b")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="result-count"`)
	assert.Contains(t, body, "Showing 1 result(s)")
	assert.Contains(t, body, `id="catalog-table"`)
	assert.Contains(t, body, `id="sky-map"`)
	assert.NotContains(t, body, "<html")

	_, body = env.get(t, "/")
	assert.Contains(t, body, "Showing 1 result(s)")
}

func TestCatalogFragment_ColorByOnlyPatchesMap(t *testing.T) {
	cat := &countingCatalog{fakeCatalog: sampleCatalog()}
	env := newTestEnvWith(t, cat)
	env.login(t)

	_, body := env.get(t, "/?search=&z_min=0.4&z_max=1.5")
	require.Contains(t, body, "Showing 2 result(s)")
	loads := cat.loads.Load()

	// The whole form is submitted; only the colour column differs.
	resp, body := env.get(t, "/fragments/catalog?search=&z_min=0.4&z_max=1.5&color_by=s220")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="sky-map"`)
	assert.NotContains(t, body, `id="catalog-table"`)
	assert.NotContains(t, body, `id="result-count"`)
	assert.Equal(t, loads, cat.loads.Load(), "rows are reused when the criteria are unchanged")

	_, body = env.get(t, "/")
	assert.Contains(t, body, "Showing 2 result(s)")
}

func TestCatalogFragment_SortOnlyPatchesTable(t *testing.T) {
	env := newTestEnvWith(t, sampleCatalog())
	env.login(t)

	resp, body := env.get(t, "/fragments/catalog?sort="+url.QueryEscape("z:desc"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="catalog-table"`)
	assert.NotContains(t, body, `id="sky-map"`)
	assert.Less(t, strings.Index(body, `source=C"`), strings.Index(body, `source=A"`))
}

func TestCatalogFragment_UnchangedInputPatchesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/fragments/catalog?search=")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="filter-error"`)
	assert.NotContains(t, body, `id="catalog-table"`)
	assert.NotContains(t, body, `id="sky-map"`)
}

func TestCatalogFragment_SupersededRequestIsDropped(t *testing.T) {
	cat := &gatedCatalog{fakeCatalog: sampleCatalog()}
	env := newTestEnvWith(t, cat)
	env.login(t)
	env.get(t, "/")

	type result struct {
		status int
		err    error
	}
	cat.arm()
	older := make(chan result, 1)
	go func() {
		resp, err := env.client.Get(env.srv.URL + "/fragments/catalog?search=a")
		if err != nil {
			older <- result{err: err}
			return
		}
		_ = resp.Body.Close()
		older <- result{status: resp.StatusCode}
	}()
	<-cat.entered

	resp, body := env.get(t, "/fragments/catalog?search=c")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Showing 1 result(s)")
	assert.Contains(t, body, `source=C"`)

	close(cat.release)
	res := <-older
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusNoContent, res.status)

	_, body = env.get(t, "/")
	assert.Contains(t, body, `value="c"`)
	assert.Contains(t, body, `source=C"`)
	assert.NotContains(t, body, `source=A"`)
}

func TestCatalogFragment_InvalidInputOnlyReportsError(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, body := env.get(t, "/fragments/catalog?search=&s220_min=30&s220_max=1")
	assert.Contains(t, body, `id="filter-error"`)
	assert.NotContains(t, body, `id="catalog-table"`)

	_, body = env.get(t, "/")
	assert.Contains(t, body, "Showing 3 result(s)")
}

func TestSelect_RedirectsToViewer(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.get(t, "/select?via=point&source=B")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/viewer/B", resp.Header.Get("Location"))

	_, body := env.get(t, "/")
	assert.Contains(t, body, `class="selected"`)
	assert.Contains(t, body, `class="highlight"`)
}

func TestSelect_UnknownSourceIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.get(t, "/select?via=row&source=nope")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := env.get(t, "/")
	assert.NotContains(t, body, `class="highlight"`)
}

func TestViewer_RendersPanels(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/viewer/B")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Photometric redshift: 1.2000")
	assert.Contains(t, body, "/assets/convolved/mk/B_overlay.png")
	assert.Contains(t, body, "/assets/spt3g220/B_overlay.png")
	assert.Contains(t, body, "/assets/corner_plots/B_corner.png")
	assert.Contains(t, body, "Cutout Information")
	assert.NotContains(t, body, `class="lightbox"`)
	assert.Contains(t, body, "Unsaved changes")
	assert.Contains(t, body, "data-show")
}

func TestViewer_UnknownSourceIs404(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.get(t, "/viewer/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewer_ResolutionAndLightbox(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, body := env.get(t, "/viewer/B?res=native")
	assert.Contains(t, body, "/assets/native/spire250/B_overlay.png")

	_, body = env.get(t, "/viewer/B?enlarge=spire250")
	assert.Contains(t, body, `class="lightbox"`)
	assert.Contains(t, body, `src="/assets/native/spire250/B_overlay.png" alt="Enlarged cutout"`)

	_, body = env.get(t, "/viewer/B?close=1")
	assert.NotContains(t, body, `class="lightbox"`)
}

func TestSaveNotes_DatastarFragment(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	header := http.Header{"Datastar-Request": {"true"}}
	resp, body := env.post(t, "/viewer/B/notes", url.Values{"note": {"hello"}}, header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="save-status"`)
	assert.Contains(t, body, "Notes saved for B")

	raw, err := os.ReadFile(env.notesPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"B": "hello"}`, string(raw))

	_, body = env.get(t, "/viewer/B")
	assert.Contains(t, body, ">hello</textarea>")
	_, body = env.get(t, "/")
	assert.Contains(t, body, "✓")
}

func TestSaveNotes_FormPostRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/viewer/A/notes", url.Values{"note": {"x"}}, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/viewer/A", resp.Header.Get("Location"))
}

func TestSaveNotes_UnknownSourceIs404(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	header := http.Header{"Datastar-Request": {"true"}}
	resp, _ := env.post(t, "/viewer/NOPE/notes", url.Values{"note": {"junk"}}, header)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.post(t, "/viewer/NOPE/notes", url.Values{"note": {"junk"}}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NoFileExists(t, env.notesPath)
}

func TestSaveNotes_RejectsMissingCSRF(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/viewer/A/notes", url.Values{"note": {"x"}, "csrf_token": {""}}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNavigate_WrapsAround(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/viewer/C/navigate", url.Values{"direction": {"next"}}, nil)
	assert.Equal(t, "/viewer/A", resp.Header.Get("Location"))

	resp, _ = env.post(t, "/viewer/A/navigate", url.Values{"direction": {"prev"}}, nil)
	assert.Equal(t, "/viewer/C", resp.Header.Get("Location"))
}

func TestNavigate_FollowsDisplayedRows(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.get(t, "/?search=&z_min=0.4&z_max=1.5")
	resp, _ := env.post(t, "/viewer/B/navigate", url.Values{"direction": {"next"}}, nil)
	assert.Equal(t, "/viewer/A", resp.Header.Get("Location"))
}

func TestNavigate_BadDirectionStays(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/viewer/B/navigate", url.Values{"direction": {"sideways"}}, nil)
	assert.Equal(t, "/viewer/B", resp.Header.Get("Location"))
}

func TestToggleTheme(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/theme", url.Values{"next": {"/viewer/B"}}, nil)
	assert.Equal(t, "/viewer/B", resp.Header.Get("Location"))

	_, body := env.get(t, "/")
	assert.Contains(t, body, `data-theme="light"`)

	resp, _ = env.post(t, "/theme", url.Values{"next": {"//evil.example"}}, nil)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestAssets_ServesFilesWithoutListing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.assetsDir, "map.jpg"), []byte("jpeg"), 0o644))
	env.login(t)

	resp, body := env.get(t, "/assets/map.jpg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg", body)

	resp, _ = env.get(t, "/assets/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatic_ServesStylesheet(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "table.catalog")
}
