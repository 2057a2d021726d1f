package diagnostics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/desertwitch/qvfs/internal/vfs"
)

type fakeRing struct {
	lines []string
	size  int
}

func (f *fakeRing) Lines() []string { return f.lines }
func (f *fakeRing) Size() int       { return f.size }

func testDashboard(t *testing.T) (*Dashboard, *vfs.VFS) {
	t.Helper()

	v := vfs.New()
	r := &fakeRing{lines: []string{"boot ok"}, size: 500}

	d, err := New(v, r, "gotests")
	require.NoError(t, err)

	return d, v
}

func Test_New_RequiresArguments(t *testing.T) {
	t.Parallel()

	_, err := New(nil, &fakeRing{}, "v")
	require.Error(t, err)

	_, err = New(vfs.New(), nil, "v")
	require.Error(t, err)
}

func Test_Serve_Success(t *testing.T) {
	t.Parallel()
	d, _ := testDashboard(t)

	srv := d.Serve("127.0.0.1:0")
	require.NotNil(t, srv)
	require.NotEmpty(t, srv.Addr)

	defer srv.Close()
}

func Test_dashboardMux_Success(t *testing.T) {
	t.Parallel()
	d, v := testDashboard(t)

	// Load one pack so that "/packs/1" names an existing pack; the handler
	// itself answers 404 for an unknown id (see Test_packHandler_NotFound).
	pak := append([]byte("PACK\x11\x00\x00\x00\x40\x00\x00\x00hello"), make([]byte, 64)...)
	copy(pak[17:], "a.txt")
	pak[17+56] = 12 // filepos: payload follows the 12-byte header
	pak[17+60] = 5  // filelen
	pakPath := filepath.Join(t.TempDir(), "a.pak")
	require.NoError(t, os.WriteFile(pakPath, pak, 0o600))
	id, err := v.LoadPack(pakPath)
	require.NoError(t, err)
	require.Equal(t, 1, id)

	router := d.dashboardMux()

	testCases := []string{"/", "/metrics.json", "/gc", "/reset", "/packs/1"}

	for _, path := range testCases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.NotEqual(t, http.StatusNotFound, w.Code, "route %s should exist", path)
	}
}

func Test_dashboardHandler_Success(t *testing.T) {
	t.Parallel()
	d, v := testDashboard(t)

	v.Metrics.OpenPacks.Store(3)
	v.Metrics.TotalLoadedPacks.Store(5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	d.dashboardHandler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := w.Body.String()
	require.Contains(t, body, "gotests")
	require.Contains(t, body, "boot ok")
}

func Test_metricsHandler_Success(t *testing.T) {
	t.Parallel()
	d, v := testDashboard(t)

	v.Metrics.TotalBytesRead.Store(1024)

	req := httptest.NewRequest(http.MethodGet, "/metrics.json", nil)
	w := httptest.NewRecorder()

	d.metricsHandler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, w.Body.String(), "gotests")
}

func Test_packHandler_NotFound(t *testing.T) {
	t.Parallel()
	d, _ := testDashboard(t)

	req := httptest.NewRequest(http.MethodGet, "/packs/7", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	w := httptest.NewRecorder()

	d.packHandler(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func Test_packHandler_InvalidID(t *testing.T) {
	t.Parallel()
	d, _ := testDashboard(t)

	req := httptest.NewRequest(http.MethodGet, "/packs/nope", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	w := httptest.NewRecorder()

	d.packHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_gcHandler_Success(t *testing.T) {
	t.Parallel()
	d, _ := testDashboard(t)

	req := httptest.NewRequest(http.MethodGet, "/gc", nil)
	w := httptest.NewRecorder()

	d.gcHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "GC forced")
}

func Test_resetMetricsHandler_Success(t *testing.T) {
	t.Parallel()
	d, v := testDashboard(t)

	v.Metrics.TotalBytesRead.Store(999)

	req := httptest.NewRequest(http.MethodGet, "/reset", nil)
	w := httptest.NewRecorder()

	d.resetMetricsHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 0, v.Metrics.TotalBytesRead.Load())
}

func Test_enabledOrDisabled_Success(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Enabled", enabledOrDisabled(true))
	require.Equal(t, "Disabled", enabledOrDisabled(false))
}
