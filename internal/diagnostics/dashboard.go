// Package diagnostics implements the VFS dashboard.
package diagnostics

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"slices"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/desertwitch/qvfs/internal/vfs"
	"github.com/desertwitch/qvfs/internal/vfslog"
)

var (
	//go:embed templates/*.html
	templateFS    embed.FS
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

	errInvalidArgument = errors.New("invalid argument")
)

// ring is the subset of vfslog's ring-buffer the dashboard depends on,
// kept as an interface so tests can supply a fake.
type ring interface {
	Lines() []string
	Size() int
}

// Dashboard is the implementation of the pack-registry diagnostics
// dashboard.
type Dashboard struct {
	version string
	vfsys   *vfs.VFS
	rbuf    ring
}

// New returns a pointer to a new [Dashboard].
func New(vfsys *vfs.VFS, rbuf ring, version string) (*Dashboard, error) {
	if vfsys == nil {
		return nil, fmt.Errorf("%w: need vfs", errInvalidArgument)
	}
	if rbuf == nil {
		return nil, fmt.Errorf("%w: need ring buffer", errInvalidArgument)
	}

	return &Dashboard{
		version: version,
		vfsys:   vfsys,
		rbuf:    rbuf,
	}, nil
}

// Serve serves the diagnostics dashboard as part of a [http.Server].
func (d *Dashboard) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: d.dashboardMux()}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "(diagnostics) PANIC: %v\n", r)
				debug.PrintStack()
			}
		}()

		vfslog.Sink{}.Printf("serving dashboard on %s\n", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			vfslog.Sink{}.Printf("HTTP error: %v\n", err)
		}
	}()

	return srv
}

func (d *Dashboard) dashboardMux() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", d.dashboardHandler)
	r.HandleFunc("/metrics.json", d.metricsHandler)
	r.HandleFunc("/packs/{id}", d.packHandler)
	r.HandleFunc("/gc", d.gcHandler)
	r.HandleFunc("/reset", d.resetMetricsHandler)

	return r
}

type dashboardData struct {
	Version        string   `json:"version"`
	AllocBytes     string   `json:"allocBytes"`
	SysBytes       string   `json:"sysBytes"`
	TotalAlloc     string   `json:"totalAlloc"`
	NumGC          uint32   `json:"numGc"`
	OpenPacks      int64    `json:"openPacks"`
	TotalLoaded    int64    `json:"totalLoadedPacks"`
	TotalFreed     int64    `json:"totalFreedPacks"`
	HandlesOpened  int64    `json:"totalHandlesOpened"`
	HandlesClosed  int64    `json:"totalHandlesClosed"`
	BytesRead      string   `json:"totalBytesRead"`
	InflateRestart int64    `json:"totalInflateRestarts"`
	Reopened       int64    `json:"totalReopenedPacks"`
	ReopenCacheHit int64    `json:"totalReopenCacheHits"`
	ForceUnicode   string   `json:"forceUnicode"`
	StrictPAKLim   string   `json:"strictPakLimits"`
	MustCRC32      string   `json:"mustCrc32"`
	RingBufferSize int      `json:"ringBufferSize"`
	Logs           []string `json:"logs"`
}

func (d *Dashboard) collectMetrics() dashboardData {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	lines := d.rbuf.Lines()
	slices.Reverse(lines)

	met := d.vfsys.Metrics
	opt := d.vfsys.Options

	return dashboardData{
		Version:        d.version,
		AllocBytes:     humanize.IBytes(m.Alloc),
		SysBytes:       humanize.IBytes(m.Sys),
		TotalAlloc:     humanize.IBytes(m.TotalAlloc),
		NumGC:          m.NumGC,
		OpenPacks:      met.OpenPacks.Load(),
		TotalLoaded:    met.TotalLoadedPacks.Load(),
		TotalFreed:     met.TotalFreedPacks.Load(),
		HandlesOpened:  met.TotalHandlesOpened.Load(),
		HandlesClosed:  met.TotalHandlesClosed.Load(),
		BytesRead:      humanize.IBytes(uint64(met.TotalBytesRead.Load())), //nolint:gosec
		InflateRestart: met.TotalInflateRestarts.Load(),
		Reopened:       met.TotalReopenedPacks.Load(),
		ReopenCacheHit: met.TotalReopenCacheHits.Load(),
		ForceUnicode:   enabledOrDisabled(opt.ForceUnicode.Load()),
		StrictPAKLim:   enabledOrDisabled(opt.StrictPAKLimits.Load()),
		MustCRC32:      enabledOrDisabled(opt.MustCRC32.Load()),
		RingBufferSize: d.rbuf.Size(),
		Logs:           lines,
	}
}

func (d *Dashboard) dashboardHandler(w http.ResponseWriter, _ *http.Request) {
	data := d.collectMetrics()

	if err := indexTemplate.Execute(w, data); err != nil {
		vfslog.Sink{}.Printf("HTTP template execution error: %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *Dashboard) metricsHandler(w http.ResponseWriter, _ *http.Request) {
	data := d.collectMetrics()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type packData struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	NumFiles int      `json:"numFiles"`
	Entries  []string `json:"entries"`
}

func (d *Dashboard) packHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := parsePackID(vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	n := d.vfsys.PackNumFiles(id)
	if n == 0 {
		http.Error(w, "pack not found", http.StatusNotFound)

		return
	}

	entries := make([]string, n)
	for i := range n {
		entries[i] = d.vfsys.PackEntryName(id, i)
	}

	data := packData{
		ID:       id,
		Name:     d.vfsys.PackName(id),
		NumFiles: n,
		Entries:  entries,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *Dashboard) gcHandler(w http.ResponseWriter, _ *http.Request) {
	runtime.GC()
	debug.FreeOSMemory()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	vfslog.Sink{}.Printf("GC forced via API, current heap: %s.\n", humanize.IBytes(m.Alloc))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "GC forced, current heap: %s.\n", humanize.IBytes(m.Alloc))
}

func (d *Dashboard) resetMetricsHandler(w http.ResponseWriter, _ *http.Request) {
	met := d.vfsys.Metrics

	met.TotalHandlesOpened.Store(0)
	met.TotalHandlesClosed.Store(0)
	met.TotalBytesRead.Store(0)
	met.TotalInflateRestarts.Store(0)
	met.TotalReopenedPacks.Store(0)
	met.TotalReopenCacheHits.Store(0)

	vfslog.Sink{}.Printf("Metrics reset via API.\n")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Metrics reset.")
}
