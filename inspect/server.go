package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/carbocation/rtorder/measurement"
	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

// Dataset holds the measurements being inspected. It is safe for concurrent
// use; Reload swaps in a fresh copy.
type Dataset struct {
	Source string

	load func() ([]measurement.Measurement, error)

	m     sync.RWMutex
	rows  []measurement.Measurement
	stats []SystemStats
}

// NewDataset loads the measurements with load, which is called again on every
// Reload.
func NewDataset(source string, load func() ([]measurement.Measurement, error)) (*Dataset, error) {
	d := &Dataset{Source: source, load: load}
	if err := d.Reload(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Dataset) Reload() error {
	rows, err := d.load()
	if err != nil {
		return err
	}
	stats := Summarize(rows)

	d.m.Lock()
	defer d.m.Unlock()
	d.rows = rows
	d.stats = stats

	return nil
}

// Stats returns the per-system summaries.
func (d *Dataset) Stats() []SystemStats {
	d.m.RLock()
	defer d.m.RUnlock()

	return d.stats
}

// Rows returns the measurements of system.
func (d *Dataset) Rows(system string) []measurement.Measurement {
	d.m.RLock()
	defer d.m.RUnlock()

	out := []measurement.Measurement{}
	for _, m := range d.rows {
		if m.System == system {
			out = append(out, m)
		}
	}

	return out
}

type row struct {
	Line       int     `json:"line"`
	InChI      string  `json:"inchi"`
	RecordedRT float64 `json:"recorded_rt"`
	Suspect    bool    `json:"suspect"`
	DateAdded  string  `json:"date_added,omitempty"`
}

type handler struct {
	dataset *Dataset
}

// Router serves:
//
//	GET  /                          per-system summaries
//	GET  /system/{name}             the measurements of one system
//	GET  /system/{name}/histogram   a text histogram of its retention times
//	POST /reload                    re-reads the dataset
func Router(d *Dataset) http.Handler {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{dataset: d}

	GET.HandleFunc("/", h.Index).Name("index")
	GET.HandleFunc("/system/{name}", h.System).Name("system")
	GET.HandleFunc("/system/{name}/histogram", h.Histogram).Name("histogram")

	POST.HandleFunc("/reload", h.Reload)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}

func (h handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Source  string        `json:"source"`
		Systems []SystemStats `json:"systems"`
	}{h.dataset.Source, h.dataset.Stats()})
}

func (h handler) System(w http.ResponseWriter, r *http.Request) {
	system := mux.Vars(r)["name"]

	ms := h.dataset.Rows(system)
	if len(ms) == 0 {
		http.Error(w, fmt.Sprintf("no measurements for system %q", system), http.StatusNotFound)
		return
	}

	out := make([]row, 0, len(ms))
	for _, m := range ms {
		v := row{Line: m.Line, InChI: m.InChI, RecordedRT: m.RecordedRT, Suspect: m.Suspect}
		if m.DateAdded.IsValid() {
			v.DateAdded = m.DateAdded.String()
		}
		out = append(out, v)
	}

	writeJSON(w, out)
}

func (h handler) Histogram(w http.ResponseWriter, r *http.Request) {
	system := mux.Vars(r)["name"]

	bins := 20
	if v := r.URL.Query().Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, fmt.Sprintf("bins must be a positive integer, got %q", v), http.StatusBadRequest)
			return
		}
		bins = n
	}

	var buf bytes.Buffer
	if err := FprintHistogram(&buf, h.dataset.Rows(system), system, bins); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	buf.WriteTo(w)
}

func (h handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.dataset.Reload(); err != nil {
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Index(w, r)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
