package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/server"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/internal/view"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// defaultAlertLimit is used by GET /alerts when no limit is given.
const defaultAlertLimit = 50

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/summary", Handler: p.handleSummary},
		{Method: "GET", Path: "/devices", Handler: p.handleDevices},
		{Method: "GET", Path: "/devices/{id}", Handler: p.handleDevice},
		{Method: "GET", Path: "/alerts", Handler: p.handleAlerts},
		{Method: "GET", Path: "/sectors", Handler: p.handleSectors},
		{Method: "GET", Path: "/trends", Handler: p.handleTrends},
		{Method: "GET", Path: "/notices", Handler: p.handleNotices},
		{Method: "PUT", Path: "/filter", Handler: p.handleFilter},
		{Method: "GET", Path: "/export.csv", Handler: p.handleExport},
		{Method: "POST", Path: "/sync", Handler: p.handleSync},
	}
}

// summaryResponse is the body of GET /summary.
type summaryResponse struct {
	Version    uint64                 `json:"version"`
	Summary    view.Summary           `json:"summary"`
	Sectors    []view.SectorTab       `json:"sectors"`
	Filter     models.UIFilter        `json:"filter"`
	Selected   *models.Device         `json:"selected,omitempty"`
	Connection models.ConnectionState `json:"connection"`
}

func (p *Plugin) handleSummary(w http.ResponseWriter, r *http.Request) {
	d := p.memo.Dashboard()
	server.WriteJSON(w, http.StatusOK, summaryResponse{
		Version:    d.Version,
		Summary:    d.Summary,
		Sectors:    d.Sectors,
		Filter:     d.Filter,
		Selected:   d.Selected,
		Connection: p.store.Connection(),
	})
}

// handleDevices returns one sorted page of the filtered devices.
// Query: sort=<column> dir=asc|desc page=<n>.
func (p *Plugin) handleDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	column, dir, ok := parseSort(w, r)
	if !ok {
		return
	}
	page := 1
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			server.BadRequest(w, "page must be a positive integer", r.URL.Path)
			return
		}
		page = n
	}

	d := p.memo.Dashboard()
	server.WriteJSON(w, http.StatusOK, view.Table(d.Filtered, column, dir, page))
}

// parseSort reads sort=<column> and dir=asc|desc, defaulting to ascending
// id. It writes a 400 and reports false for an unknown column.
func parseSort(w http.ResponseWriter, r *http.Request) (string, view.SortDir, bool) {
	q := r.URL.Query()
	column := q.Get("sort")
	if column == "" {
		column = "id"
	}
	if !view.ValidSortColumn(column) {
		server.BadRequest(w, fmt.Sprintf("unknown sort column %q", column), r.URL.Path)
		return "", "", false
	}
	return column, view.ParseSortDir(q.Get("dir")), true
}

func (p *Plugin) handleDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, d := range p.store.Devices() {
		if d.ID == id {
			server.WriteJSON(w, http.StatusOK, struct {
				models.Device
				Health int `json:"health"`
			}{d, view.HealthScore(d)})
			return
		}
	}
	server.NotFound(w, fmt.Sprintf("device %s not found", id), r.URL.Path)
}

func (p *Plugin) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}
	alerts := p.store.Alerts(limit)
	if alerts == nil {
		alerts = []models.Alert{}
	}
	server.WriteJSON(w, http.StatusOK, alerts)
}

func (p *Plugin) handleSectors(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, p.memo.Dashboard().Sectors)
}

func (p *Plugin) handleTrends(w http.ResponseWriter, r *http.Request) {
	if p.trends == nil {
		server.WriteJSON(w, http.StatusOK, view.TrendSeries{
			Signal: []float64{}, Bandwidth: []float64{}, Alerts: []float64{},
		})
		return
	}
	server.WriteJSON(w, http.StatusOK, p.trends.Series())
}

func (p *Plugin) handleNotices(w http.ResponseWriter, r *http.Request) {
	notices := p.store.Notices()
	if notices == nil {
		notices = []state.Notice{}
	}
	server.WriteJSON(w, http.StatusOK, notices)
}

// handleFilter applies a partial filter update and returns the new filter.
func (p *Plugin) handleFilter(w http.ResponseWriter, r *http.Request) {
	var patch state.FilterPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	filter, err := p.store.UpdateFilter(r.Context(), patch)
	switch {
	case errors.Is(err, models.ErrInvalidSector):
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, state.ErrClosed):
		server.Unavailable(w, "store is shutting down", r.URL.Path)
	case err != nil:
		p.logger.Warn("update filter failed", zap.Error(err))
		server.InternalError(w, "failed to update filter", r.URL.Path)
	default:
		server.WriteJSON(w, http.StatusOK, filter)
	}
}

// handleExport streams the filtered devices as CSV, in the same order as
// GET /devices with the same sort and dir.
func (p *Plugin) handleExport(w http.ResponseWriter, r *http.Request) {
	column, dir, ok := parseSort(w, r)
	if !ok {
		return
	}
	d := p.memo.Dashboard()
	rows := view.SortDevices(d.Filtered, column, dir)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", view.ExportFilename(p.clock.Now())))
	if err := view.WriteCSV(w, rows); err != nil {
		p.logger.Warn("csv export failed", zap.Error(err))
	}
}

// syncResponse is the body of a successful POST /sync.
type syncResponse struct {
	Synced  bool `json:"synced"`
	Devices int  `json:"devices"`
	Alerts  int  `json:"alerts"`
}

// handleSync pushes local state to the backend and reloads it. Calls are
// rate limited; backend failures answer 502 and leave state unchanged.
func (p *Plugin) handleSync(w http.ResponseWriter, r *http.Request) {
	if p.backend == nil {
		server.Unavailable(w, "no backend configured", r.URL.Path)
		return
	}
	if !p.limiter.Allow() {
		server.RateLimited(w, "sync is rate limited, try again shortly", r.URL.Path)
		return
	}
	err := p.store.Sync(r.Context(), p.backend)
	switch {
	case errors.Is(err, state.ErrClosed):
		server.Unavailable(w, "store is shutting down", r.URL.Path)
	case err != nil:
		server.BadGateway(w, err.Error(), r.URL.Path)
	default:
		snap := p.store.Snapshot()
		server.WriteJSON(w, http.StatusOK, syncResponse{
			Synced:  true,
			Devices: len(snap.Devices),
			Alerts:  len(snap.Alerts),
		})
	}
}
