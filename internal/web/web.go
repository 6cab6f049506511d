package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"edgemaint/internal/backend"
	"edgemaint/internal/config"
	"edgemaint/internal/ics"
	appLog "edgemaint/internal/log"
	"edgemaint/internal/maintenance"
	"edgemaint/internal/model"
	"edgemaint/internal/preview"
	"edgemaint/internal/schedule"
	"edgemaint/internal/tzdb"
)

const maxBodyBytes = 1 << 20

// Server provides the HTTP API for editing and viewing maintenance
// windows.
type Server struct {
	cfg *config.Config
	svc *maintenance.Service
	tz  *tzdb.Database
	mux *http.ServeMux
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *maintenance.Service, tz *tzdb.Database) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		tz:  tz,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, svc *maintenance.Service, tz *tzdb.Database) error {
	s := NewServer(cfg, svc, tz)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/timezones/{zone...}", s.handleTimezone)
	s.mux.HandleFunc("POST /api/schedules/convert", s.handleConvert)
	s.mux.HandleFunc("POST /api/schedules/localize", s.handleLocalize)
	s.mux.HandleFunc("POST /api/maintenances", s.handleCreate)
	s.mux.HandleFunc("PUT /api/maintenances", s.handleUpdate)
	s.mux.HandleFunc("GET /api/maintenances", s.handleLoad)
	s.mux.HandleFunc("GET /api/maintenances/windows", s.handleWindows)
	s.mux.HandleFunc("GET /api/maintenances.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/maintenances/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleTimezone resolves a zone for the editor's picker.
//
// GET /api/timezones/{zone}?date=2024-03-10
//   - date: reference date for the offset (default today, UTC)
func (s *Server) handleTimezone(w http.ResponseWriter, r *http.Request) {
	ref := s.svc.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ref = d
	}
	sel, err := s.tz.Select(r.PathValue("zone"), ref)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// convertResponse is the JSON response shape for /api/schedules/convert.
type convertResponse struct {
	Records     []model.Maintenance `json:"records"`
	Split       bool                `json:"split"`
	Expressions []string            `json:"expressions,omitempty"`
}

// handleConvert runs a form through the converter without saving it.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var f maintenance.Form
	if !decodeBody(w, r, &f) {
		return
	}
	records, split, err := s.svc.Records(f)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := convertResponse{Records: records, Split: split}
	for _, rec := range records {
		sch, err := rec.Schedule()
		if err != nil {
			s.fail(w, err)
			return
		}
		if rule, ok := sch.(schedule.RecurringRule); ok {
			resp.Expressions = append(resp.Expressions, preview.Expression(rule))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type localizeRequest struct {
	Records  []model.Maintenance `json:"records"`
	Timezone string              `json:"timezone"`
}

// loadedResponse is the JSON response shape for a localized window.
type loadedResponse struct {
	*maintenance.Loaded
	Description schedule.Description `json:"description"`
	Upcoming    []preview.Window     `json:"upcoming"`
}

// handleLocalize recomputes the editor's local values from records the
// client already holds, e.g. after the user picks another zone.
func (s *Server) handleLocalize(w http.ResponseWriter, r *http.Request) {
	var req localizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	loaded, err := s.svc.Localize(req.Records, req.Timezone)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeLoaded(w, loaded, req.Timezone)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var f maintenance.Form
	if !decodeBody(w, r, &f) {
		return
	}
	if len(f.IDs) != 0 {
		writeError(w, http.StatusBadRequest, "ids must be empty on create; use PUT to update")
		return
	}
	s.save(w, r, f, http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var f maintenance.Form
	if !decodeBody(w, r, &f) {
		return
	}
	if len(f.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required on update")
		return
	}
	s.save(w, r, f, http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, f maintenance.Form, status int) {
	res, err := s.svc.Save(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, res)
}

// handleLoad returns stored records with their local values, description
// and next windows.
//
// GET /api/maintenances?ids=a,b&timezone=Asia/Tokyo
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	zone := s.zoneParam(r)
	loaded, err := s.svc.Load(r.Context(), splitIDs(r.URL.Query().Get("ids")), zone)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeLoaded(w, loaded, zone)
}

func (s *Server) writeLoaded(w http.ResponseWriter, loaded *maintenance.Loaded, zone string) {
	loc, err := s.tz.Location(zone)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := loadedResponse{
		Loaded:      loaded,
		Description: s.svc.Describe(loaded, zone),
		Upcoming:    []preview.Window{},
	}
	now := s.now()
	if loaded.Single != nil {
		if win, ok := preview.Single(*loaded.Single, now, loc); ok {
			resp.Upcoming = append(resp.Upcoming, win)
		}
	} else {
		up, err := preview.Upcoming(loaded.Rules, now, s.cfg.Preview.Count, loc)
		if err != nil {
			s.fail(w, err)
			return
		}
		resp.Upcoming = append(resp.Upcoming, up...)
	}
	writeJSON(w, http.StatusOK, resp)
}

// windowsResponse is the JSON response shape for /api/maintenances/windows.
type windowsResponse struct {
	Occurrences     []ics.Occurrence `json:"occurrences"`
	Truncated       []string         `json:"truncated,omitempty"`
	RangeStart      time.Time        `json:"range_start"`
	RangeEnd        time.Time        `json:"range_end"`
	DisplayTimeZone string           `json:"display_timezone"`
}

// handleWindows lists concrete windows of stored records.
//
// GET /api/maintenances/windows?ids=a,b&days=7&backfill=1&timezone=UTC
//   - days:     how many days ahead to include (default 7)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	zone := s.zoneParam(r)
	loc, err := s.tz.Location(zone)
	if err != nil {
		s.fail(w, err)
		return
	}
	loaded, err := s.svc.Load(r.Context(), splitIDs(q.Get("ids")), zone)
	if err != nil {
		s.fail(w, err)
		return
	}

	now := s.now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)
	res, err := ics.Expand(loaded.Records, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		appLog.Error("api windows: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand windows")
		return
	}
	occ := res.Occurrences
	if occ == nil {
		occ = []ics.Occurrence{}
	}
	writeJSON(w, http.StatusOK, windowsResponse{
		Occurrences:     occ,
		Truncated:       res.Truncated,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	})
}

// handleExport serves stored records as an iCalendar feed.
//
// GET /api/maintenances.ics?ids=a,b
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.svc.Load(r.Context(), splitIDs(r.URL.Query().Get("ids")), s.cfg.Timezone)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := ics.Export(loaded.Records, ics.ExportOptions{ProductID: s.cfg.ICS.ProductID, From: s.now()})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleImport turns the one-time events of an ICS payload into forms in
// the requested zone. Nothing is saved.
//
// POST /api/maintenances/import?timezone=Europe/Berlin
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	windows, err := ics.ParseWindows(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS payload")
		return
	}

	zone := s.zoneParam(r)
	forms := make([]maintenance.Form, 0, len(windows))
	for _, win := range windows {
		rec := model.FromSingle(model.Maintenance{Name: win.Summary, Description: win.Description}, win.Occurrence)
		loaded, err := s.svc.Localize([]model.Maintenance{rec}, zone)
		if err != nil {
			s.fail(w, err)
			return
		}
		forms = append(forms, loaded.Form)
	}
	writeJSON(w, http.StatusOK, forms)
}

func (s *Server) zoneParam(r *http.Request) string {
	if z := r.URL.Query().Get("timezone"); z != "" {
		return z
	}
	return s.cfg.Timezone
}

// fail maps an error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var werr *maintenance.WriteError
	switch {
	case errors.As(err, &werr):
		writeJSON(w, http.StatusBadGateway, partialWriteResponse{
			Error:   err.Error(),
			Written: werr.Written,
			Deleted: werr.Deleted,
		})
	case errors.Is(err, maintenance.ErrInvalidForm), errors.Is(err, schedule.ErrUnknownZone):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrNotLocalizable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		var se *backend.StatusError
		if errors.As(err, &se) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type partialWriteResponse struct {
	Error   string   `json:"error"`
	Written []string `json:"written"`
	Deleted []string `json:"deleted,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
