package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/JonMunkholm/icumatch/internal/config"
	"github.com/JonMunkholm/icumatch/internal/core"
	"github.com/JonMunkholm/icumatch/internal/logging"
	"github.com/JonMunkholm/icumatch/internal/sheet"
	"github.com/JonMunkholm/icumatch/internal/store"
	"github.com/JonMunkholm/icumatch/internal/web/templates"
)

// runResponse is the JSON view of a stored run.
type runResponse struct {
	ID        uuid.UUID         `json:"id"`
	Kind      store.Kind        `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Counts    map[string]int    `json:"counts,omitempty"`
	Warnings  []core.Warning    `json:"warnings,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Sheets    []sheetSummary    `json:"sheets"`
	ExportURL string            `json:"export_url"`
}

type sheetSummary struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   int      `json:"rows"`
}

func (runResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func newRunResponse(run *store.Run) *runResponse {
	resp := &runResponse{
		ID:        run.ID,
		Kind:      run.Kind,
		CreatedAt: run.CreatedAt,
		Counts:    run.Counts,
		Warnings:  run.Warnings,
		Meta:      run.Meta,
		Sheets:    make([]sheetSummary, len(run.Exports)),
		ExportURL: exportURL(run.ID),
	}
	for i, e := range run.Exports {
		resp.Sheets[i] = sheetSummary{Name: e.Sheet, Header: e.Header, Rows: len(e.Rows)}
	}
	return resp
}

func exportURL(id uuid.UUID) string {
	return "/api/runs/" + id.String() + "/export"
}

// respondRun answers a finished run: a summary fragment for the upload
// page, JSON otherwise.
func (s *Server) respondRun(w http.ResponseWriter, r *http.Request, run *store.Run, status int) {
	if isHTMX(r) {
		view := templates.RunView{
			ID:        run.ID.String(),
			Kind:      string(run.Kind),
			Counts:    run.Counts,
			ExportURL: exportURL(run.ID),
		}
		for _, e := range run.Exports {
			view.Rows += len(e.Rows)
		}
		for _, warn := range run.Warnings {
			view.Warnings = append(view.Warnings, warn.String())
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.RunSummary(view).Render(r.Context(), w)
		return
	}

	render.Status(r, status)
	render.Render(w, r, newRunResponse(run))
}

// activeRun is a request's hold on a run slot, bounded by the run timeout.
type activeRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	slot   *RunSlot
}

// finish ends the request's hold. Work still running in runBlocking keeps
// the slot until it returns.
func (a *activeRun) finish() {
	a.cancel()
	a.slot.Release()
}

// beginRun takes a run slot and applies the run timeout. The caller must
// call finish when the request is done.
func (s *Server) beginRun(r *http.Request) (*activeRun, error) {
	slot, err := s.limiter.Slot(r.Context())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	return &activeRun{ctx: ctx, cancel: cancel, slot: slot}, nil
}

// runBlocking runs fn on the run's slot and gives up when the run context
// ends first.
func runBlocking[T any](active *activeRun, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	active.slot.Go(func() {
		v, err := fn()
		done <- result{v, err}
	})

	select {
	case res := <-done:
		return res.v, res.err
	case <-active.ctx.Done():
		var zero T
		return zero, active.ctx.Err()
	}
}

// finishRun stores a run and records its metrics.
func (s *Server) finishRun(w http.ResponseWriter, r *http.Request, run *store.Run) {
	if err := s.store.Save(r.Context(), run); err != nil {
		s.metrics.observeRun(string(run.Kind), "error")
		s.respondError(w, r, fmt.Errorf("save run: %w", err), http.StatusInternalServerError)
		return
	}
	s.metrics.observeRun(string(run.Kind), "ok")
	logging.WithFields(r.Context(), "run_id", run.ID, "kind", run.Kind).Info("run stored", "counts", run.Counts)
	s.respondRun(w, r, run, http.StatusCreated)
}

func (s *Server) failRun(w http.ResponseWriter, r *http.Request, kind store.Kind, err error) {
	s.metrics.observeRun(string(kind), "error")
	s.respondError(w, r, err, statusFor(err))
}

// handleInspect returns column suggestions for uploaded files and a
// suggested config built from them.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	files, err := s.parseUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	render.JSON(w, r, inspect(files))
}

// handleMatch runs the pipeline on uploaded files.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	active, err := s.beginRun(r)
	if err != nil {
		s.failRun(w, r, store.KindMatch, err)
		return
	}
	defer active.finish()

	files, err := s.parseUploads(w, r)
	if err != nil {
		s.failRun(w, r, store.KindMatch, err)
		return
	}
	p, err := s.requestProfile(r)
	if err != nil {
		s.failRun(w, r, store.KindMatch, err)
		return
	}

	res, variant, err := s.runMatch(active, r, files, p)
	if err != nil {
		s.failRun(w, r, store.KindMatch, err)
		return
	}

	s.finishRun(w, r, store.MatchRun(res, variant))
}

func (s *Server) runMatch(active *activeRun, r *http.Request, files uploads, p *config.Profile) (*core.Result, core.Variant, error) {
	cfg, variant, err := s.matchSettings(r, p)
	if err != nil {
		return nil, 0, err
	}
	pipeline, err := core.NewPipeline(cfg, core.WithLogger(logging.FromContext(r.Context())))
	if err != nil {
		return nil, 0, err
	}

	in := files.inputs()
	res, err := runBlocking(active, func() (*core.Result, error) { return pipeline.Run(in) })
	if err != nil {
		return nil, 0, err
	}
	s.metrics.observeResult(res)
	return res, variant, nil
}

// handleDeriveEpisodes builds ICU episodes from monthly census sheets.
func (s *Server) handleDeriveEpisodes(w http.ResponseWriter, r *http.Request) {
	active, err := s.beginRun(r)
	if err != nil {
		s.failRun(w, r, store.KindCensus, err)
		return
	}
	defer active.finish()

	files, err := s.parseUploads(w, r)
	if err != nil {
		s.failRun(w, r, store.KindCensus, err)
		return
	}
	req := censusRequest{IDColumn: r.FormValue("id_column"), Marker: r.FormValue("marker")}
	if err := s.validateStruct(req); err != nil {
		s.failRun(w, r, store.KindCensus, err)
		return
	}

	tables := files[fieldCensus]
	if len(tables) == 0 {
		s.failRun(w, r, store.KindCensus, fmt.Errorf("census: %w", core.ErrMissingTable))
		return
	}
	idColumn := req.IDColumn
	if idColumn == "" {
		col, ok := core.FindColumn(core.CensusIDCandidates, tables[0].Header)
		if !ok {
			s.failRun(w, r, store.KindCensus, &core.ColumnError{Table: tables[0].Name, Role: "patient id"})
			return
		}
		idColumn = col
	}

	sheets := make([]core.CensusSheet, len(tables))
	for i, t := range tables {
		sheets[i] = core.CensusSheet{Name: t.Name, Table: t}
	}
	episodes, err := runBlocking(active, func() ([]core.DerivedEpisode, error) {
		return core.DeriveEpisodes(sheets, core.CensusConfig{IDColumn: idColumn, Marker: req.Marker})
	})
	if err != nil {
		s.failRun(w, r, store.KindCensus, err)
		return
	}

	run := store.NewRun(store.KindCensus, core.CensusExport(episodes, idColumn))
	uncertain := 0
	for _, ep := range episodes {
		if ep.Remark != "" {
			uncertain++
		}
	}
	run.Counts = map[string]int{"episodes": len(episodes), "admit_uncertain": uncertain}
	run.Meta = map[string]string{"id_column": idColumn}
	s.finishRun(w, r, run)
}

// handleCaseLookup proposes patient IDs for registered infection cases
// from a fresh match of the uploaded files.
func (s *Server) handleCaseLookup(w http.ResponseWriter, r *http.Request) {
	active, err := s.beginRun(r)
	if err != nil {
		s.failRun(w, r, store.KindLookup, err)
		return
	}
	defer active.finish()

	files, err := s.parseUploads(w, r)
	if err != nil {
		s.failRun(w, r, store.KindLookup, err)
		return
	}
	var req lookupRequest
	ok, err := s.decodeJSON(r, fieldConfig, &req)
	if err == nil && !ok {
		err = fmt.Errorf("%w: config with case columns is required", errInvalidRequest)
	}
	if err != nil {
		s.failRun(w, r, store.KindLookup, err)
		return
	}

	casesTable := files.first(fieldCases)
	if casesTable == nil {
		s.failRun(w, r, store.KindLookup, fmt.Errorf("cases: %w", core.ErrMissingTable))
		return
	}
	cases, err := core.LoadCases(casesTable, req.Cases.roles())
	if err != nil {
		s.failRun(w, r, store.KindLookup, err)
		return
	}

	res, _, err := s.runMatch(active, r, files, req.Match)
	if err != nil {
		s.failRun(w, r, store.KindLookup, err)
		return
	}

	cands := core.FindCaseCandidates(cases, res)
	found := 0
	for _, c := range cands {
		if c.Found {
			found++
		}
	}
	run := store.NewRun(store.KindLookup, core.CaseExport(casesTable, cands))
	run.Counts = map[string]int{"cases": len(cases), "candidates": found}
	run.Warnings = res.Warnings
	s.finishRun(w, r, run)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: run id: %v", errInvalidRequest, err), http.StatusBadRequest)
		return nil, false
	}
	run, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	render.Render(w, r, newRunResponse(run))
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Latest(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	render.Render(w, r, newRunResponse(run))
}

// handleExportRun downloads a run as XLSX (default) or CSV.
func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	format := sheet.FormatXLSX
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := sheet.ParseFormat(q)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		format = f
	}

	filename := fmt.Sprintf("icumatch-%s-%s%s", run.Kind, run.CreatedAt.Format("20060102-150405"), format.Ext())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := sheet.Write(w, format, run.Exports...); err != nil {
		// Headers are already sent; log only.
		logging.FromContext(r.Context()).Error("export write failed", "run_id", run.ID, "error", err)
	}
}

type healthResponse struct {
	Status string        `json:"status"`
	Runs   LimiterStatus `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Runs: s.limiter.Status()})
}
