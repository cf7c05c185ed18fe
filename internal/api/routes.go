package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heimdex/heimdex-marks/internal/catalog"
	"github.com/heimdex/heimdex-marks/internal/export"
	"github.com/heimdex/heimdex-marks/internal/report"
	"github.com/heimdex/heimdex-marks/internal/thumbnail"
)

const defaultEDLFrameRate = 24

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware())

	r.Get("/health", healthHandler(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/runs", listRunsHandler(cfg))
		r.Get("/runs/{id}", getRunHandler(cfg))
		r.Get("/runs/{id}/work-files", listWorkFilesHandler(cfg))
		r.Get("/runs/{id}/edl", runEDLHandler(cfg))
		r.Get("/work-files/{id}/marks", listMarksHandler(cfg))
		r.Get("/thumbnails/{name}", thumbnailHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.CatalogService.GetRuns(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = RunToResponse(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// lookupRun writes a 404 and returns nil when the run does not exist.
func lookupRun(cfg ServerConfig, w http.ResponseWriter, r *http.Request) *catalog.Run {
	id := chi.URLParam(r, "id")
	run, err := cfg.CatalogService.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return nil
	}
	return run
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if run := lookupRun(cfg, w, r); run != nil {
			WriteJSON(w, http.StatusOK, RunToResponse(run))
		}
	}
}

func listWorkFilesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := lookupRun(cfg, w, r)
		if run == nil {
			return
		}

		files, err := cfg.CatalogService.GetWorkFiles(r.Context(), run.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := WorkFilesResponse{WorkFiles: make([]WorkFileResponse, len(files))}
		for i, f := range files {
			resp.WorkFiles[i] = WorkFileToResponse(f)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listMarksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		wf, err := cfg.CatalogService.GetWorkFile(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if wf == nil {
			WriteError(w, http.StatusNotFound, "work file not found", "NOT_FOUND")
			return
		}

		resp := MarksResponse{WorkFileID: wf.ID, Marks: make([]MarkResponse, len(wf.Marks))}
		for i, m := range wf.Marks {
			resp.Marks[i] = MarkToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// runEDLHandler renders every mark of a run as an EDL at the requested
// frame rate. No video bound applies.
func runEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fps := defaultEDLFrameRate
		if v := r.URL.Query().Get("fps"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "fps must be a positive integer", "BAD_REQUEST")
				return
			}
			fps = n
		}

		run := lookupRun(cfg, w, r)
		if run == nil {
			return
		}

		files, err := cfg.CatalogService.GetWorkFiles(r.Context(), run.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		var rows []report.EnrichedRow
		for _, f := range files {
			wf, err := cfg.CatalogService.GetWorkFile(r.Context(), f.ID)
			if err != nil || wf == nil {
				WriteError(w, http.StatusInternalServerError, "failed to load marks", "INTERNAL_ERROR")
				return
			}
			for _, m := range wf.Marks {
				rows = append(rows, report.EnrichedRow{Row: report.Row{
					WorkFile: filepath.Base(wf.Path),
					Line:     m.Line,
					Location: m.Location,
					Range:    m.Range,
				}})
			}
		}

		title := export.SanitizeName("run "+shortID(run.ID), 64)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.GenerateEDL(export.EventsFromRows(rows), title, fps)))
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name != filepath.Base(name) {
			WriteError(w, http.StatusBadRequest, "invalid thumbnail name", "BAD_REQUEST")
			return
		}
		if _, ok := thumbnail.ParseName(name); !ok {
			WriteError(w, http.StatusBadRequest, "invalid thumbnail name", "BAD_REQUEST")
			return
		}

		path := filepath.Join(cfg.ThumbnailDir, name)
		if _, err := os.Stat(path); err != nil {
			WriteError(w, http.StatusNotFound, "thumbnail not found", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
