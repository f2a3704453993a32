package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/solar-equipment-parser/internal/config"
	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/metrics"
)

const (
	serviceName        = "api"
	maxJSONBodyBytes   = 64 << 10
	multipartMemory    = 8 << 20
	backpressureWait   = 250 * time.Millisecond
	exportRowLimit     = 1000
	defaultParseBudget = 2 * time.Minute
)

type Router struct {
	cfg     config.Config
	parser  ports.EquipmentParser
	jobs    ports.ParseJobService
	catalog ports.EquipmentCatalog

	auth     authenticator
	limiter  *orgLimiter
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	exporter *xlsxExporter
}

type Option func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	parser ports.EquipmentParser,
	jobs ports.ParseJobService,
	catalog ports.EquipmentCatalog,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:     cfg,
		parser:  parser,
		jobs:    jobs,
		catalog: catalog,
		auth:    newAuthenticator(cfg),
		limiter: newOrgLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.exporter = newXLSXExporter(rt.logger)
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(func(next http.Handler) http.Handler { return accessLogMiddleware(rt.logger, next) })
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler { return rt.metrics.Middleware(serviceName, next) })
	}
	r.Use(func(next http.Handler) http.Handler { return recoverMiddleware(rt.logger, next) })

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(rt.authMiddleware)
		r.Use(rt.rateLimitMiddleware)
		gate := newBackpressureGate(rt.cfg.APIMaxInFlight, backpressureWait, func() { rt.reject("overloaded") })
		r.Use(gate.wrap)

		r.Post("/v1/equipment/parse", rt.parseURL)
		r.Post("/v1/equipment/parse/upload", rt.parseUpload)

		r.Post("/v1/parse-jobs", rt.createParseJob)
		r.Get("/v1/parse-jobs/{jobID}", rt.getParseJob)

		r.Post("/v1/equipment", rt.createEquipment)
		r.Get("/v1/equipment", rt.listEquipment)
		r.Get("/v1/equipment/export.xlsx", rt.exportEquipment)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type parseRequest struct {
	DocumentURL string `json:"documentUrl"`
}

func (rt *Router) parseURL(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a documentUrl field")
		return
	}

	ctx, cancel := rt.parseContext(r.Context())
	defer cancel()
	rt.writeParseResult(w, rt.parser.Parse(ctx, req.DocumentURL))
}

func (rt *Router) parseUpload(w http.ResponseWriter, r *http.Request) {
	data, _, status, err := rt.readUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	ctx, cancel := rt.parseContext(r.Context())
	defer cancel()
	rt.writeParseResult(w, rt.parser.ParseUpload(ctx, data))
}

func (rt *Router) createParseJob(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var (
		job *domain.ParseJob
		err error
	)
	if isMultipart(r) {
		data, filename, status, readErr := rt.readUpload(w, r)
		if readErr != nil {
			writeError(w, status, readErr.Error())
			return
		}
		job, err = rt.jobs.SubmitUpload(r.Context(), p.OrganizationID, filename, bytes.NewReader(data))
	} else {
		var req parseRequest
		if decodeErr := decodeJSONBody(w, r, &req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "request body must be JSON with a documentUrl field or a multipart file")
			return
		}
		job, err = rt.jobs.SubmitURL(r.Context(), p.OrganizationID, req.DocumentURL)
	}
	if err != nil {
		rt.writeDomainError(w, r, "parse_job.submit_failed", err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getParseJob(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	jobID := chi.URLParam(r, "jobID")
	if strings.TrimSpace(jobID) == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := rt.jobs.GetByID(r.Context(), p.OrganizationID, jobID)
	if err != nil {
		rt.writeDomainError(w, r, "parse_job.get_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) createEquipment(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var record domain.EquipmentRecord
	if err := decodeJSONBody(w, r, &record); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON equipment record")
		return
	}

	item, err := rt.catalog.Add(r.Context(), p.OrganizationID, p.Subject, record)
	if err != nil {
		rt.writeDomainError(w, r, "equipment.create_failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) listEquipment(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := rt.catalog.List(r.Context(), p.OrganizationID, limit)
	if err != nil {
		rt.writeDomainError(w, r, "equipment.list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (rt *Router) exportEquipment(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	items, err := rt.catalog.List(r.Context(), p.OrganizationID, exportRowLimit)
	if err != nil {
		rt.writeDomainError(w, r, "equipment.export_failed", err)
		return
	}
	payload, err := rt.exporter.Equipment(p.OrganizationID, items)
	if err != nil {
		rt.writeDomainError(w, r, "equipment.export_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="equipment.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (rt *Router) parseContext(parent context.Context) (context.Context, context.CancelFunc) {
	budget := defaultParseBudget
	if rt.cfg.APIParseTimeoutSecs > 0 {
		budget = time.Duration(rt.cfg.APIParseTimeoutSecs) * time.Second
	}
	return context.WithTimeout(parent, budget)
}

// readUpload returns the "file" part of a multipart body capped at UploadMaxBytes.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, int, error) {
	maxBytes := rt.cfg.UploadMaxBytes
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", http.StatusRequestEntityTooLarge, errors.New("upload is too large")
		}
		return nil, "", http.StatusBadRequest, errors.New("multipart field 'file' is required")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("multipart field 'file' is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("failed to read uploaded file")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", http.StatusRequestEntityTooLarge, errors.New("upload is too large")
	}
	return data, header.Filename, 0, nil
}

func (rt *Router) writeParseResult(w http.ResponseWriter, result domain.ParseResult) {
	status := http.StatusOK
	if !result.Success {
		status = mapErrorToHTTPStatus(result.Cause())
	}
	writeJSON(w, status, result)
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, event string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error(event, "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeError(w, status, publicErrorMessage(err, status))
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
