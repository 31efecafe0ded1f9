package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

type Router struct {
	uploader  ports.DocumentUploader
	extractor ports.ExtractionRunner
	validator ports.ValidationRunner
	submitter ports.SubmissionRunner
	reader    ports.DocumentReader
	exporter  ports.DocumentExporter

	maxUploadBytes int64
	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int

	metricsHandler http.Handler
	recorder       PipelineRecorder
	service        string
}

// PipelineRecorder receives per-stage outcomes from the extract, validate and
// submit handlers. Satisfied by metrics.HTTPServerMetrics.
type PipelineRecorder interface {
	RecordStage(service, stage string, err error, duration time.Duration)
	RecordExtractionConfidence(service string, overall float64)
	RecordRejectReason(service, reason string)
	RecordSubmission(service string, success bool)
}

type RouterOption func(*Router)

func WithMaxUploadBytes(limit int64) RouterOption {
	return func(rt *Router) { rt.maxUploadBytes = limit }
}

func WithTrafficControl(rps, burst, maxInFlight int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
		rt.maxInFlight = maxInFlight
	}
}

func WithMetricsHandler(handler http.Handler) RouterOption {
	return func(rt *Router) { rt.metricsHandler = handler }
}

func WithPipelineRecorder(service string, recorder PipelineRecorder) RouterOption {
	return func(rt *Router) {
		rt.service = service
		rt.recorder = recorder
	}
}

func NewRouter(
	uploader ports.DocumentUploader,
	extractor ports.ExtractionRunner,
	validator ports.ValidationRunner,
	submitter ports.SubmissionRunner,
	reader ports.DocumentReader,
	exporter ports.DocumentExporter,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		uploader:       uploader,
		extractor:      extractor,
		validator:      validator,
		submitter:      submitter,
		reader:         reader,
		exporter:       exporter,
		maxUploadBytes: 25 << 20,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/export", rt.exportDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("POST /v1/documents/{id}/extract", rt.extractDocument)
	mux.HandleFunc("POST /v1/documents/{id}/validate", rt.validateDocument)
	mux.HandleFunc("POST /v1/documents/{id}/submit", rt.submitDocument)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	docs, err := rt.reader.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.reader.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) extractDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := rt.extractor.RunExtraction(r.Context(), r.PathValue("id"))
	if rt.recorder != nil {
		rt.recorder.RecordStage(rt.service, "extract", err, time.Since(start))
		if err == nil {
			rt.recorder.RecordExtractionConfidence(rt.service, result.Overall)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) validateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Corrections map[string]string `json:"corrections"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	start := time.Now()
	result, err := rt.validator.RunValidation(r.Context(), r.PathValue("id"), req.Corrections)
	if rt.recorder != nil {
		rt.recorder.RecordStage(rt.service, "validate", err, time.Since(start))
		if err == nil && !result.Passed {
			for _, verdict := range result.Verdicts {
				if !verdict.Accepted {
					rt.recorder.RecordRejectReason(rt.service, string(verdict.Reason))
				}
			}
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := rt.submitter.Submit(r.Context(), r.PathValue("id"))
	if rt.recorder != nil {
		rt.recorder.RecordStage(rt.service, "submit", err, time.Since(start))
		if err == nil {
			rt.recorder.RecordSubmission(rt.service, result.Success)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	// A recorded failure is still a completed request; the payload carries
	// the retryable flag and error detail.
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) exportDocuments(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date, want YYYY-MM-DD"})
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date, want YYYY-MM-DD"})
		return
	}

	data, err := rt.exporter.ExportXLSX(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("documents-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
