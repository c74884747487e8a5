package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"github.com/radiusdt/campaign-studio/internal/middleware"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/radiusdt/campaign-studio/internal/storage"
	"github.com/radiusdt/campaign-studio/internal/wizard"
	"go.uber.org/zap"
)

// ReportsClient reads and updates live campaigns.
type ReportsClient interface {
	FetchInsights(ctx context.Context) ([]models.CampaignInsight, error)
	SetCampaignStatus(ctx context.Context, campaignID string, status models.CampaignStatus) (models.CampaignStatus, error)
	FetchReport(ctx context.Context, metrics []string) ([]models.ReportRow, error)
	AnalyzeReport(ctx context.Context, rows []models.ReportRow) (string, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Wizards *wizard.Manager
	Reports ReportsClient
	Events  storage.EventStore
	Checks  map[string]HealthCheck
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps the HTTP handlers of the wizard and dashboard.
type Server struct {
	wizards *wizard.Manager
	reports ReportsClient
	events  storage.EventStore
	checks  map[string]HealthCheck
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

const (
	defaultEventLimit           = 50
	defaultMaxFilesPerSelection = 10
)

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		wizards: deps.Wizards,
		reports: deps.Reports,
		events:  deps.Events,
		checks:  deps.Checks,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle("GET "+deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Wizard
	mux.HandleFunc("POST /wizard/open", s.handleOpen)
	mux.HandleFunc("GET /wizard", s.handleState)
	mux.HandleFunc("DELETE /wizard", s.handleDiscard)
	mux.HandleFunc("GET /wizard/draft", s.handleDraft)
	mux.HandleFunc("POST /wizard/campaign", s.handleCampaign)
	mux.HandleFunc("POST /wizard/adset", s.handleAdSet)
	mux.HandleFunc("POST /wizard/files", s.handleSelectFiles)
	mux.HandleFunc("DELETE /wizard/files/{index}", s.handleRemoveFile)
	mux.HandleFunc("POST /wizard/uploads", s.handleUploads)
	mux.HandleFunc("GET /wizard/progress", s.handleProgress)
	mux.HandleFunc("POST /wizard/finalize", s.handleFinalize)
	mux.HandleFunc("POST /wizard/back", s.handleBack)
	mux.HandleFunc("POST /wizard/steps/{step}", s.handleJump)
	mux.HandleFunc("GET /wizard/review", s.handleReview)
	mux.HandleFunc("GET /wizard/events", s.handleEvents)

	// Dashboard
	mux.HandleFunc("GET /campaigns", s.handleCampaigns)
	mux.HandleFunc("POST /campaigns/{id}/status", s.handleCampaignStatus)
	mux.HandleFunc("GET /dashboard/summary", s.handleSummary)
	mux.HandleFunc("POST /reports", s.handleReport)
	mux.HandleFunc("POST /reports/analysis", s.handleAnalysis)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// ---- Wizard ----

type openRequest struct {
	Resume bool `json:"resume"`
}

// controller returns the open wizard of the requesting client. Only
// POST /wizard/open creates one; other routes answer 404 until then.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*wizard.Controller, bool) {
	ctrl, ok := s.wizards.Lookup(middleware.ClientID(r))
	if !ok {
		s.handleError(w, fmt.Errorf("wizard is not open: %w", apperr.ErrNotFound))
		return nil, false
	}
	return ctrl, true
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeOptional(r, &req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, s.wizards.Get(middleware.ClientID(r)).Open(r.Context(), req.Resume))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, ctrl.State())
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	draft := s.wizards.Draft(r.Context(), middleware.ClientID(r))
	resp := map[string]interface{}{"exists": draft != nil}
	if draft != nil {
		resp["draft"] = draft
		resp["resume_step"] = wizard.ResumeStep(draft)
	}
	s.jsonResponse(w, resp)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.wizards.Discard(r.Context(), middleware.ClientID(r)); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	var in wizard.CampaignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.SubmitCampaign(r.Context(), in); err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, ctrl.State())
}

func (s *Server) handleAdSet(w http.ResponseWriter, r *http.Request) {
	var in wizard.AdSetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.SubmitAdSet(r.Context(), in); err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, ctrl.State())
}

func (s *Server) handleSelectFiles(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Wizard.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes(maxBytes, s.config.Wizard.MaxBatchFiles))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.errorResponse(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		s.handleError(w, apperr.Validation("files", "no files selected"))
		return
	}

	files := make([]models.PendingFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh, maxBytes)
		if err != nil {
			s.errorResponse(w, fmt.Sprintf("failed to read %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	res, err := ctrl.SelectFiles(files)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"selection": res,
		"state":     ctrl.State(),
	})
}

// maxFormBytes bounds a file selection request to a full batch of files of
// the maximum size.
func maxFormBytes(maxFileBytes int64, maxFiles int) int64 {
	if maxFileBytes <= 0 {
		maxFileBytes = 32 << 20
	}
	if maxFiles <= 0 {
		maxFiles = defaultMaxFilesPerSelection
	}
	return maxFileBytes*int64(maxFiles) + 1<<20
}

// readPart reads one uploaded file. Reading stops one byte past maxBytes so
// the size limit is enforced by the wizard.
func readPart(fh *multipart.FileHeader, maxBytes int64) (models.PendingFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.PendingFile{}, err
	}
	defer src.Close()

	limit := fh.Size
	if maxBytes > 0 && limit > maxBytes {
		limit = maxBytes + 1
	}
	data, err := io.ReadAll(io.LimitReader(src, limit))
	if err != nil {
		return models.PendingFile{}, err
	}

	return models.PendingFile{
		Name:     filepath.Base(fh.Filename),
		MimeType: detectMIME(fh, data),
		Data:     data,
	}, nil
}

func detectMIME(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(fh.Filename)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.errorResponse(w, "invalid file index", http.StatusBadRequest)
		return
	}

	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.RemoveFile(index); err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, ctrl.State())
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.extendWriteDeadline(w, ctrl.PendingCount())
	outcomes, err := ctrl.SubmitUploads(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"outcomes":      outcomes,
		"all_fulfilled": models.AllFulfilled(outcomes),
		"state":         ctrl.State(),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, ctrl.Progress())
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	done, err := ctrl.Finalize(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.wizards.Release(middleware.ClientID(r))
	s.jsonResponse(w, done)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, ctrl.Back())
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		s.errorResponse(w, "invalid step", http.StatusBadRequest)
		return
	}

	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	state, err := ctrl.JumpTo(wizard.Step(step))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, state)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, ctrl.Review())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errorResponse(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.events.ListByClient(r.Context(), middleware.ClientID(r), limit)
	if err != nil {
		s.logger.Error("failed to list wizard events", zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.WizardEvent{}
	}
	s.jsonResponse(w, events)
}

// ---- Dashboard ----

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.FetchInsights(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	if rows == nil {
		rows = []models.CampaignInsight{}
	}
	s.jsonResponse(w, rows)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.FetchInsights(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, models.Summarize(rows))
}

type statusRequest struct {
	Status models.CampaignStatus `json:"status"`
}

func (s *Server) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	status, err := s.reports.SetCampaignStatus(r.Context(), id, req.Status)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"campaign_id": id,
		"status":      status,
	})
}

type reportRequest struct {
	Metrics []string `json:"metrics"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	rows, err := s.reports.FetchReport(r.Context(), req.Metrics)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"metrics": req.Metrics,
		"rows":    rows,
	})
}

type analysisRequest struct {
	Rows []models.ReportRow `json:"rows"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	output, err := s.reports.AnalyzeReport(r.Context(), req.Rows)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.jsonResponse(w, map[string]string{"output": output})
}

// ---- Helpers ----

// uploadDeadlineSlack covers the response write after the last upload.
const uploadDeadlineSlack = 30 * time.Second

// UploadWriteDeadline is how long a batch of files may take to upload and
// answer, given the remote timeout per file.
func UploadWriteDeadline(remoteTimeout time.Duration, files int) time.Duration {
	if files < 1 {
		files = 1
	}
	return remoteTimeout*time.Duration(files) + uploadDeadlineSlack
}

// extendWriteDeadline lets an upload batch outlive the server write timeout.
// Writers without deadline support are left alone.
func (s *Server) extendWriteDeadline(w http.ResponseWriter, files int) {
	d := UploadWriteDeadline(s.config.Remote.Timeout, files)
	if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("failed to extend write deadline", zap.Error(err))
	}
}

func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.UserMessage(err),
		"code":  string(code),
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
