package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/extract"
	"github.com/sells-group/invoice-intake/internal/intake"
	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/ledger"
	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/internal/monitoring"
	"github.com/sells-group/invoice-intake/internal/pipeline"
	"github.com/sells-group/invoice-intake/internal/store"
)

// Error codes returned alongside failure messages.
const (
	CodeInvalidUpload    = "invalid_upload"
	CodeNoData           = "no_data"
	CodeExtractionFailed = "extraction_failed"
	CodeInternal         = "internal_error"
)

const (
	msgProcessed       = "Invoice processed successfully"
	msgProcessingError = "Error processing invoice"
	maxFormMemory      = 8 << 20
)

// failure classifies a pipeline error into a status, a client-safe message
// and a code. Internal detail is logged, not returned.
func failure(r *http.Request, err error) (int, string, string) {
	switch {
	case intake.IsValidation(err):
		return http.StatusBadRequest, err.Error(), CodeInvalidUpload
	case errors.Is(err, extract.ErrNoData):
		return http.StatusBadRequest, extract.ErrNoData.Error(), CodeNoData
	case extract.IsFailure(err):
		zap.L().Error("server: extraction failed", zap.String("path", r.URL.Path), zap.Error(err))
		return http.StatusInternalServerError, msgProcessingError, CodeExtractionFailed
	default:
		zap.L().Error("server: processing failed", zap.String("path", r.URL.Path), zap.Error(err))
		return http.StatusInternalServerError, msgProcessingError, CodeInternal
	}
}

// readUpload returns the "file" part of a multipart request body limited
// to the configured upload size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUpload)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", nil, intake.ErrTooLarge
		}
		return "", nil, intake.ErrNoFilePart
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		// A file input submitted with nothing selected arrives as a part
		// with an empty filename, which is parsed as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return "", nil, intake.ErrNoFilename
		}
		return "", nil, intake.ErrNoFilePart
	}
	if hdr.Filename == "" {
		f.Close() //nolint:errcheck
		return "", nil, intake.ErrNoFilename
	}
	return hdr.Filename, f, nil
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, opts pipeline.Options) (*pipeline.Result, error) {
	filename, f, err := s.readUpload(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	return s.deps.Pipeline.Process(r.Context(), filename, f, opts)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	res, err := s.process(w, r, pipeline.Options{Record: true, Dispatch: true})
	if err != nil {
		status, msg, code := failure(r, err)
		writeJSON(w, status, map[string]any{
			"success": false,
			"message": msg,
			"code":    code,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msgProcessed,
		"data":    res.Invoice,
	})
}

func (s *Server) handleAPIExtract(w http.ResponseWriter, r *http.Request) {
	res, err := s.process(w, r, pipeline.Options{Dispatch: true})
	if err != nil {
		status, msg, code := failure(r, err)
		if code == CodeInvalidUpload {
			writeJSON(w, status, map[string]any{"error": msg})
			return
		}
		writeJSON(w, status, map[string]any{
			"success": false,
			"error":   msg,
			"code":    code,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res.Invoice,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "invoice-intake",
		"routes": []string{
			"POST /upload", "POST /api/extract", "GET /api/deliveries",
			"GET /webhook-config", "POST /webhook-config",
			"GET /download-csv", "GET /download-xlsx", "GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().Format(ledger.TimestampLayout),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Settings.Load())
}

// handleSaveConfig accepts HTML checkbox semantics: a flag is on only when
// its form value is "on".
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid form"})
		return
	}
	settings := integration.Settings{
		WebhookEnabled: r.PostForm.Get("webhook_enabled") == "on",
		WebhookURL:     strings.TrimSpace(r.PostForm.Get("webhook_url")),
		HubSpotEnabled: r.PostForm.Get("hubspot_enabled") == "on",
	}
	saved := s.deps.Settings.Save(settings)
	http.Redirect(w, r, "/webhook-config?saved="+strconv.FormatBool(saved), http.StatusSeeOther)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Ledger.Exists() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="extracted_invoices.csv"`)
	if _, err := s.deps.Ledger.WriteTo(w); err != nil {
		if errors.Is(err, ledger.ErrNoLedger) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		zap.L().Error("server: stream ledger", zap.Error(err))
	}
}

func (s *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Ledger.Exists() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="extracted_invoices.xlsx"`)
	if err := s.deps.Ledger.ExportXLSX(w); err != nil {
		zap.L().Error("server: export ledger", zap.Error(err))
	}
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DeliveryFilter{
		Sink:   model.Sink(q.Get("sink")),
		Status: model.DeliveryStatus(q.Get("status")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid " + name})
			return
		}
		*dst = n
	}

	deliveries := []model.Delivery{}
	if s.deps.Deliveries != nil {
		list, err := s.deps.Deliveries.ListDeliveries(r.Context(), filter)
		if err != nil {
			zap.L().Error("server: list deliveries", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": CodeInternal})
			return
		}
		if list != nil {
			deliveries = list
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": deliveries})
}

// handleDeliveryStats reports per-sink delivery health over the last
// ?hours (default 24).
func (s *Server) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid hours"})
			return
		}
		hours = n
	}
	if s.deps.Deliveries == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "delivery log disabled"})
		return
	}

	snap, err := monitoring.NewCollector(s.deps.Deliveries).Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("server: collect delivery stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": CodeInternal})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": snap})
}
