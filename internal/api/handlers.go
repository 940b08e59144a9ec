package api

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
	"github.com/matzehuels/iterenrich/pkg/report"
)

// Content types for network responses.
const (
	contentTypeJSON = "application/json"
	contentTypeDOT  = "text/vnd.graphviz; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) analyze(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalysisRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateRequest(&req); err != nil {
			s.respondError(w, r, err)
			return
		}
		opts, err := req.options(s.defaults, mode)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		input, gsv, bgv, err := req.input()
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		result, err := s.runner.Execute(r.Context(), input, opts)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		resp := AnalysisResponse{
			Result:               result,
			Validation:           gsv,
			BackgroundValidation: bgv,
		}
		if dot, ok := result.Artifacts[pipeline.ArtifactMergedNetwork]; ok {
			resp.Network = string(dot)
		}
		w.Header().Set("X-Run-ID", result.RunID)
		respondJSON(w, s.logger, http.StatusOK, resp)
	}
}

func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	var req NetworkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.respondError(w, r, err)
		return
	}

	n := report.MergeNetworks(req.Runs)
	switch req.Format {
	case FormatPrompt:
		respondBytes(w, s.logger, contentTypeText, []byte(report.AnalysisPrompt(n)))
	case FormatJSON:
		gv, err := report.ValidateDOT(r.Context(), n.DOT())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, s.logger, http.StatusOK, map[string]any{
			"nodes":    n.Nodes(),
			"edges":    n.Edges(),
			"hubs":     n.Hubs(2),
			"graphviz": gv,
		})
	default:
		respondBytes(w, s.logger, contentTypeDOT, n.DOT())
	}
}

// =============================================================================
// Encoding
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, logger *log.Logger, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

func respondBytes(w http.ResponseWriter, logger *log.Logger, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("write response", "err", err)
	}
}

// respondError maps err to a status code and writes an ErrorResponse.
// Internal errors are logged and hidden from the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	resp := ErrorResponse{
		Error:     errors.UserMessage(err),
		Code:      string(errors.GetCode(err)),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", resp.RequestID)
		resp.Error = "internal error"
	} else {
		s.logger.Debug("rejected request", "path", r.URL.Path, "err", err)
	}
	respondJSON(w, s.logger, status, resp)
}

// statusCode maps error codes to HTTP status codes.
func statusCode(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidGeneSet,
		errors.ErrCodeInvalidLibrary,
		errors.ErrCodeInvalidName,
		errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidMethod,
		errors.ErrCodeInvalidTermSize,
		errors.ErrCodeInvalidThreshold:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeLibraryNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
