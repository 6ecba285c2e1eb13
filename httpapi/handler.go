package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/isdmx/coderun/sandbox"
)

type languagesResponse struct {
	Languages []string `json:"languages"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req sandbox.ExecutionRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("rejected malformed request body", zap.Error(err))
		writeJSON(s.logger, w, http.StatusBadRequest, sandbox.ExecutionResult{
			Success: false,
			Result:  "invalid request body: " + err.Error(),
			Output:  []string{},
		})
		return
	}

	result := s.executor.Execute(r.Context(), req)
	writeJSON(s.logger, w, statusFor(result), result)
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, languagesResponse{Languages: s.executor.Languages()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a result to its HTTP status. User-code failures are still
// a successful exchange.
func statusFor(result sandbox.ExecutionResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case sandbox.IsCallerError(result.Err):
		return http.StatusBadRequest
	case errors.Is(result.Err, sandbox.ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// writeJSON encodes data before touching the response so an encoding
// failure can still be answered with a result-shaped 500.
func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", zap.Error(err))

		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(sandbox.ExecutionResult{
			Success: false,
			Result:  "failed to encode response: " + err.Error(),
			Output:  []string{},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debug("failed to write response", zap.Error(err))
	}
}
