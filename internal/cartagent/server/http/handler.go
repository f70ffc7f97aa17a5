package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/pkg/log"
)

// CommandService is the part of the service the API exposes.
type CommandService interface {
	Dispatch(ctx context.Context, text string, skip bool) service.Result
	Emergency(ctx context.Context) service.Result
	SetFuelLevel(ctx context.Context, level int) (service.FuelResult, error)
	Report() service.StatusReport
	Reset() service.StatusReport
	LinkReady() bool
}

// CommandRequest is the body of POST /command. Text wins over Command when both are set.
type CommandRequest struct {
	Command string `json:"command"`
	Text    string `json:"text"`
	Skip    bool   `json:"skip"`
}

// FuelRequest is the body of POST /fuel.
type FuelRequest struct {
	Level *int `json:"level"`
}

// FuelResponse is returned by POST /fuel.
type FuelResponse struct {
	service.FuelResult
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const maxBodyBytes = 4 << 10

type handler struct {
	svc CommandService
}

func (h *handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := req.Text
	if strings.TrimSpace(text) == "" {
		text = req.Command
	}
	if strings.TrimSpace(text) == "" && !req.Skip {
		respondError(w, http.StatusBadRequest, "command or text is required")
		return
	}

	res := h.svc.Dispatch(r.Context(), text, req.Skip)
	respondJSON(w, resultCode(res), res)
}

func (h *handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Report())
}

func (h *handler) handleFuel(w http.ResponseWriter, r *http.Request) {
	var req FuelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Level == nil {
		respondError(w, http.StatusBadRequest, "level is required")
		return
	}

	res, err := h.svc.SetFuelLevel(r.Context(), *req.Level)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, FuelResponse{FuelResult: res, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, FuelResponse{FuelResult: res})
}

func (h *handler) handleEmergency(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Emergency(r.Context())
	respondJSON(w, resultCode(res), res)
}

func (h *handler) handleReset(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Reset())
}

func (h *handler) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !h.svc.LinkReady() {
		http.Error(w, "serial link not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// resultCode maps a dispatch result to an HTTP status. Only a device failure
// is an error; skipped and unrecognized are normal answers.
func resultCode(res service.Result) int {
	if res.Status == service.StatusFailed {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to write response")
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, errorResponse{Error: msg})
}
