package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/services"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

// CallerHeader carries the address of the account issuing a request. It is
// set by the wallet gateway in front of the service and trusted as is.
const CallerHeader = "X-Caller-Address"

// Handler serves the ledger HTTP API
type Handler struct {
	service *services.Service
}

func NewHandler(service *services.Service) *Handler {
	return &Handler{service: service}
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err *types.Error) {
	if err.StatusCode >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}

	message := err.Error()
	// internal details are logged, not returned
	if err.StatusCode == http.StatusInternalServerError {
		message = "internal service error"
	}

	writeJSON(w, err.StatusCode, errorResponse{
		ErrorCode: err.ErrorCode.String(),
		Message:   message,
	})
}

func decodeBody(r *http.Request, dst any) *types.Error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return types.NewBadRequestError("invalid request body: %v", err)
	}
	return nil
}

func callerAddress(r *http.Request) (common.Address, *types.Error) {
	value := r.Header.Get(CallerHeader)
	if value == "" {
		return common.Address{}, types.NewBadRequestError("missing %s header", CallerHeader)
	}

	caller, err := pkg.ParseAddress(value)
	if err != nil {
		return common.Address{}, types.NewBadRequestError("invalid %s header: %v", CallerHeader, err)
	}
	return caller, nil
}

var errNotFound = errors.New("route not found")

func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, types.NewError(http.StatusNotFound, types.NotFound, errNotFound))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthCheck(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
