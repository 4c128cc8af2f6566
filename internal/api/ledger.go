package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type tipRequest struct {
	Builder string `json:"builder"`
	Amount  string `json:"amount"`
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type setFeeRequest struct {
	FeeBps *uint64 `json:"fee_bps"`
}

type transferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type ledgerResponse struct {
	Owner       string `json:"owner"`
	FeeBps      uint64 `json:"fee_bps"`
	MaxFeeBps   uint64 `json:"max_fee_bps"`
	TotalVolume string `json:"total_volume"`
	TotalFees   string `json:"total_fees"`
	PendingFees string `json:"pending_fees"`
	Balance     string `json:"balance"`
	EventSeq    uint64 `json:"event_seq"`
}

type builderStatsResponse struct {
	Builder string `json:"builder"`
	Total   string `json:"total"`
	Count   uint64 `json:"count"`
}

type eventsResponse struct {
	Events []*types.LedgerEvent `json:"events"`
	// Next is the sequence to pass as from to continue listing
	Next uint64 `json:"next"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// @Route: POST /v1/tips
func (h *Handler) HandleTip(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req tipRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := h.service.Tip(r.Context(), caller, req.Builder, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// @Route: POST /v1/deposits
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Deposit(r.Context(), caller, req.Amount); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Route: PUT /v1/fee
func (h *Handler) HandleSetFee(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setFeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FeeBps == nil {
		writeError(w, r, types.NewBadRequestError("fee_bps is required"))
		return
	}

	ev, err := h.service.SetFee(r.Context(), caller, *req.FeeBps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// @Route: POST /v1/fees/withdraw
func (h *Handler) HandleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := h.service.WithdrawFees(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// @Route: PUT /v1/owner
func (h *Handler) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAddress(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transferOwnershipRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := h.service.TransferOwnership(r.Context(), caller, req.NewOwner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// @Route: GET /v1/ledger
func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	view := h.service.GetLedger(r.Context())
	writeJSON(w, http.StatusOK, ledgerResponse{
		Owner:       view.Owner.Hex(),
		FeeBps:      view.FeeBps,
		MaxFeeBps:   view.MaxFeeBps,
		TotalVolume: view.TotalVolume.String(),
		TotalFees:   view.TotalFees.String(),
		PendingFees: view.PendingFees.String(),
		Balance:     view.Balance.String(),
		EventSeq:    view.EventSeq,
	})
}

// @Route: GET /v1/builders/{address}
func (h *Handler) HandleGetBuilderStats(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	stats, err := h.service.GetBuilderStats(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, builderStatsResponse{
		Builder: address,
		Total:   stats.Total.String(),
		Count:   stats.Count,
	})
}

// @Route: GET /v1/builders/{address}/total
func (h *Handler) HandleGetBuilderTotal(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetBuilderStats(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total": stats.Total.String()})
}

// @Route: GET /v1/builders/{address}/count
func (h *Handler) HandleGetBuilderCount(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetBuilderStats(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": stats.Count})
}

// @Route: GET /v1/events?from=&limit=
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from := uint64(1)
	if value := query.Get("from"); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			writeError(w, r, types.NewBadRequestError("invalid from: %q", value))
			return
		}
		from = parsed
	}

	var limit int64
	if value := query.Get("limit"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, r, types.NewBadRequestError("invalid limit: %q", value))
			return
		}
		limit = parsed
	}

	events, err := h.service.ListEvents(r.Context(), from, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	next := from
	if len(events) > 0 {
		next = events[len(events)-1].Sequence + 1
	}
	if events == nil {
		events = []*types.LedgerEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Next: next})
}

// @Route: GET /v1/balances/{address}
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	balance, err := h.service.GetBalance(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: address, Balance: balance.String()})
}

// @Route: GET /v1/scores?fid=&address=
func (h *Handler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.GetScores(r.Context(), query.Get("fid"), query.Get("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
