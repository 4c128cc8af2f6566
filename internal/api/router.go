package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/observability/tracing"
)

// TraceHeader lets callers correlate their request with the service logs.
const TraceHeader = "X-Trace-Id"

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceMiddleware)

	r.Get("/healthcheck", h.HandleHealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tips", h.HandleTip)
		r.Post("/deposits", h.HandleDeposit)
		r.Put("/fee", h.HandleSetFee)
		r.Post("/fees/withdraw", h.HandleWithdrawFees)
		r.Put("/owner", h.HandleTransferOwnership)

		r.Get("/ledger", h.HandleGetLedger)
		r.Get("/builders/{address}", h.HandleGetBuilderStats)
		r.Get("/builders/{address}/total", h.HandleGetBuilderTotal)
		r.Get("/builders/{address}/count", h.HandleGetBuilderCount)
		r.Get("/events", h.HandleListEvents)
		r.Get("/balances/{address}", h.HandleGetBalance)
		r.Get("/scores", h.HandleGetScores)
	})

	r.NotFound(h.HandleNotFound)
	return r
}

// traceMiddleware attaches a trace id to the request logger, reusing the one
// sent by the caller, and logs the request once it is served.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(TraceHeader); id != "" {
			ctx = tracing.InjectTraceIDValue(ctx, id)
		} else {
			ctx = tracing.InjectTraceID(ctx)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Served request")
	})
}
