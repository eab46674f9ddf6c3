package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/tradecore/internal/service"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all routes registered and request
// logging middleware.
func NewRouter(
	orderSvc *service.OrderService,
	positionSvc *service.PositionService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))

	orderH := NewOrderHandler(orderSvc)
	positionH := NewPositionHandler(positionSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Order routes.
	r.Post("/orders", orderH.CreateOrder)
	r.Get("/orders/{order_key}", orderH.GetOrder)
	r.Post("/orders/{order_key}/submit", orderH.SubmitOrder)
	r.Post("/orders/{order_key}/fills", orderH.ApplyFill)
	r.Delete("/orders/{order_key}", orderH.CancelOrder)

	// Position routes.
	r.Get("/positions/{symbol}", positionH.GetOpenPosition)
	r.Get("/positions/id/{position_id}/orders", positionH.ListOrders)

	// OCA group routes.
	r.Get("/oca/{group}", orderH.ListOCAGroup)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
