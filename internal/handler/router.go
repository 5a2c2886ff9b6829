package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Services groups the application services the router exposes.
type Services struct {
	Accounts  *service.AccountService
	Orders    *service.OrderService
	Market    *service.MarketService
	Alerts    *service.AlertService
	Portfolio *service.PortfolioService
	Watchlist *service.WatchlistService
	Webhooks  *service.WebhookService
}

// RateLimit configures the limiter applied to mutating routes. A
// non-positive RPS disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

// NewRouter creates a chi router with all routes registered, request logging,
// Content-Type validation and rate limiting middleware.
func NewRouter(svc Services, rl RateLimit, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)
	r.Use(rateLimit(rl))

	accountH := NewAccountHandler(svc.Accounts)
	orderH := NewOrderHandler(svc.Orders)
	stockH := NewStockHandler(svc.Market)
	alertH := NewAlertHandler(svc.Alerts)
	portfolioH := NewPortfolioHandler(svc.Portfolio)
	watchlistH := NewWatchlistHandler(svc.Watchlist)
	webhookH := NewWebhookHandler(svc.Webhooks)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Market routes.
	r.Get("/stocks", stockH.List)
	r.Get("/stocks/search", stockH.Search)
	r.Post("/stocks/simulate-all", stockH.SimulateAll)
	r.Get("/stocks/{symbol}", stockH.Get)
	r.Get("/stocks/{symbol}/quote", stockH.Quote)
	r.Get("/stocks/{symbol}/book", stockH.Book)
	r.Post("/stocks/{symbol}/simulate", stockH.Simulate)

	// Account routes.
	r.Post("/accounts", accountH.Create)
	r.Route("/accounts/{account_id}", func(r chi.Router) {
		r.Get("/", accountH.Get)
		r.Post("/deposits", accountH.Deposit)
		r.Post("/withdrawals", accountH.Withdraw)

		r.Post("/orders", orderH.PlaceOrder)
		r.Get("/orders", orderH.ListOrders)
		r.Get("/orders/{order_id}", orderH.GetOrder)
		r.Delete("/orders/{order_id}", orderH.CancelOrder)

		r.Get("/portfolio", portfolioH.Summary)
		r.Get("/portfolio/holdings", portfolioH.Holdings)
		r.Get("/portfolio/holdings/{symbol}", portfolioH.Holding)

		r.Get("/watchlist", watchlistH.List)
		r.Post("/watchlist", watchlistH.Add)
		r.Delete("/watchlist/{symbol}", watchlistH.Remove)

		r.Post("/alerts", alertH.Create)
		r.Get("/alerts", alertH.List)
		r.Post("/alerts/check", alertH.Check)
		r.Get("/alerts/{alert_id}", alertH.Get)
		r.Patch("/alerts/{alert_id}", alertH.Update)
		r.Delete("/alerts/{alert_id}", alertH.Delete)

		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
	})
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

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
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests that carry a body. If the Content-Type header doesn't start
// with "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && (ct == "" || !strings.HasPrefix(ct, "application/json")) {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit returns middleware that rejects mutating requests with 429 once
// the shared token bucket is empty.
func rateLimit(rl RateLimit) func(http.Handler) http.Handler {
	if rl.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := rl.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rl.RPS), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isMutating(r.Method) && !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
