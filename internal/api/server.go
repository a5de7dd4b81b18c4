package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHandler wires the routes and middleware.
func NewHandler(svc Ingester, log zerolog.Logger) http.Handler {
	statements := NewStatementsHandler(svc, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/statements", statements.Upload)
	mux.HandleFunc("GET /api/statements", statements.List)
	mux.HandleFunc("GET /api/statements/{id}", statements.Get)
	mux.HandleFunc("GET /api/statements/{id}/expenses", statements.Expenses)
	mux.HandleFunc("POST /api/statements/{id}/cancel", statements.Cancel)
	mux.HandleFunc("GET /api/health", Health)

	var handler http.Handler = mux
	handler = Logger(log)(handler)
	handler = RequestID(handler)
	handler = Recovery(log)(handler)

	return otelhttp.NewHandler(handler, "expense-importer",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}
