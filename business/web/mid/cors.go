// Package mid contains the set of middleware functions.
package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/utxochain/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// The request origin is echoed back when it is one of the allowed origins,
// a "*" entry allows every origin.
func Cors(origins ...string) web.Middleware {
	allowAll := slices.Contains(origins, "*")

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")

			case origin != "" && slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
