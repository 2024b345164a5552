// Copyright (c) 2025 BVK Chaitanya

package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// postJSONHandler adapts a typed request handler to a http endpoint taking a
// JSON POST body.
func postJSONHandler[REQ, RESP any](fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			slog.Warn("daemon api handler failed", "path", r.URL.Path, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Warn("could not encode daemon api response", "path", r.URL.Path, "err", err)
		}
	})
}
