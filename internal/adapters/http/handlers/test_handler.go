// Package handlers agrupa handlers HTTP utilizados para testes e exemplo.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/JeanGrijp/sliding-window-limiter/internal/adapters/http/middleware"
)

// TestHandler responde com uma mensagem simples e a decisão do limiter.
func TestHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"message": "Request successful"}
	if decision, ok := middleware.DecisionFromContext(r.Context()); ok {
		body["rate_limit"] = newDecisionResponse(decision)
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
