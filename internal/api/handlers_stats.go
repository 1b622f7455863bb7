package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	all, perModel := s.stats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.cfg.LLMProvider,
		"models": map[string]string{
			"small": s.cfg.SmallModel,
			"large": s.cfg.LargeModel,
		},
		"stats":     all,
		"per_model": perModel,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
