package server

import (
	"net/http"
	"strings"
)

type probeRequest struct {
	URL string `json:"url"`
}

func (s *Server) probeURL(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
	} else {
		req.URL = r.URL.Query().Get("url")
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_REQUEST", "url is required")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.prober.Check(r.Context(), req.URL))
}
