package httptransport

import (
	"net/http"

	"bioport/pkg/domain"
)

type pairRequest struct {
	SubjectA string `json:"subject_a"`
	SubjectB string `json:"subject_b"`
}

func (p pairRequest) ids() (domain.SubjectID, domain.SubjectID, error) {
	a, err := domain.ParseSubjectID(p.SubjectA)
	if err != nil {
		return "", "", err
	}
	b, err := domain.ParseSubjectID(p.SubjectB)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, b, err := req.ids()
	if err != nil {
		writeError(w, err)
		return
	}
	survivor, err := h.identify.Identify(r.Context(), a, b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"subject_id": string(survivor)})
}

func (h *Handler) handleAntiIdentify(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, b, err := req.ids()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.identify.AntiIdentify(r.Context(), a, b); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDefer(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, b, err := req.ids()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.identify.Defer(r.Context(), a, b); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeferredPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.identify.DeferredPairs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, map[string]string{
			"subject_a": string(p.Low),
			"subject_b": string(p.High),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": out})
}
