package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bioport/internal/source"
)

type sourceResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url,omitempty"`
	Description   string `json:"description,omitempty"`
	Quality       int    `json:"quality"`
	DefaultStatus int    `json:"default_status"`
}

func toSourceResponse(s *source.Source) sourceResponse {
	return sourceResponse{
		ID:            s.ID,
		URL:           s.URL,
		Description:   s.Description,
		Quality:       s.Quality,
		DefaultStatus: s.DefaultStatus,
	}
}

func (h *Handler) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for i := range sources {
		out = append(out, toSourceResponse(&sources[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (h *Handler) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := h.sources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSourceResponse(src))
}

func (h *Handler) handleRegisterSource(w http.ResponseWriter, r *http.Request) {
	var req sourceResponse
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	src := source.Source{
		ID:            req.ID,
		URL:           req.URL,
		Description:   req.Description,
		Quality:       req.Quality,
		DefaultStatus: req.DefaultStatus,
	}
	if err := h.sources.Register(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	registered, err := h.sources.Get(r.Context(), src.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSourceResponse(registered))
}

// handleUnregisterSource removes a source and everything harvested
// from it, including subjects left without documents.
func (h *Handler) handleUnregisterSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.sources.Get(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	removed, err := h.ingest.DeleteDocumentsForSource(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.sources.Unregister(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents_removed": removed})
}
