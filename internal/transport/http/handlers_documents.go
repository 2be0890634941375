package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bioport/internal/document"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

type documentResponse struct {
	SourceID          string           `json:"source_id"`
	LocalID           string           `json:"local_id"`
	Version           int              `json:"version"`
	SubjectID         string           `json:"subject_id"`
	OriginalSubjectID string           `json:"original_subject_id,omitempty"`
	Details           document.Details `json:"details"`
	Payload           string           `json:"payload,omitempty"`
	SourceURL         string           `json:"source_url,omitempty"`
	Author            string           `json:"author,omitempty"`
	Comment           string           `json:"comment,omitempty"`
	SavedAt           time.Time        `json:"saved_at"`
}

func toDocumentResponse(d *document.Document) documentResponse {
	return documentResponse{
		SourceID:          d.Key.SourceID,
		LocalID:           d.Key.LocalID,
		Version:           d.Version,
		SubjectID:         string(d.SubjectID),
		OriginalSubjectID: string(d.OriginalSubjectID),
		Details:           d.Details,
		Payload:           d.Payload,
		SourceURL:         d.SourceURL,
		Author:            d.Author,
		Comment:           d.Comment,
		SavedAt:           d.SavedAt,
	}
}

func documentKeyFrom(r *http.Request) domain.DocumentKey {
	return domain.DocumentKey{
		SourceID: chi.URLParam(r, "source"),
		LocalID:  chi.URLParam(r, "local"),
	}
}

func documentFilterFrom(r *http.Request) (document.Filter, error) {
	q := r.URL.Query()
	f := document.Filter{
		SourceID: q.Get("source"),
		Author:   q.Get("author"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.AllVersions = q.Get("all_versions") == "true"
	f.NewestFirst = q.Get("order") == "newest"
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "since must be an RFC 3339 timestamp")
		}
		f.SavedSince = ts
	}
	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "until must be an RFC 3339 timestamp")
		}
		f.SavedUntil = ts
	}
	return f, nil
}

// handleListDocuments is the cross-document history view: revisions
// filtered by source, author, subject and save time. all_versions=true
// includes superseded revisions, order=newest sorts by save time
// descending.
func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	f, err := documentFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if v := r.URL.Query().Get("subject"); v != "" {
		id, err := domain.ParseSubjectID(v)
		if err != nil {
			writeError(w, err)
			return
		}
		f.SubjectID = id
	}
	docs, err := h.documents.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	key := documentKeyFrom(r)
	if v := r.URL.Query().Get("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil || version < 0 {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "version must be a non-negative integer"))
			return
		}
		doc, err := h.documents.Get(r.Context(), key, version)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponse(doc))
		return
	}
	doc, err := h.documents.Current(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleDocumentVersions(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.History(r.Context(), documentKeyFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": out})
}

type saveDocumentRequest struct {
	SubjectID string           `json:"subject_id,omitempty"`
	Details   document.Details `json:"details"`
	Payload   string           `json:"payload,omitempty"`
	SourceURL string           `json:"source_url,omitempty"`
	Comment   string           `json:"comment,omitempty"`
}

func (h *Handler) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var req saveDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc := document.Document{
		Key:       documentKeyFrom(r),
		Details:   req.Details,
		Payload:   req.Payload,
		SourceURL: req.SourceURL,
		Comment:   req.Comment,
	}
	if req.SubjectID != "" {
		id, err := domain.ParseSubjectID(req.SubjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		doc.SubjectID = id
	}
	saved, err := h.ingest.SaveDocument(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(saved))
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.ingest.DeleteDocument(r.Context(), documentKeyFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUndoDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version int `json:"version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.documents.Undo(r.Context(), documentKeyFrom(r), req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleDetachDocument(w http.ResponseWriter, r *http.Request) {
	id, err := h.identify.Detach(r.Context(), documentKeyFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"subject_id": string(id)})
}
