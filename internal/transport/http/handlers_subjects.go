package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bioport/internal/subject"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

type subjectResponse struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	SortKey     string   `json:"sort_key,omitempty"`
	FamilyName  string   `json:"family_name,omitempty"`
	Sex         string   `json:"sex,omitempty"`
	BirthMin    string   `json:"birth_min,omitempty"`
	BirthMax    string   `json:"birth_max,omitempty"`
	DeathMin    string   `json:"death_min,omitempty"`
	DeathMax    string   `json:"death_max,omitempty"`
	BirthPlace  string   `json:"birth_place,omitempty"`
	DeathPlace  string   `json:"death_place,omitempty"`
	Status      int      `json:"status"`
	Sources     []string `json:"sources,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func toSubjectResponse(s *subject.Subject) subjectResponse {
	return subjectResponse{
		ID:          string(s.ID),
		DisplayName: s.DisplayName,
		SortKey:     s.SortKey,
		FamilyName:  s.FamilyName,
		Sex:         s.Sex,
		BirthMin:    s.BirthMin,
		BirthMax:    s.BirthMax,
		DeathMin:    s.DeathMin,
		DeathMax:    s.DeathMax,
		BirthPlace:  s.BirthPlace,
		DeathPlace:  s.DeathPlace,
		Status:      s.Status,
		Sources:     s.Sources,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := subject.Filter{
		Sex:       q.Get("sex"),
		SourceID:  q.Get("source"),
		NameToken: q.Get("name"),
	}
	f.Status, _ = strconv.Atoi(q.Get("status"))
	f.BirthYearMin, _ = strconv.Atoi(q.Get("birth_year_min"))
	f.BirthYearMax, _ = strconv.Atoi(q.Get("birth_year_max"))
	f.DeathYearMin, _ = strconv.Atoi(q.Get("death_year_min"))
	f.DeathYearMax, _ = strconv.Atoi(q.Get("death_year_max"))
	f.Start, _ = strconv.Atoi(q.Get("start"))
	f.Size, _ = strconv.Atoi(q.Get("size"))
	f.FamilyNameOnly = q.Get("family_name_only") == "true"

	subjects, err := h.subjects.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]subjectResponse, 0, len(subjects))
	for i := range subjects {
		out = append(out, toSubjectResponse(&subjects[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": out})
}

// handleGetSubject resolves redirects before loading, so retired ids
// keep answering with the surviving subject.
func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, err := h.registry.Resolve(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	subj, err := h.subjects.Get(ctx, resolved)
	if err != nil {
		writeError(w, err)
		return
	}
	names, err := h.subjects.Names(ctx, resolved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		subjectResponse
		Names []string `json:"names,omitempty"`
	}{toSubjectResponse(subj), names})
}

func (h *Handler) handleSubjectDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, err := h.registry.Resolve(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := documentFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f.SubjectID = resolved
	docs, err := h.documents.List(ctx, f)
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

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status int `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status <= 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "status must be positive"))
		return
	}
	if err := h.subjects.SetStatus(ctx, id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnidentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.identify.Unidentify(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, 0, len(result))
	for _, rid := range result {
		ids = append(ids, string(rid))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": ids})
}
