package httptransport

import (
	"net/http"
	"strconv"

	"bioport/internal/similarity"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

type matchResponse struct {
	Score float64         `json:"score"`
	A     subjectResponse `json:"subject_a"`
	B     subjectResponse `json:"subject_b"`
}

func (h *Handler) handleTopSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := similarity.Query{
		SourceID:  q.Get("source"),
		SourceID2: q.Get("source2"),
		Sex:       q.Get("sex"),
	}
	if v := q.Get("subject"); v != "" {
		id, err := domain.ParseSubjectID(v)
		if err != nil {
			writeError(w, err)
			return
		}
		query.SubjectID = id
	}
	if v := q.Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "min_score must be a number"))
			return
		}
		query.MinScore = score
	}
	query.Status, _ = strconv.Atoi(q.Get("status"))
	query.Start, _ = strconv.Atoi(q.Get("start"))
	query.Size, _ = strconv.Atoi(q.Get("size"))

	matches, err := h.similar.TopSimilar(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchResponse{
			Score: m.Score,
			A:     toSubjectResponse(m.A),
			B:     toSubjectResponse(m.B),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// handleRefreshSimilarity recomputes scores for one subject when
// given, otherwise for the whole corpus. The bulk run blocks until
// finished and answers 409 when another run holds the guard.
func (h *Handler) handleRefreshSimilarity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id,omitempty"`
		SourceID  string `json:"source_id,omitempty"`
		Force     bool   `json:"force,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.SubjectID != "" {
		id, err := domain.ParseSubjectID(req.SubjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := h.similar.Refresh(r.Context(), id, req.Force); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
		return
	}

	if err := h.similar.RefreshAll(r.Context(), req.SourceID, req.Force); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
