package httptransport

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"bioport/internal/audit"
	dErrors "bioport/pkg/domain-errors"
)

const defaultTokenTTL = 12 * time.Hour

// handleIssueToken exchanges the admin token for an editor token. This
// is the only route guarded by the shared secret instead of a JWT.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.adminToken == "" ||
		subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminToken)) != 1 {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token"))
		return
	}

	var req struct {
		Editor string `json:"editor"`
		TTL    string `json:"ttl,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ttl := defaultTokenTTL
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "ttl must be a positive duration"))
			return
		}
		ttl = parsed
	}

	token, err := h.tokens.Issue(req.Editor, ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":      token,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleChangeLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.audit.List(r.Context(), audit.Filter{
		Table:    q.Get("table"),
		RecordID: q.Get("record"),
		Editor:   q.Get("editor"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	type eventResponse struct {
		ID        string    `json:"id"`
		Editor    string    `json:"editor"`
		Message   string    `json:"message"`
		Table     string    `json:"table"`
		RecordID  string    `json:"record_id"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID.String(),
			Editor:    e.Editor,
			Message:   e.Message,
			Table:     e.Table,
			RecordID:  e.RecordID,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
