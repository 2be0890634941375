// Package httptransport is the thin HTTP layer over the identity
// services. Handlers decode, delegate and encode; business rules live
// in the services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bioport/internal/audit"
	"bioport/internal/document"
	"bioport/internal/editortoken"
	"bioport/internal/identification"
	"bioport/internal/ingest"
	"bioport/internal/platform/middleware"
	"bioport/internal/registry"
	"bioport/internal/similarity"
	"bioport/internal/source"
	"bioport/internal/subject"
)

// Handler bundles the services the routes delegate to.
type Handler struct {
	logger     *slog.Logger
	registry   *registry.Service
	documents  *document.Service
	subjects   *subject.Service
	similar    *similarity.Service
	identify   *identification.Service
	ingest     *ingest.Service
	sources    *source.Service
	audit      *audit.Recorder
	tokens     *editortoken.Service
	adminToken string
}

func NewHandler(
	logger *slog.Logger,
	reg *registry.Service,
	documents *document.Service,
	subjects *subject.Service,
	similar *similarity.Service,
	identify *identification.Service,
	ingestSvc *ingest.Service,
	sources *source.Service,
	auditor *audit.Recorder,
	tokens *editortoken.Service,
	adminToken string,
) *Handler {
	return &Handler{
		logger:     logger,
		registry:   reg,
		documents:  documents,
		subjects:   subjects,
		similar:    similar,
		identify:   identify,
		ingest:     ingestSvc,
		sources:    sources,
		audit:      auditor,
		tokens:     tokens,
		adminToken: adminToken,
	}
}

// NewRouter wires all endpoints. Reads are public, mutations require
// an editor token.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/auth/token", h.handleIssueToken)

	r.Get("/subjects", h.handleListSubjects)
	r.Get("/subjects/{id}", h.handleGetSubject)
	r.Get("/subjects/{id}/documents", h.handleSubjectDocuments)
	r.Get("/sources", h.handleListSources)
	r.Get("/sources/{id}", h.handleGetSource)
	r.Get("/documents", h.handleListDocuments)
	r.Get("/documents/{source}/{local}", h.handleGetDocument)
	r.Get("/documents/{source}/{local}/versions", h.handleDocumentVersions)
	r.Get("/similar", h.handleTopSimilar)
	r.Get("/deferred", h.handleDeferredPairs)
	r.Get("/changelog", h.handleChangeLog)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireEditor(h.tokens, h.logger))

		r.Put("/documents/{source}/{local}", h.handleSaveDocument)
		r.Delete("/documents/{source}/{local}", h.handleDeleteDocument)
		r.Post("/documents/{source}/{local}/undo", h.handleUndoDocument)
		r.Post("/documents/{source}/{local}/detach", h.handleDetachDocument)

		r.Put("/subjects/{id}/status", h.handleSetStatus)
		r.Post("/subjects/{id}/unidentify", h.handleUnidentify)
		r.Post("/identify", h.handleIdentify)
		r.Post("/anti-identify", h.handleAntiIdentify)
		r.Post("/defer", h.handleDefer)

		r.Post("/sources", h.handleRegisterSource)
		r.Delete("/sources/{id}", h.handleUnregisterSource)

		r.Post("/similarity/refresh", h.handleRefreshSimilarity)
	})

	return r
}
