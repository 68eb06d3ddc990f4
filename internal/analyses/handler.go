package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/server/middleware"
	"internship-portal/internal/shared/server/respond"
	"internship-portal/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/:id/analyze", h.startAnalysis)
	rg.GET("/resumes/:id/analysis", h.listForResume)
	rg.GET("/resumes/:id/analysis/latest", h.latestForResume)
	rg.GET("/analysis/:id", h.getAnalysis)
	rg.POST("/analysis/:id/rescan", h.rescan)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	middleware.SetResumeID(c, resumeID)
	ctx := c.Request.Context()

	rec, err := h.Svc.Enqueue(ctx, resumeID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccessDenied):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrPublishFailed):
			middleware.SetAnalysisID(c, rec.ID)
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "analysis recorded but could not be queued; retry with rescan", map[string]string{
				"analysisId": rec.ID,
			})
		default:
			telemetry.Error("analysis.enqueue_failed", map[string]any{"resume_id": resumeID, "error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	middleware.SetAnalysisID(c, rec.ID)
	middleware.SetTransition(c, "none", StatusPending)
	respond.Accepted(c, gin.H{
		"analysisId": rec.ID,
		"status":     rec.Status,
		"message":    "Analysis started. Check back shortly for results.",
	})
}

func (h *Handler) listForResume(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	middleware.SetResumeID(c, resumeID)

	records, err := h.Svc.ListForResume(c.Request.Context(), resumeID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	items := make([]Summary, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.Summary())
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) latestForResume(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	middleware.SetResumeID(c, resumeID)

	rec, ok, err := h.Svc.LatestSuccessful(c.Request.Context(), resumeID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		return
	}
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "no completed analysis for this resume", nil)
		return
	}
	middleware.SetAnalysisID(c, rec.ID)
	respond.OK(c, rec)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	middleware.SetAnalysisID(c, analysisID)

	rec, ok, err := h.Svc.GetByID(c.Request.Context(), analysisID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		return
	}
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		return
	}
	middleware.SetResumeID(c, rec.ResumeID)
	respond.OK(c, rec)
}

func (h *Handler) rescan(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	middleware.SetAnalysisID(c, analysisID)
	ctx := c.Request.Context()

	rec, err := h.Svc.Rescan(ctx, analysisID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		case errors.Is(err, ErrPublishFailed):
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "analysis reset but could not be queued; try again", map[string]string{
				"analysisId": rec.ID,
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to rescan analysis", nil)
		}
		return
	}

	middleware.SetResumeID(c, rec.ResumeID)
	middleware.SetTransition(c, "rescan", StatusPending)
	respond.Accepted(c, gin.H{
		"analysisId": rec.ID,
		"status":     rec.Status,
		"message":    "Rescan started. Check back shortly for results.",
	})
}
