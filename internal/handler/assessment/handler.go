package assessment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/handler"
	"github.com/preassess/portal-api/internal/middleware"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/service/assessment"
	"github.com/preassess/portal-api/internal/service/relay"
)

type Handler struct {
	svc *assessment.Service
}

func NewHandler(svc *assessment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, session *middleware.SessionMiddleware) {
	gated := r.Group("", session.RequireConsent())
	{
		gated.GET("/recommendations", h.ListRecommendations)
		gated.POST("/recommendations", h.ForceGenerate)
		gated.POST("/complete", h.Complete)
	}
}

func (h *Handler) ListRecommendations(c *gin.Context) {
	patient := middleware.PatientFromContext(c)

	recs, err := h.svc.ListRecommendations(c.Request.Context(), patient.ID)
	if err != nil {
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("recommendation list failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(recs))
}

// ForceGenerate asks the agent to synthesize recommendations from whatever
// has been collected so far, for patients who stall before the agent
// volunteers any.
func (h *Handler) ForceGenerate(c *gin.Context) {
	patient := middleware.PatientFromContext(c)
	sessionID := middleware.SessionIDFromContext(c)

	rec, err := h.svc.ForceGenerate(c.Request.Context(), patient, sessionID)
	if err != nil {
		var unavailable *relay.ErrAgentUnavailable
		if errors.As(err, &unavailable) {
			log.Warn().Err(err).Str("patient_id", patient.ID.String()).Msg("agent relay unavailable")
			c.JSON(http.StatusBadGateway, handler.NewErrorResponse("assistant temporarily unavailable, please retry"))
			return
		}
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("recommendation generation failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(rec))
}

func (h *Handler) Complete(c *gin.Context) {
	patient := middleware.PatientFromContext(c)

	if err := h.svc.Complete(c.Request.Context(), patient); err != nil {
		if errors.Is(err, model.ErrAssessmentIncomplete) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(model.ErrAssessmentIncomplete.Error()))
			return
		}
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("assessment completion failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": string(model.PatientStatusCompleted)}))
}
