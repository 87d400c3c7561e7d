package conversation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/handler"
	"github.com/preassess/portal-api/internal/middleware"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/internal/service/conversation"
	"github.com/preassess/portal-api/internal/service/relay"
)

type Handler struct {
	conversations *conversation.Service
	relay         *relay.Service
	consents      repository.ConsentRepository
}

func NewHandler(conversations *conversation.Service, relaySvc *relay.Service, consents repository.ConsentRepository) *Handler {
	return &Handler{
		conversations: conversations,
		relay:         relaySvc,
		consents:      consents,
	}
}

// RegisterRoutes mounts the conversation endpoints on a session-scoped
// group. Consent recording stays outside the consent gate so a patient can
// grant it in the first place.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, session *middleware.SessionMiddleware) {
	r.POST("/consent", h.RecordConsent)

	gated := r.Group("", session.RequireConsent())
	{
		gated.GET("/messages", h.ListMessages)
		gated.POST("/messages", h.SendMessage)
	}
}

// ListMessages returns the full conversation log, seeding the greeting on
// the first read. Repeated calls never duplicate the greeting.
func (h *Handler) ListMessages(c *gin.Context) {
	patient := middleware.PatientFromContext(c)

	messages, err := h.conversations.Bootstrap(c.Request.Context(), patient.ID)
	if err != nil {
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("conversation bootstrap failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(messages))
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req model.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request"))
		return
	}

	patient := middleware.PatientFromContext(c)
	sessionID := middleware.SessionIDFromContext(c)

	reply, err := h.relay.Exchange(c.Request.Context(), patient, sessionID, req.Content)
	if err != nil {
		var unavailable *relay.ErrAgentUnavailable
		if errors.As(err, &unavailable) {
			// The patient's message is already persisted; only the reply
			// is missing, so the client may retry.
			log.Warn().Err(err).Str("patient_id", patient.ID.String()).Msg("agent relay unavailable")
			c.JSON(http.StatusBadGateway, handler.NewErrorResponse("assistant temporarily unavailable, please retry"))
			return
		}
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("message exchange failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(reply))
}

func (h *Handler) RecordConsent(c *gin.Context) {
	var req model.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request"))
		return
	}

	patient := middleware.PatientFromContext(c)
	consent := &model.Consent{
		PatientID: patient.ID,
		Version:   req.Version,
	}
	if err := h.consents.Create(c.Request.Context(), consent); err != nil {
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("consent record failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(consent))
}
