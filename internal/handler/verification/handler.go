package verification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/handler"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/service/verification"
)

type Handler struct {
	svc *verification.Service
}

func NewHandler(svc *verification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	v := r.Group("/verification")
	{
		v.POST("/verify", h.Verify)
		v.POST("/resend", h.Resend)
	}
}

func (h *Handler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request"))
		return
	}

	token, err := h.svc.Verify(c.Request.Context(), req.NationalID, req.SecurityCode)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse(model.ErrInvalidCredentials.Error()))
			return
		}
		log.Error().Err(err).Msg("verification failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("verification unavailable"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.VerifyResponse{Token: token}))
}

// Resend rejects with the same undifferentiated credentials error whether
// the national id was unknown or the phone did not match the registered one.
func (h *Handler) Resend(c *gin.Context) {
	var req model.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request"))
		return
	}

	if err := h.svc.Resend(c.Request.Context(), req.NationalID, req.Phone); err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse(model.ErrInvalidCredentials.Error()))
			return
		}
		log.Error().Err(err).Msg("security code resend failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("resend unavailable"))
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(model.ResendResponse{Accepted: true}))
}
