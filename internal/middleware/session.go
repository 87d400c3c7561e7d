package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/handler"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/internal/service/session"
)

const (
	contextPatient   = "patient"
	contextSessionID = "session_id"
)

// SessionMiddleware is the single choke point for token resolution: every
// token-scoped route passes through Resolve before any handler runs, and a
// failed resolution aborts with no patient data in scope.
type SessionMiddleware struct {
	resolver *session.Service
	consents repository.ConsentRepository
}

func NewSessionMiddleware(resolver *session.Service, consents repository.ConsentRepository) *SessionMiddleware {
	return &SessionMiddleware{
		resolver: resolver,
		consents: consents,
	}
}

func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing session token"))
			return
		}

		patient, sid, err := m.resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			// Resolution failure routes the patient back to verification.
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid or expired session"))
			return
		}

		c.Set(contextPatient, patient)
		c.Set(contextSessionID, sid)
		c.Next()
	}
}

// RequireConsent blocks conversation access until data-processing consent
// has been recorded for the patient.
func (m *SessionMiddleware) RequireConsent() gin.HandlerFunc {
	return func(c *gin.Context) {
		patient := PatientFromContext(c)
		if patient == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid or expired session"))
			return
		}

		ok, err := m.consents.Exists(c.Request.Context(), patient.ID)
		if err != nil {
			log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("consent lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse(model.ErrConsentRequired.Error()))
			return
		}
		c.Next()
	}
}

// PatientFromContext returns the resolved patient, or nil outside a
// session-scoped route.
func PatientFromContext(c *gin.Context) *model.Patient {
	v, ok := c.Get(contextPatient)
	if !ok {
		return nil
	}
	patient, ok := v.(*model.Patient)
	if !ok {
		return nil
	}
	return patient
}

// SessionIDFromContext returns the opaque session id used as the agent's
// session identity.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(contextSessionID)
}
