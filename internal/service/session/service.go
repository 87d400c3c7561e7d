package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/pkg/metrics"
	"github.com/preassess/portal-api/pkg/security"
)

// Service is the sole authorization mechanism after verification. A token is
// a signed, time-bounded envelope around a random session id; the id
// resolves to exactly one patient or the call fails closed with
// model.ErrInvalidSession.
type Service struct {
	sessions repository.SessionRepository
	patients repository.PatientRepository
	secret   []byte
	expiry   time.Duration
	cache    *cache.Cache
	metrics  *metrics.Metrics
}

func NewService(
	sessions repository.SessionRepository,
	patients repository.PatientRepository,
	cfg config.SessionConfig,
	m *metrics.Metrics,
) *Service {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	cacheExpiry := cfg.CacheExpiry
	if cacheExpiry <= 0 {
		cacheExpiry = time.Minute
	}
	return &Service{
		sessions: sessions,
		patients: patients,
		secret:   []byte(cfg.Secret),
		expiry:   expiry,
		cache:    cache.New(cacheExpiry, 5*cacheExpiry),
		metrics:  m,
	}
}

// Issue replaces the patient's session and returns the signed token.
func (s *Service) Issue(ctx context.Context, patientID uuid.UUID) (string, error) {
	sid, err := security.GenerateSessionID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	expiresAt := time.Now().Add(s.expiry)
	if err := s.sessions.Replace(ctx, &model.Session{
		SID:       sid,
		PatientID: patientID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	claims := model.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		SID: sid,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	s.metrics.SessionsIssued.Inc()
	return token, nil
}

// Resolve maps a token to its patient. Any failure along the way —
// malformed token, bad signature, expired claims, unknown or expired
// session — collapses into model.ErrInvalidSession.
func (s *Service) Resolve(ctx context.Context, token string) (*model.Patient, string, error) {
	sid, err := s.verify(token)
	if err != nil {
		s.metrics.SessionResolutions.WithLabelValues("invalid").Inc()
		return nil, "", model.ErrInvalidSession
	}

	patientID, ok := s.cachedPatientID(sid)
	if !ok {
		session, err := s.sessions.GetBySID(ctx, sid)
		if err != nil {
			s.metrics.SessionResolutions.WithLabelValues("unknown").Inc()
			return nil, "", model.ErrInvalidSession
		}
		patientID = session.PatientID
		s.cache.SetDefault(sid, patientID)
	}

	// The patient record is always read fresh so status changes are
	// visible immediately; only the sid lookup is cached.
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		s.metrics.SessionResolutions.WithLabelValues("unknown").Inc()
		return nil, "", model.ErrInvalidSession
	}

	s.metrics.SessionResolutions.WithLabelValues("ok").Inc()
	return patient, sid, nil
}

func (s *Service) verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &model.SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", model.ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*model.SessionClaims)
	if !ok || claims.SID == "" {
		return "", model.ErrInvalidSession
	}
	return claims.SID, nil
}

func (s *Service) cachedPatientID(sid string) (uuid.UUID, bool) {
	v, ok := s.cache.Get(sid)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
