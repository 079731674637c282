package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tokenBytes is the entropy of an authorization token (256 bits).
const tokenBytes = 32

// ScaServiceImpl implements ports.ScaService: it verifies a step-up factor
// and mints a single-use authorization token.
type ScaServiceImpl struct {
	users    ports.UserRepository
	verifier ports.CredentialVerifier
	store    ports.AuthorizationTokenStore
	audit    ports.AuditWriter
	log      zerolog.Logger

	now    func() time.Time
	random io.Reader
}

// NewScaService creates a new ScaServiceImpl.
func NewScaService(
	users ports.UserRepository,
	verifier ports.CredentialVerifier,
	store ports.AuthorizationTokenStore,
	audit ports.AuditWriter,
	log zerolog.Logger,
) *ScaServiceImpl {
	return &ScaServiceImpl{
		users:    users,
		verifier: verifier,
		store:    store,
		audit:    audit,
		log:      log,
		now:      time.Now,
		random:   rand.Reader,
	}
}

// Issue verifies the presented factor and stores a fresh token valid for
// domain.AuthorizationTokenTTL. Nothing is written on any failure.
func (s *ScaServiceImpl) Issue(ctx context.Context, req ports.IssueTokenRequest) (*ports.IssuedToken, error) {
	if req.UserID == uuid.Nil {
		return nil, apperror.ErrAuthenticationRequired()
	}
	if !req.Method.IsValid() {
		return nil, apperror.Validation("verification method must be pin or biometric")
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrAuthenticationRequired()
	}

	if !user.SCAEnabled {
		s.auditVerify(ctx, req, domain.AuditOutcomeFailure, "sca_not_enabled")
		return nil, apperror.ErrScaNotEnabled()
	}

	// Hashing happens here, before any store call; no lock is held.
	if !s.verify(user, req) {
		s.auditVerify(ctx, req, domain.AuditOutcomeFailure, "invalid_credential")
		s.log.Warn().
			Str("user_id", req.UserID.String()).
			Str("method", string(req.Method)).
			Msg("sca verification failed")
		return nil, apperror.ErrInvalidCredential()
	}
	s.auditVerify(ctx, req, domain.AuditOutcomeSuccess, "")

	value, err := s.newTokenValue()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	now := s.now().UTC()
	token := &domain.AuthorizationToken{
		Token:     value,
		UserID:    user.ID,
		Method:    req.Method,
		Context:   copyContext(req.Context),
		CreatedAt: now,
		ExpiresAt: now.Add(domain.AuthorizationTokenTTL),
	}
	if err := s.store.Issue(ctx, token); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("store token: %w", err))
	}

	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionScaIssue,
		ActorID:      user.ID,
		ResourceType: "authorization_token",
		Outcome:      domain.AuditOutcomeSuccess,
		Details: map[string]string{
			"method":     string(req.Method),
			"expires_at": token.ExpiresAt.Format(time.RFC3339),
		},
	})

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("method", string(req.Method)).
		Time("expires_at", token.ExpiresAt).
		Msg("authorization token issued")

	return &ports.IssuedToken{Token: value, ExpiresAt: token.ExpiresAt}, nil
}

// Inspect returns a live token without consuming it.
func (s *ScaServiceImpl) Inspect(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error) {
	if userID == uuid.Nil {
		return nil, apperror.ErrAuthenticationRequired()
	}
	if token == "" {
		return nil, apperror.ErrTokenExpiredOrConsumed()
	}

	t, err := s.store.Peek(ctx, userID, token)
	if err != nil {
		if errors.Is(err, ports.ErrTokenInvalid) {
			return nil, apperror.ErrTokenExpiredOrConsumed()
		}
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("peek token: %w", err))
	}
	return t, nil
}

func (s *ScaServiceImpl) verify(user *domain.User, req ports.IssueTokenRequest) bool {
	switch req.Method {
	case domain.ScaMethodPIN:
		return user.HasPIN() && s.verifier.VerifyKnowledge(req.PIN, *user.PINHash)
	case domain.ScaMethodBiometric:
		return s.verifier.VerifyPossession(req.Assertion)
	default:
		return false
	}
}

func (s *ScaServiceImpl) auditVerify(ctx context.Context, req ports.IssueTokenRequest, outcome domain.AuditOutcome, reason string) {
	details := map[string]string{"method": string(req.Method)}
	if reason != "" {
		details["reason"] = reason
	}
	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionScaVerify,
		ActorID:      req.UserID,
		ResourceType: "user",
		ResourceID:   req.UserID.String(),
		Outcome:      outcome,
		Details:      details,
	})
}

func (s *ScaServiceImpl) newTokenValue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func copyContext(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
