package activation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/pkg/clock"
	"github.com/go-batchform-api/internal/pkg/id"
	pkgtoken "github.com/go-batchform-api/internal/pkg/token"
)

// Service issues activation tokens and consumes them. Tokens come in pairs:
// one rides the activation email, the other is handed to the web client.
// Every call to IssueRecord produces a fresh pair and a fresh aggregate
// record; earlier unexpired records stay valid.
type Service interface {
	IssueRecord(ctx context.Context, userID string) (*domain.VerificationRecord, error)
	Activate(ctx context.Context, token string) (*domain.User, error)
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.ActivationToken) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.VerificationRecord) error
	GetByToken(ctx context.Context, token string) (*domain.VerificationRecord, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
}

type service struct {
	tokenRepo        tokenStore
	verificationRepo verificationStore
	userRepo         userStore
	clk              clock.Clock
}

type ServiceDeps struct {
	TokenRepo        tokenStore
	VerificationRepo verificationStore
	UserRepo         userStore
	Clock            clock.Clock
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &service{
		tokenRepo:        deps.TokenRepo,
		verificationRepo: deps.VerificationRepo,
		userRepo:         deps.UserRepo,
		clk:              clk,
	}
}

// IssueRecord generates both channel tokens, persists each against the user,
// and stores the aggregate record with an advisory expiry of now + 300s.
func (s *service) IssueRecord(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	now := s.clk.Now()

	emailToken, err := s.issueToken(ctx, userID, domain.ChannelEmail, now)
	if err != nil {
		return nil, err
	}
	webToken, err := s.issueToken(ctx, userID, domain.ChannelWeb, now)
	if err != nil {
		return nil, err
	}

	record := &domain.VerificationRecord{
		RecordID:   id.New(),
		UserID:     userID,
		TokenEmail: emailToken,
		TokenWeb:   webToken,
		ExpiresAt:  now.Add(domain.ActivationTokenTTL).Unix(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.verificationRepo.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Activate consumes a channel token: unknown tokens map to not-found,
// expired ones to unauthorized, and a valid token flips the user to active.
// Expiry is advisory and only enforced here.
func (s *service) Activate(ctx context.Context, token string) (*domain.User, error) {
	record, err := s.verificationRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("activation token not found: %w", domain.ErrNotFound)
	}
	if record.ExpiresAt < s.clk.Now().Unix() {
		return nil, fmt.Errorf("activation token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Update(ctx, record.UserID, map[string]interface{}{
		"is_active":  true,
		"updated_at": s.clk.Now(),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("account activated", "user_id", record.UserID, "record_id", record.RecordID)
	return u, nil
}

func (s *service) issueToken(ctx context.Context, userID, channel string, now time.Time) (string, error) {
	value, err := pkgtoken.NewActivationToken()
	if err != nil {
		return "", err
	}
	t := &domain.ActivationToken{
		Token:     value,
		UserID:    userID,
		Channel:   channel,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(domain.ActivationTokenTTL).Unix(),
	}
	if err := s.tokenRepo.Put(ctx, t); err != nil {
		return "", err
	}
	return value, nil
}
