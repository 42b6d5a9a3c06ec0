package account

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-batchform-api/internal/application/dispatch"
	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/pkg/clock"
	"github.com/go-batchform-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// specialChars is the punctuation set a password must draw from.
const specialChars = `!@#$%^&*(),.?":{}|<>`

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult carries the new user plus the verification handle the
// client uses to track activation.
type RegisterResult struct {
	User         *domain.User
	Verification *domain.VerificationHandle
}

type LoginResult struct {
	User        *domain.User
	AccessToken string
}

// ProfileUpdate reports the stored user after an update. NewUsername and
// NewEmail are set only when the stored value actually changed.
type ProfileUpdate struct {
	User        *domain.User
	NewUsername *string
	NewEmail    *string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, jti string) error
	UpdatePassword(ctx context.Context, userID, newPassword, confirmPassword string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID, username, email string) (*ProfileUpdate, error)
	UpdateUsername(ctx context.Context, userID, newUsername string) (*ProfileUpdate, error)
	UpdateEmail(ctx context.Context, userID, newEmail string) (*ProfileUpdate, error)
	GetSelf(ctx context.Context, userID string) (*domain.User, error)
	SetAvatar(ctx context.Context, userID, filename, base64Data string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
}

type revocationLedger interface {
	Put(ctx context.Context, entryID, jti string, revokedAt int64) error
}

type activationIssuer interface {
	IssueRecord(ctx context.Context, userID string) (*domain.VerificationRecord, error)
}

type jwtSigner interface {
	Sign(userID, username, email string, isActive bool, jti string) (string, error)
}

type avatarStore interface {
	UploadBase64(ctx context.Context, avatarID, filename, b64Data string) (string, error)
}

type service struct {
	userRepo          userStore
	ledger            revocationLedger
	activation        activationIssuer
	jwtProvider       jwtSigner
	avatars           avatarStore
	dispatcher        dispatch.Dispatcher
	activationBaseURL string
	clk               clock.Clock
}

type ServiceDeps struct {
	UserRepo          userStore
	Ledger            revocationLedger
	Activation        activationIssuer
	JWTProvider       jwtSigner
	Avatars           avatarStore
	Dispatcher        dispatch.Dispatcher
	ActivationBaseURL string
	Clock             clock.Clock
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &service{
		userRepo:          deps.UserRepo,
		ledger:            deps.Ledger,
		activation:        deps.Activation,
		jwtProvider:       deps.JWTProvider,
		avatars:           deps.Avatars,
		dispatcher:        deps.Dispatcher,
		activationBaseURL: deps.ActivationBaseURL,
		clk:               clk,
	}
}

// Register validates all input rules, accumulating every violation before
// returning, then creates the user (inactive), issues a verification record,
// and schedules the activation email.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", "email cannot be empty")
	}
	if strings.TrimSpace(req.Username) == "" {
		errs.Add("username", "username cannot be empty")
	}
	if strings.TrimSpace(req.Password) == "" {
		errs.Add("password", "password cannot be empty")
	}
	if len(req.Password) < 8 {
		errs.Add("password", "minimum 8 characters")
	}
	if !strings.ContainsFunc(req.Password, unicode.IsLower) {
		errs.Add("password", "password must contain lowercase")
	}
	if !strings.ContainsFunc(req.Password, unicode.IsUpper) {
		errs.Add("password", "password must contain uppercase")
	}
	if !strings.ContainsAny(req.Password, specialChars) {
		errs.Add("password", "password must contain special character(s)")
	}
	if utf8.RuneCountInString(req.Username) > domain.MaxUsernameLen {
		errs.Add("username", "username must be less than 20 characters")
	}
	if utf8.RuneCountInString(req.Email) > domain.MaxEmailLen {
		errs.Add("email", "email must be less than 50 characters")
	}
	if !errs.Empty() {
		return nil, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.clk.Now()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		AvatarID:     id.New(),
		Avatar:       req.Avatar,
		IsActive:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Insert(ctx, u); err != nil {
		return nil, err
	}

	record, err := s.activation.IssueRecord(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	s.sendActivationEmail(u, record)

	return &RegisterResult{User: u, Verification: record.Handle()}, nil
}

// Login distinguishes unknown email (not found) from a wrong password
// (unauthorized). An inactive account with correct credentials gets a fresh
// verification record on every attempt and an InactiveAccountError carrying
// the handle instead of a session.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", "email cannot be empty")
	}
	if strings.TrimSpace(req.Password) == "" {
		errs.Add("password", "password cannot be empty")
	}
	if !errs.Empty() {
		return nil, errs
	}

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed login: %w", domain.ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("authorization invalid: %w", domain.ErrUnauthorized)
	}

	if !u.IsActive {
		record, err := s.activation.IssueRecord(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
		s.sendActivationEmail(u, record)
		return nil, &domain.InactiveAccountError{User: u, Verification: record.Handle()}
	}

	bearer, err := s.jwtProvider.Sign(u.UserID, u.Username, u.Email, u.IsActive, id.New())
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, AccessToken: bearer}, nil
}

// Logout appends the session identifier to the revocation ledger. Revoking
// an already-revoked identifier is not an error.
func (s *service) Logout(ctx context.Context, jti string) error {
	return s.ledger.Put(ctx, id.New(), jti, s.clk.Now().Unix())
}

func (s *service) UpdatePassword(ctx context.Context, userID, newPassword, confirmPassword string) (*domain.User, error) {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(newPassword) == "" {
		errs.Add("password", "password cannot be empty")
	}
	if strings.TrimSpace(confirmPassword) == "" {
		errs.Add("confirm_password", "confirm_password cannot be empty")
	}
	if newPassword != confirmPassword {
		errs.Add("confirm_password", "confirm password not match")
	}
	if !errs.Empty() {
		return nil, errs
	}

	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("authorization invalid: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		"password_hash": string(hash),
		"updated_at":    s.clk.Now(),
	}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID, username, email string) (*ProfileUpdate, error) {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(username) == "" {
		errs.Add("new_username", "username cannot be empty")
	}
	if strings.TrimSpace(email) == "" {
		errs.Add("new_email", "email cannot be empty")
	}
	if !errs.Empty() {
		return nil, errs
	}
	return s.applyProfileUpdate(ctx, userID, map[string]interface{}{
		"username": username,
		"email":    email,
	})
}

func (s *service) UpdateUsername(ctx context.Context, userID, newUsername string) (*ProfileUpdate, error) {
	if strings.TrimSpace(newUsername) == "" {
		errs := domain.ValidationErrors{}
		errs.Add("new_username", "new username cannot be empty")
		return nil, errs
	}
	return s.applyProfileUpdate(ctx, userID, map[string]interface{}{"username": newUsername})
}

func (s *service) UpdateEmail(ctx context.Context, userID, newEmail string) (*ProfileUpdate, error) {
	if strings.TrimSpace(newEmail) == "" {
		errs := domain.ValidationErrors{}
		errs.Add("new_email", "new email cannot be empty")
		return nil, errs
	}
	return s.applyProfileUpdate(ctx, userID, map[string]interface{}{"email": newEmail})
}

func (s *service) GetSelf(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("authorization invalid: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

func (s *service) SetAvatar(ctx context.Context, userID, filename, base64Data string) (*domain.User, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("authorization invalid: %w", domain.ErrUnauthorized)
	}
	avatarID := u.AvatarID
	if avatarID == "" {
		avatarID = id.New()
	}
	ref, err := s.avatars.UploadBase64(ctx, avatarID, filename, base64Data)
	if err != nil {
		return nil, err
	}
	return s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		"avatar":     ref,
		"avatar_id":  avatarID,
		"updated_at": s.clk.Now(),
	})
}

// applyProfileUpdate persists the change and compares the stored result
// against the pre-update row: a new_* value is surfaced only when the stored
// value actually differs from what was there before.
func (s *service) applyProfileUpdate(ctx context.Context, userID string, updates map[string]interface{}) (*ProfileUpdate, error) {
	before, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("authorization invalid: %w", domain.ErrUnauthorized)
	}
	updates["updated_at"] = s.clk.Now()
	after, err := s.userRepo.Update(ctx, userID, updates)
	if err != nil {
		return nil, err
	}
	upd := &ProfileUpdate{User: after}
	if after.Username != before.Username {
		upd.NewUsername = &after.Username
	}
	if after.Email != before.Email {
		upd.NewEmail = &after.Email
	}
	return upd, nil
}

func (s *service) sendActivationEmail(u *domain.User, record *domain.VerificationRecord) {
	link := fmt.Sprintf("%s/account-active?token=%s", s.activationBaseURL, record.TokenEmail)
	s.dispatcher.Enqueue(dispatch.EmailJob{
		Subject:    "Account Active",
		Recipients: []string{u.Email},
		HTMLBody:   activationEmailHTML(u.Username, link),
		Category:   "account active",
	})
}

func activationEmailHTML(username, link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Account Active</title>
</head>
<body>
    <p>Hello %s,</p>
    <p>Someone has requested a link to verify your account, and you can do this through the link below.</p>
    <p>
        <a href="%s">
            Click here to activate your account
        </a>
    </p>
    <p>If you didn't request this, please ignore this email.</p>
</body>
</html>
`, username, link)
}
