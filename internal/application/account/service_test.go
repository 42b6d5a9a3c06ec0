package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-batchform-api/internal/application/dispatch"
	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Insert(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	args := m.Called(ctx, userID, updates)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Put(ctx context.Context, entryID, jti string, revokedAt int64) error {
	return m.Called(ctx, entryID, jti, revokedAt).Error(0)
}

type mockActivation struct{ mock.Mock }

func (m *mockActivation) IssueRecord(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, userID)
	if r, _ := args.Get(0).(*domain.VerificationRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, username, email string, isActive bool, jti string) (string, error) {
	args := m.Called(userID, username, email, isActive, jti)
	return args.String(0), args.Error(1)
}

type mockAvatarStore struct{ mock.Mock }

func (m *mockAvatarStore) UploadBase64(ctx context.Context, avatarID, filename, b64Data string) (string, error) {
	args := m.Called(ctx, avatarID, filename, b64Data)
	return args.String(0), args.Error(1)
}

// recordingDispatcher captures enqueued jobs without a worker.
type recordingDispatcher struct {
	jobs []dispatch.EmailJob
}

func (d *recordingDispatcher) Enqueue(job dispatch.EmailJob) { d.jobs = append(d.jobs, job) }
func (d *recordingDispatcher) Close()                        {}

// --- helpers ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users      *mockUserStore
	ledger     *mockLedger
	activation *mockActivation
	signer     *mockSigner
	avatars    *mockAvatarStore
	dispatcher *recordingDispatcher
	svc        Service
}

func newFixture() *fixture {
	f := &fixture{
		users:      &mockUserStore{},
		ledger:     &mockLedger{},
		activation: &mockActivation{},
		signer:     &mockSigner{},
		avatars:    &mockAvatarStore{},
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:          f.users,
		Ledger:            f.ledger,
		Activation:        f.activation,
		JWTProvider:       f.signer,
		Avatars:           f.avatars,
		Dispatcher:        f.dispatcher,
		ActivationBaseURL: "https://app.example.com",
		Clock:             clock.Fixed{T: testNow},
	})
	return f
}

func baseRegisterReq() RegisterRequest {
	return RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: `Str0ng!pass`,
	}
}

func testRecord(userID string) *domain.VerificationRecord {
	return &domain.VerificationRecord{
		RecordID:   "rec1",
		UserID:     userID,
		TokenEmail: "email-token-1",
		TokenWeb:   "web-token-1",
		ExpiresAt:  testNow.Add(domain.ActivationTokenTTL).Unix(),
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func activeUser(password string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return &domain.User{
		UserID:       "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

// --- Register ---

func TestRegister_EmptyRequest_AccumulatesAllViolations(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Register(context.Background(), RegisterRequest{})
	require.Error(t, err)

	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"email cannot be empty"}, verrs["email"])
	assert.Equal(t, []string{"username cannot be empty"}, verrs["username"])
	assert.Equal(t, []string{
		"password cannot be empty",
		"minimum 8 characters",
		"password must contain lowercase",
		"password must contain uppercase",
		"password must contain special character(s)",
	}, verrs["password"])
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.users.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRegister_WeakPassword_ReportsEachMissingClass(t *testing.T) {
	f := newFixture()

	req := baseRegisterReq()
	req.Password = "alllowercase"

	_, err := f.svc.Register(context.Background(), req)
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{
		"password must contain uppercase",
		"password must contain special character(s)",
	}, verrs["password"])
	assert.NotContains(t, verrs, "email")
	assert.NotContains(t, verrs, "username")
}

func TestRegister_FieldLengthLimits(t *testing.T) {
	f := newFixture()

	req := baseRegisterReq()
	req.Username = strings.Repeat("a", 21)
	req.Email = strings.Repeat("a", 45) + "@example.com"

	_, err := f.svc.Register(context.Background(), req)
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"username must be less than 20 characters"}, verrs["username"])
	assert.Equal(t, []string{"email must be less than 50 characters"}, verrs["email"])
}

func TestRegister_MultibyteUsername_CountsRunesNotBytes(t *testing.T) {
	f := newFixture()

	req := baseRegisterReq()
	req.Username = strings.Repeat("ü", 20) // 40 bytes, 20 characters
	req.Email = ""

	_, err := f.svc.Register(context.Background(), req)
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotContains(t, verrs, "username")

	req.Username = strings.Repeat("ü", 21)
	_, err = f.svc.Register(context.Background(), req)
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"username must be less than 20 characters"}, verrs["username"])
}

func TestRegister_Conflict_Propagates(t *testing.T) {
	f := newFixture()
	f.users.On("Insert", mock.Anything, mock.Anything).
		Return(&domain.ConflictError{Username: "alice", Email: "alice@example.com"})

	_, err := f.svc.Register(context.Background(), baseRegisterReq())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "alice", conflict.Username)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.activation.AssertNotCalled(t, "IssueRecord", mock.Anything, mock.Anything)
	assert.Empty(t, f.dispatcher.jobs)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture()
	var inserted *domain.User
	f.users.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(*domain.User) }).
		Return(nil)
	f.activation.On("IssueRecord", mock.Anything, mock.Anything).
		Return(testRecord("ignored"), nil)

	result, err := f.svc.Register(context.Background(), baseRegisterReq())
	require.NoError(t, err)

	require.NotNil(t, inserted)
	assert.NotEmpty(t, inserted.UserID)
	assert.False(t, inserted.IsActive)
	assert.Equal(t, testNow, inserted.CreatedAt)
	assert.Equal(t, testNow, inserted.UpdatedAt)
	assert.NotEqual(t, "Str0ng!pass", inserted.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.PasswordHash), []byte(`Str0ng!pass`)))

	// The handle carries the web-channel token, never the email one.
	assert.Equal(t, "web-token-1", result.Verification.Token)

	require.Len(t, f.dispatcher.jobs, 1)
	job := f.dispatcher.jobs[0]
	assert.Equal(t, "Account Active", job.Subject)
	assert.Equal(t, "account active", job.Category)
	assert.Equal(t, []string{"alice@example.com"}, job.Recipients)
	assert.Contains(t, job.HTMLBody, "https://app.example.com/account-active?token=email-token-1")
}

// --- Login ---

func TestLogin_EmptyFields(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Login(context.Background(), LoginRequest{})
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"email cannot be empty"}, verrs["email"])
	assert.Equal(t, []string{"password cannot be empty"}, verrs["password"])
}

func TestLogin_UnknownEmail_NotFound(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, errors.New("user not found"))

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_WrongPassword_Unauthorized(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(activeUser("correct-password"), nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InactiveAccount_IssuesFreshVerification(t *testing.T) {
	f := newFixture()
	u := activeUser("Str0ng!pass")
	u.IsActive = false
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	f.activation.On("IssueRecord", mock.Anything, "u1").Return(testRecord("u1"), nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "Str0ng!pass"})
	require.Error(t, err)

	var inactive *domain.InactiveAccountError
	require.ErrorAs(t, err, &inactive)
	assert.Equal(t, "u1", inactive.User.UserID)
	assert.Equal(t, "web-token-1", inactive.Verification.Token)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	// A fresh record and email go out on every attempt.
	f.activation.AssertNumberOfCalls(t, "IssueRecord", 1)
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Contains(t, f.dispatcher.jobs[0].HTMLBody, "email-token-1")
	f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_Active_ReturnsSignedToken(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(activeUser("Str0ng!pass"), nil)
	var gotJTI string
	f.signer.On("Sign", "u1", "alice", "alice@example.com", true, mock.Anything).
		Run(func(args mock.Arguments) { gotJTI = args.String(4) }).
		Return("signed-token", nil)

	result, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, "signed-token", result.AccessToken)
	assert.Equal(t, "u1", result.User.UserID)
	assert.NotEmpty(t, gotJTI)
	f.activation.AssertNotCalled(t, "IssueRecord", mock.Anything, mock.Anything)
}

// --- Logout ---

func TestLogout_AppendsToLedger(t *testing.T) {
	f := newFixture()
	f.ledger.On("Put", mock.Anything, mock.Anything, "jti-1", testNow.Unix()).Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), "jti-1"))
	f.ledger.AssertExpectations(t)
}

func TestLogout_RepeatRevocation_NotAnError(t *testing.T) {
	f := newFixture()
	f.ledger.On("Put", mock.Anything, mock.Anything, "jti-1", testNow.Unix()).Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), "jti-1"))
	require.NoError(t, f.svc.Logout(context.Background(), "jti-1"))
}

// --- UpdatePassword ---

func TestUpdatePassword_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdatePassword(context.Background(), "u1", "", "")
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"password cannot be empty"}, verrs["password"])
	assert.Equal(t, []string{"confirm_password cannot be empty"}, verrs["confirm_password"])
}

func TestUpdatePassword_Mismatch(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdatePassword(context.Background(), "u1", "NewPass!1", "Other!1x")
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"confirm password not match"}, verrs["confirm_password"])
}

func TestUpdatePassword_UnknownUser_Unauthorized(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "ghost").Return(nil, errors.New("user not found"))

	_, err := f.svc.UpdatePassword(context.Background(), "ghost", "NewPass!1", "NewPass!1")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestUpdatePassword_Success_StoresNewHash(t *testing.T) {
	f := newFixture()
	u := activeUser("OldPass!1")
	f.users.On("Get", mock.Anything, "u1").Return(u, nil)
	var updates map[string]interface{}
	f.users.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(2).(map[string]interface{}) }).
		Return(u, nil)

	_, err := f.svc.UpdatePassword(context.Background(), "u1", "NewPass!1", "NewPass!1")
	require.NoError(t, err)

	hash, ok := updates["password_hash"].(string)
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("NewPass!1")))
	assert.Equal(t, testNow, updates["updated_at"])
}

// --- Profile updates ---

func TestUpdateUsername_Empty(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateUsername(context.Background(), "u1", "  ")
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"new username cannot be empty"}, verrs["new_username"])
}

func TestUpdateUsername_Changed_SurfacesNewValue(t *testing.T) {
	f := newFixture()
	before := activeUser("x")
	after := *before
	after.Username = "alice2"
	f.users.On("Get", mock.Anything, "u1").Return(before, nil)
	f.users.On("Update", mock.Anything, "u1",
		map[string]interface{}{"username": "alice2", "updated_at": testNow}).
		Return(&after, nil)

	upd, err := f.svc.UpdateUsername(context.Background(), "u1", "alice2")
	require.NoError(t, err)
	require.NotNil(t, upd.NewUsername)
	assert.Equal(t, "alice2", *upd.NewUsername)
	assert.Nil(t, upd.NewEmail)
}

func TestUpdateUsername_Unchanged_OmitsNewValue(t *testing.T) {
	f := newFixture()
	before := activeUser("x")
	f.users.On("Get", mock.Anything, "u1").Return(before, nil)
	f.users.On("Update", mock.Anything, "u1",
		map[string]interface{}{"username": "alice", "updated_at": testNow}).
		Return(before, nil)

	upd, err := f.svc.UpdateUsername(context.Background(), "u1", "alice")
	require.NoError(t, err)
	assert.Nil(t, upd.NewUsername)
	assert.Nil(t, upd.NewEmail)
}

func TestUpdateEmail_Changed(t *testing.T) {
	f := newFixture()
	before := activeUser("x")
	after := *before
	after.Email = "alice2@example.com"
	f.users.On("Get", mock.Anything, "u1").Return(before, nil)
	f.users.On("Update", mock.Anything, "u1",
		map[string]interface{}{"email": "alice2@example.com", "updated_at": testNow}).
		Return(&after, nil)

	upd, err := f.svc.UpdateEmail(context.Background(), "u1", "alice2@example.com")
	require.NoError(t, err)
	require.NotNil(t, upd.NewEmail)
	assert.Equal(t, "alice2@example.com", *upd.NewEmail)
}

func TestUpdateProfile_BothChanged(t *testing.T) {
	f := newFixture()
	before := activeUser("x")
	after := *before
	after.Username = "bob"
	after.Email = "bob@example.com"
	f.users.On("Get", mock.Anything, "u1").Return(before, nil)
	f.users.On("Update", mock.Anything, "u1",
		map[string]interface{}{"username": "bob", "email": "bob@example.com", "updated_at": testNow}).
		Return(&after, nil)

	upd, err := f.svc.UpdateProfile(context.Background(), "u1", "bob", "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, upd.NewUsername)
	require.NotNil(t, upd.NewEmail)
	assert.Equal(t, "bob", *upd.NewUsername)
	assert.Equal(t, "bob@example.com", *upd.NewEmail)
}

func TestUpdateProfile_EmptyFields(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateProfile(context.Background(), "u1", "", "")
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "new_username")
	assert.Contains(t, verrs, "new_email")
}

func TestUpdateProfile_Conflict_Propagates(t *testing.T) {
	f := newFixture()
	before := activeUser("x")
	f.users.On("Get", mock.Anything, "u1").Return(before, nil)
	f.users.On("Update", mock.Anything, "u1", mock.Anything).
		Return(nil, &domain.ConflictError{Username: "bob"})

	_, err := f.svc.UpdateProfile(context.Background(), "u1", "bob", "bob@example.com")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- GetSelf / SetAvatar ---

func TestGetSelf(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").Return(activeUser("x"), nil)

	u, err := f.svc.GetSelf(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestGetSelf_Unknown_Unauthorized(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "ghost").Return(nil, errors.New("user not found"))

	_, err := f.svc.GetSelf(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestSetAvatar_UploadsAndStoresReference(t *testing.T) {
	f := newFixture()
	u := activeUser("x")
	u.AvatarID = "av1"
	f.users.On("Get", mock.Anything, "u1").Return(u, nil)
	f.avatars.On("UploadBase64", mock.Anything, "av1", "me.png", "aGVsbG8=").
		Return("s3://bucket/avatars/av1/me.png", nil)
	updated := *u
	updated.Avatar = "s3://bucket/avatars/av1/me.png"
	f.users.On("Update", mock.Anything, "u1",
		map[string]interface{}{
			"avatar":     "s3://bucket/avatars/av1/me.png",
			"avatar_id":  "av1",
			"updated_at": testNow,
		}).
		Return(&updated, nil)

	got, err := f.svc.SetAvatar(context.Background(), "u1", "me.png", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/avatars/av1/me.png", got.Avatar)
}
