package auth

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/models"
	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/apperr"
)

type fakeSender struct {
	lastEmail string
	lastCode  string
}

func (f *fakeSender) SendVerification(ctx context.Context, toEmail, firstName, code string) error {
	f.lastEmail = toEmail
	f.lastCode = code
	return nil
}

func (f *fakeSender) SendNewMessage(ctx context.Context, toEmail, senderName, listingTitle, preview string) error {
	return nil
}

func setupAuthDB(t *testing.T) (*gorm.DB, *models.University) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.University{}, &models.User{}))
	uni := &models.University{Name: "State University", EmailDomain: "state.edu"}
	require.NoError(t, db.Create(uni).Error)
	return db, uni
}

func newAuthService(db *gorm.DB, sender *fakeSender) *Service {
	return &Service{DB: db, Emails: sender, JWTSecret: "test-secret", JWTExpiry: time.Hour}
}

func TestRegister_Validation(t *testing.T) {
	db, uni := setupAuthDB(t)
	svc := newAuthService(db, &fakeSender{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "not-an-edu@gmail.com", Password: "short", FirstName: "", LastName: "Doe",
		UniversityID: uni.UniversityID,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	details := apperr.From(err).Details
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "first_name")
}

func TestRegister_DomainMustMatchUniversity(t *testing.T) {
	db, uni := setupAuthDB(t)
	svc := newAuthService(db, &fakeSender{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "jane@other.edu", Password: "passw0rd", FirstName: "Jane", LastName: "Doe",
		UniversityID: uni.UniversityID,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestRegister_UnknownUniversity(t *testing.T) {
	db, _ := setupAuthDB(t)
	svc := newAuthService(db, &fakeSender{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "jane@state.edu", Password: "passw0rd", FirstName: "Jane", LastName: "Doe",
		UniversityID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRegisterVerifyLogin_Flow(t *testing.T) {
	db, uni := setupAuthDB(t)
	sender := &fakeSender{}
	svc := newAuthService(db, sender)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email: "Jane@State.edu", Password: "passw0rd", FirstName: "Jane", LastName: "Doe",
		UniversityID: uni.UniversityID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultReputation, user.ReputationScore)
	assert.Equal(t, "jane@state.edu", sender.lastEmail)
	require.Len(t, sender.lastCode, 6)

	// Unverified accounts cannot log in.
	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@state.edu", Password: "passw0rd"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	// Wrong code rejected.
	_, err = svc.VerifyEmail(context.Background(), "jane@state.edu", "000000x")
	require.Error(t, err)

	result, err := svc.VerifyEmail(context.Background(), "jane@state.edu", sender.lastCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	logged, err := svc.Login(context.Background(), LoginInput{Email: "JANE@state.edu", Password: "passw0rd"})
	require.NoError(t, err)
	assert.NotEmpty(t, logged.Token)

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@state.edu", Password: "wrongpass1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	db, uni := setupAuthDB(t)
	svc := newAuthService(db, &fakeSender{})

	in := RegisterInput{
		Email: "sam@state.edu", Password: "passw0rd", FirstName: "Sam", LastName: "Hill",
		UniversityID: uni.UniversityID,
	}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestLogin_SuspendedAccount(t *testing.T) {
	db, uni := setupAuthDB(t)
	sender := &fakeSender{}
	svc := newAuthService(db, sender)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "sus@state.edu", Password: "passw0rd", FirstName: "Sue", LastName: "Spend",
		UniversityID: uni.UniversityID,
	})
	require.NoError(t, err)
	_, err = svc.VerifyEmail(context.Background(), "sus@state.edu", sender.lastCode)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).
		Where("email = ?", "sus@state.edu").
		UpdateColumn("account_status", models.AccountSuspended).Error)

	_, err = svc.Login(context.Background(), LoginInput{Email: "sus@state.edu", Password: "passw0rd"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}
