package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/app/apptest"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

func register(email, password, confirm string) *user.RegisterRequest {
	return &user.RegisterRequest{
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		FirstName:       "Grace",
		LastName:        "Hopper",
	}
}

func TestRegister(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	admin, _ := h.Admin(t, "ops@example.com")

	resp, err := h.Services.Users.Register(ctx, register(" Grace@Example.com ", apptest.Password, apptest.Password))
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", resp.User.Email)
	assert.True(t, resp.User.IsActive)
	assert.False(t, resp.User.IsAdmin)
	assert.NotEqual(t, apptest.Password, resp.User.Password)
	assert.NotNil(t, resp.User.LastLoginAt)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	claims, err := h.Services.Tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.False(t, claims.IsAdmin)

	inbox, err := h.Services.Notifications.List(ctx, admin.ID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, notification.TypeNewUser, inbox.Notifications[0].Type)
	assert.Contains(t, inbox.Notifications[0].Message, "grace@example.com")
}

func TestRegisterValidation(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	h.Shopper(t, "taken@example.com")

	tests := []struct {
		name string
		req  *user.RegisterRequest
		want error
	}{
		{"mismatched passwords", register("a@example.com", apptest.Password, "Passw0rd?"), apperror.ErrInvalidInput},
		{"weak password", register("a@example.com", "password", "password"), apperror.ErrInvalidInput},
		{"duplicate email", register("TAKEN@example.com", apptest.Password, apptest.Password), apperror.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Services.Users.Register(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	h.Shopper(t, "grace@example.com")

	resp, err := h.Services.Users.Login(ctx, &user.LoginRequest{Email: "GRACE@example.com", Password: apptest.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = h.Services.Users.Login(ctx, &user.LoginRequest{Email: "grace@example.com", Password: "Wr0ngpass"})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = h.Services.Users.Login(ctx, &user.LoginRequest{Email: "nobody@example.com", Password: apptest.Password})
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAdminLoginCarriesAdminClaim(t *testing.T) {
	h := apptest.New(t)
	h.Admin(t, "ops@example.com")

	resp, err := h.Services.Users.Login(context.Background(), &user.LoginRequest{Email: "ops@example.com", Password: apptest.Password})
	require.NoError(t, err)

	claims, err := h.Services.Tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	ids, err := h.Services.Users.ListAdminIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{resp.User.ID}, ids)
}

func TestChangePassword(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	id := h.Shopper(t, "grace@example.com").User.ID
	const next = "N3wPassword"

	err := h.Services.Users.ChangePassword(ctx, id, &user.ChangePasswordRequest{CurrentPassword: "Wr0ngpass", NewPassword: next})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	err = h.Services.Users.ChangePassword(ctx, id, &user.ChangePasswordRequest{CurrentPassword: apptest.Password, NewPassword: "short"})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	require.NoError(t, h.Services.Users.ChangePassword(ctx, id, &user.ChangePasswordRequest{CurrentPassword: apptest.Password, NewPassword: next}))

	_, err = h.Services.Users.Login(ctx, &user.LoginRequest{Email: "grace@example.com", Password: apptest.Password})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = h.Services.Users.Login(ctx, &user.LoginRequest{Email: "grace@example.com", Password: next})
	require.NoError(t, err)

	inbox, err := h.Services.Notifications.List(ctx, id, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, notification.TypePasswordChanged, inbox.Notifications[0].Type)
}

func TestGetProfile(t *testing.T) {
	h := apptest.New(t)
	id := h.Shopper(t, "grace@example.com").User.ID

	u, err := h.Services.Users.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Test Shopper", u.GetFullName())

	_, err = h.Services.Users.GetProfile(context.Background(), 999)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
