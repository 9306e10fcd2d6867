package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	sponsor := testutil.CreateAccount(t, db)

	resp, err := svc.Auth.Register(ctx, &RegisterInput{
		Username:    "  alice ",
		Email:       "Alice@Example.com",
		Password:    "secret123",
		SponsorCode: " " + strings.ToLower(sponsor.ReferralCode),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Account.Username)
	assert.Equal(t, "alice@example.com", resp.Account.Email)
	assert.Equal(t, string(domain.MembershipInactive), resp.Account.MembershipStatus)
	assert.True(t, resp.Account.Balance.IsZero())
	assert.Len(t, resp.Account.ReferralCode, referralCodeLength)
	require.NotNil(t, resp.Account.SponsorCode)
	assert.Equal(t, sponsor.ReferralCode, *resp.Account.SponsorCode)

	claims, err := svc.Auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Account.ID, claims.AccountID)
	assert.Equal(t, "alice", claims.Username)

	stored := testutil.Reload(t, db, resp.Account.ID)
	assert.NotEqual(t, "secret123", stored.Password)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	existing := testutil.CreateAccount(t, db)

	tests := []struct {
		name  string
		input RegisterInput
		err   error
	}{
		{"short username", RegisterInput{Username: "ab", Email: "ab@x.io", Password: "secret123"}, domain.ErrInvalidInput},
		{"bad email", RegisterInput{Username: "bobby", Email: "bobby", Password: "secret123"}, domain.ErrInvalidInput},
		{"weak password", RegisterInput{Username: "bobby", Email: "bobby@x.io", Password: "short"}, ErrWeakPassword},
		{"taken username", RegisterInput{Username: existing.Username, Email: "new@x.io", Password: "secret123"}, ErrUserAlreadyExists},
		{"taken email", RegisterInput{Username: "fresh", Email: existing.Email, Password: "secret123"}, ErrUserAlreadyExists},
		{"unknown sponsor", RegisterInput{Username: "fresh", Email: "fresh@x.io", Password: "secret123", SponsorCode: "NOPE0000"}, ErrUnknownSponsor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := svc.Auth.Register(ctx, &input)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()

	registered, err := svc.Auth.Register(ctx, &RegisterInput{Username: "carol", Email: "carol@x.io", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Auth.Login(ctx, &LoginInput{Username: "carol", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, resp.Account.ID)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Auth.Login(ctx, &LoginInput{Username: "carol", Password: "wrong1234"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.Auth.Login(ctx, &LoginInput{Username: "nobody", Password: "secret123"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	account := testutil.Reload(t, db, registered.Account.ID)
	testutil.Deactivate(t, db, account)
	_, err = svc.Auth.Login(ctx, &LoginInput{Username: "carol", Password: "secret123"})
	assert.True(t, errors.Is(err, ErrUserInactive))
}
