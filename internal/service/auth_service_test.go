package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/oauth"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/repo"
	"github.com/xxxsen/pdfchat/internal/testutil"
)

var authSecret = []byte("auth-secret")

type countingPurger struct {
	users []string
}

func (p *countingPurger) PurgeUser(ctx context.Context, userID string) error {
	p.users = append(p.users, userID)
	return nil
}

func TestAuthRegisterLoginAndDelete(t *testing.T) {
	conn := testutil.OpenTestDB(t)
	purger := &countingPurger{}
	auth := NewAuthService(repo.NewUserRepo(conn), repo.NewOAuthRepo(conn), authSecret, time.Hour, purger)
	ctx := context.Background()

	user, token, err := auth.Register(ctx, "", " Ann@Example.com ", "secret1")
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", user.Email)
	require.Equal(t, "ann", user.Name)
	claims, err := jwt.ParseToken(token, authSecret)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Identity.ID)

	_, _, err = auth.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.ErrorIs(t, err, appErr.ErrConflict)
	_, _, err = auth.Register(ctx, "Bob", "not-an-email", "secret1")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, _, err = auth.Login(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, _, err = auth.Login(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)

	require.ErrorIs(t, auth.ChangePassword(ctx, user.ID, "wrong", "secret2"), appErr.ErrUnauthorized)
	require.NoError(t, auth.ChangePassword(ctx, user.ID, "secret1", "secret2"))
	_, _, err = auth.Login(ctx, "ANN@example.com", "secret2")
	require.NoError(t, err)

	require.NoError(t, auth.DeleteAccount(ctx, user.ID))
	require.Equal(t, []string{user.ID}, purger.users)
	_, err = auth.CurrentUser(ctx, user.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestOAuthLinksExistingEmail(t *testing.T) {
	conn := testutil.OpenTestDB(t)
	users := repo.NewUserRepo(conn)
	oauths := repo.NewOAuthRepo(conn)
	auth := NewAuthService(users, oauths, authSecret, time.Hour)
	svc := NewOAuthService(users, oauths, authSecret, time.Hour, nil)
	ctx := context.Background()

	existing, _, err := auth.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)

	profile := &oauth.Profile{Provider: "github", ProviderUserID: "42", Email: "Ann@example.com", Name: "ann-gh"}
	linked, token, err := svc.LoginOrCreate(ctx, profile)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, existing.ID, linked.ID)

	again, _, err := svc.LoginOrCreate(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, existing.ID, again.ID)

	fresh, _, err := svc.LoginOrCreate(ctx, &oauth.Profile{Provider: "google", ProviderUserID: "g-1", Email: "new@example.com"})
	require.NoError(t, err)
	require.NotEqual(t, existing.ID, fresh.ID)
	require.Equal(t, "new", fresh.Name)

	_, _, err = auth.Login(ctx, "new@example.com", "")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}
