package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/oauth"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/pkg/timeutil"
	"github.com/xxxsen/pdfchat/internal/repo"
)

var errNoProvider = errors.New("oauth provider not configured")

type OAuthService struct {
	users     *repo.UserRepo
	oauths    *repo.OAuthRepo
	jwtSecret []byte
	jwtTTL    time.Duration
	providers map[string]oauth.Provider
}

func NewOAuthService(users *repo.UserRepo, oauths *repo.OAuthRepo, secret []byte, ttl time.Duration, providers map[string]oauth.Provider) *OAuthService {
	if providers == nil {
		providers = map[string]oauth.Provider{}
	}
	if ttl <= 0 {
		ttl = jwt.OAuthTTL
	}
	return &OAuthService{
		users:     users,
		oauths:    oauths,
		jwtSecret: secret,
		jwtTTL:    ttl,
		providers: providers,
	}
}

func (s *OAuthService) provider(name string) (oauth.Provider, error) {
	impl := s.providers[strings.ToLower(name)]
	if impl == nil {
		return nil, fmt.Errorf("%s: %w: %w", name, errNoProvider, appErr.ErrInvalid)
	}
	return impl, nil
}

func (s *OAuthService) GetAuthURL(provider, state string) (string, error) {
	impl, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return impl.AuthURL(state)
}

func (s *OAuthService) ExchangeCode(ctx context.Context, provider, code string) (*oauth.Profile, error) {
	impl, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	return impl.ExchangeCode(ctx, code)
}

// LoginOrCreate signs in the account linked to profile. An unknown profile is linked to
// the user with the same email, or to a new user.
func (s *OAuthService) LoginOrCreate(ctx context.Context, profile *oauth.Profile) (*model.User, string, error) {
	if profile == nil || profile.ProviderUserID == "" || profile.Email == "" || profile.Provider == "" {
		return nil, "", appErr.ErrInvalid
	}
	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, "", err
	}
	token, err := issueToken(user, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *OAuthService) resolveUser(ctx context.Context, profile *oauth.Profile) (*model.User, error) {
	account, err := s.oauths.GetByProviderUserID(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil {
		return s.users.GetByID(ctx, account.UserID)
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	now := timeutil.NowUnix()
	email := normalizeEmail(profile.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !appErr.IsNotFound(err) {
			return nil, err
		}
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = &model.User{
			ID:    newID(),
			Email: email,
			Name:  name,
			Role:  model.RoleUser,
			Ctime: now,
			Mtime: now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}
	account = &model.OAuthAccount{
		ID:             newID(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          email,
		DisplayName:    profile.Name,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.oauths.Create(ctx, account); err != nil {
		return nil, err
	}
	return user, nil
}
