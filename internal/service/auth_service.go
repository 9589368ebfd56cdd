package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/model"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/pkg/password"
	"github.com/xxxsen/pdfchat/internal/pkg/timeutil"
	"github.com/xxxsen/pdfchat/internal/repo"
)

const minPasswordLength = 6

// AccountPurger removes everything a user owns in one domain.
type AccountPurger interface {
	PurgeUser(ctx context.Context, userID string) error
}

type AuthService struct {
	users     *repo.UserRepo
	oauths    *repo.OAuthRepo
	purgers   []AccountPurger
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, oauths *repo.OAuthRepo, secret []byte, ttl time.Duration, purgers ...AccountPurger) *AuthService {
	if ttl <= 0 {
		ttl = jwt.SessionTTL
	}
	return &AuthService{users: users, oauths: oauths, purgers: purgers, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) Register(ctx context.Context, name, email, plainPassword string) (*model.User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if !validEmail(email) || len(plainPassword) < minPasswordLength {
		return nil, "", appErr.ErrInvalid
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		Name:         name,
		Role:         model.RoleUser,
		PasswordHash: hash,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := issueToken(user, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if user.PasswordHash == "" {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := issueToken(user, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return appErr.ErrInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" {
		if err := password.Compare(user.PasswordHash, oldPassword); err != nil {
			return appErr.ErrUnauthorized
		}
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, timeutil.NowUnix())
}

// DeleteAccount removes the user together with documents, sessions and linked logins.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	for _, p := range s.purgers {
		if err := p.PurgeUser(ctx, userID); err != nil {
			return fmt.Errorf("purge user data: %w", err)
		}
	}
	if err := s.oauths.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("account deleted", zap.String("user_id", userID))
	return nil
}

func issueToken(user *model.User, secret []byte, ttl time.Duration) (string, error) {
	return jwt.GenerateToken(jwt.Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, secret, ttl)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
