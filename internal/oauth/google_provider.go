package oauth

import (
	"context"
	"net/url"
	"strings"

	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
)

var googleEndpoints = Endpoints{
	Authorize: "https://accounts.google.com/o/oauth2/v2/auth",
	Token:     "https://oauth2.googleapis.com/token",
	User:      "https://openidconnect.googleapis.com/v1/userinfo",
}

type googleProvider struct {
	args ProviderArgs
}

func (g *googleProvider) Name() string {
	return "google"
}

func (g *googleProvider) AuthURL(state string) (string, error) {
	if !g.args.canAuthorize() {
		return "", appErr.ErrInvalid
	}
	extra := url.Values{}
	extra.Set("response_type", "code")
	extra.Set("prompt", "select_account")
	return authorizeURL(g.args.Endpoints.Authorize, g.args.Config, state, extra), nil
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (g *googleProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	if !g.args.canExchange() {
		return nil, appErr.ErrInvalid
	}
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.args.Config.ClientID)
	form.Set("client_secret", g.args.Config.ClientSecret)
	form.Set("redirect_uri", g.args.Config.RedirectURL)
	form.Set("grant_type", "authorization_code")
	accessToken, err := exchangeToken(ctx, g.args.Client, "google", g.args.Endpoints.Token, form)
	if err != nil {
		return nil, err
	}
	var user googleUser
	if err := getJSON(ctx, g.args.Client, "google userinfo", g.args.Endpoints.User, accessToken, "", &user); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(user.Email)
	if user.Sub == "" || email == "" || !user.EmailVerified {
		return nil, appErr.ErrInvalid
	}
	return &Profile{Provider: "google", ProviderUserID: user.Sub, Email: email, Name: strings.TrimSpace(user.Name)}, nil
}

func newGoogleProvider(args interface{}) (Provider, error) {
	cfg, err := decodeProviderArgs(args, googleEndpoints, []string{"openid", "email", "profile"})
	if err != nil {
		return nil, err
	}
	return &googleProvider{args: cfg}, nil
}

func init() {
	Register("google", newGoogleProvider)
}
