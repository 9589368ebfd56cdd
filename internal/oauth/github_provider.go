package oauth

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
)

const githubAccept = "application/vnd.github+json"

var githubEndpoints = Endpoints{
	Authorize: "https://github.com/login/oauth/authorize",
	Token:     "https://github.com/login/oauth/access_token",
	User:      "https://api.github.com/user",
	Emails:    "https://api.github.com/user/emails",
}

type githubProvider struct {
	args ProviderArgs
}

func (g *githubProvider) Name() string {
	return "github"
}

func (g *githubProvider) AuthURL(state string) (string, error) {
	if !g.args.canAuthorize() {
		return "", appErr.ErrInvalid
	}
	return authorizeURL(g.args.Endpoints.Authorize, g.args.Config, state, nil), nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *githubProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	if !g.args.canExchange() {
		return nil, appErr.ErrInvalid
	}
	form := url.Values{}
	form.Set("client_id", g.args.Config.ClientID)
	form.Set("client_secret", g.args.Config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", g.args.Config.RedirectURL)
	accessToken, err := exchangeToken(ctx, g.args.Client, "github", g.args.Endpoints.Token, form)
	if err != nil {
		return nil, err
	}
	var user githubUser
	if err := getJSON(ctx, g.args.Client, "github user request", g.args.Endpoints.User, accessToken, githubAccept, &user); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, g.args.Client, "github emails request", g.args.Endpoints.Emails, accessToken, githubAccept, &emails); err != nil {
			return nil, err
		}
		email = pickGithubEmail(emails)
	}
	if user.ID == 0 || email == "" {
		return nil, appErr.ErrInvalid
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Login
	}
	return &Profile{Provider: "github", ProviderUserID: strconv.FormatInt(user.ID, 10), Email: email, Name: name}, nil
}

// pickGithubEmail prefers the primary verified address, then any verified one.
func pickGithubEmail(emails []githubEmail) string {
	var verified string
	for _, item := range emails {
		if !item.Verified {
			continue
		}
		if item.Primary {
			return item.Email
		}
		if verified == "" {
			verified = item.Email
		}
	}
	return verified
}

func newGithubProvider(args interface{}) (Provider, error) {
	cfg, err := decodeProviderArgs(args, githubEndpoints, []string{"read:user", "user:email"})
	if err != nil {
		return nil, err
	}
	return &githubProvider{args: cfg}, nil
}

func init() {
	Register("github", newGithubProvider)
}
