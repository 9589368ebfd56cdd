package oauth

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Endpoints overrides provider URLs. Empty fields keep the provider defaults.
type Endpoints struct {
	Authorize string
	Token     string
	User      string
	Emails    string
}

type ProviderArgs struct {
	Config    ProviderConfig
	Client    *http.Client
	Endpoints Endpoints
}

func decodeProviderArgs(args interface{}, defaults Endpoints, scopes []string) (ProviderArgs, error) {
	var out ProviderArgs
	switch v := args.(type) {
	case nil:
	case ProviderArgs:
		out = v
	case *ProviderArgs:
		out = *v
	default:
		return ProviderArgs{}, fmt.Errorf("unexpected oauth provider args %T", args)
	}
	out.Config.RedirectURL = strings.TrimSpace(out.Config.RedirectURL)
	out.Config.ClientID = strings.TrimSpace(out.Config.ClientID)
	out.Config.ClientSecret = strings.TrimSpace(out.Config.ClientSecret)
	if len(out.Config.Scopes) == 0 {
		out.Config.Scopes = scopes
	}
	out.Endpoints = mergeEndpoints(out.Endpoints, defaults)
	if out.Client == nil {
		out.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return out, nil
}

func mergeEndpoints(in, defaults Endpoints) Endpoints {
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Endpoints{
		Authorize: pick(in.Authorize, defaults.Authorize),
		Token:     pick(in.Token, defaults.Token),
		User:      pick(in.User, defaults.User),
		Emails:    pick(in.Emails, defaults.Emails),
	}
}

func (a ProviderArgs) canAuthorize() bool {
	return a.Config.ClientID != "" && a.Config.RedirectURL != ""
}

func (a ProviderArgs) canExchange() bool {
	return a.canAuthorize() && a.Config.ClientSecret != ""
}
