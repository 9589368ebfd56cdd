package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// exchangeToken posts an authorization code grant and returns the access token.
func exchangeToken(ctx context.Context, client *http.Client, provider, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out tokenResponse
	if err := doJSON(client, req, provider+" token exchange", &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("%s token exchange failed: %s %s: %w", provider, out.Error, out.Description, appErr.ErrUnauthorized)
	}
	if out.AccessToken == "" {
		return "", appErr.ErrInvalid
	}
	return out.AccessToken, nil
}

func getJSON(ctx context.Context, client *http.Client, what, endpoint, accessToken, accept string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return doJSON(client, req, what, out)
}

func doJSON(client *http.Client, req *http.Request, what string, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s failed: %s: %s", what, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func authorizeURL(endpoint string, cfg ProviderConfig, state string, extra url.Values) string {
	params := url.Values{}
	params.Set("client_id", cfg.ClientID)
	params.Set("redirect_uri", cfg.RedirectURL)
	params.Set("scope", strings.Join(cfg.Scopes, " "))
	params.Set("state", state)
	for k, v := range extra {
		params[k] = v
	}
	return endpoint + "?" + params.Encode()
}
