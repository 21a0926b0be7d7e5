package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/moduhq/modu/internal/auth/domain"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google verifies an OAuth access token against the Google userinfo
// endpoint. Google exposes an explicit email_verified signal, and we
// require it.
type Google struct {
	client *http.Client
	url    string
}

func NewGoogle(client *http.Client) *Google {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &Google{client: client, url: googleUserinfoURL}
}

func (g *Google) Verify(ctx context.Context, cred Credential) (domain.Identity, error) {
	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := fetchUserinfo(ctx, g.client, g.url, cred.Token, &body); err != nil {
		return domain.Identity{}, err
	}

	if body.Sub == "" || body.Email == "" {
		return domain.Identity{}, fmt.Errorf("%w: incomplete userinfo", ErrProviderRejected)
	}
	if !body.EmailVerified {
		return domain.Identity{}, ErrEmailUnverified
	}

	return domain.Identity{
		Provider:    domain.ProviderGoogle,
		ProviderID:  body.Sub,
		Email:       body.Email,
		DisplayName: body.Name,
		Image:       body.Picture,
	}, nil
}

// fetchUserinfo performs a bearer-authenticated GET and decodes the JSON
// body. Transport failures map to ErrProviderUnavailable, anything the
// provider actively refuses to ErrProviderRejected.
func fetchUserinfo(ctx context.Context, client *http.Client, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed body: %v", ErrProviderRejected, err)
	}
	return nil
}
