package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/moduhq/modu/internal/auth/domain"
)

const naverUserinfoURL = "https://openapi.naver.com/v1/nid/me"

// Naver verifies an OAuth access token against the Naver nid/me endpoint.
type Naver struct {
	client *http.Client
	url    string
}

func NewNaver(client *http.Client) *Naver {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &Naver{client: client, url: naverUserinfoURL}
}

func (n *Naver) Verify(ctx context.Context, cred Credential) (domain.Identity, error) {
	var body struct {
		ResultCode string `json:"resultcode"`
		Response   struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := fetchUserinfo(ctx, n.client, n.url, cred.Token, &body); err != nil {
		return domain.Identity{}, err
	}

	// Naver wraps outcomes in a result code; "00" is success.
	if body.ResultCode != "00" || body.Response.ID == "" || body.Response.Email == "" {
		return domain.Identity{}, fmt.Errorf("%w: resultcode %q", ErrProviderRejected, body.ResultCode)
	}

	return domain.Identity{
		Provider:    domain.ProviderNaver,
		ProviderID:  body.Response.ID,
		Email:       body.Response.Email,
		DisplayName: body.Response.Name,
		Image:       body.Response.ProfileImage,
	}, nil
}
