package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/moduhq/modu/internal/auth/domain"
)

const kakaoUserinfoURL = "https://kapi.kakao.com/v2/user/me"

// Kakao verifies an OAuth access token against the Kakao user/me endpoint.
type Kakao struct {
	client *http.Client
	url    string
}

func NewKakao(client *http.Client) *Kakao {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &Kakao{client: client, url: kakaoUserinfoURL}
}

func (k *Kakao) Verify(ctx context.Context, cred Credential) (domain.Identity, error) {
	var body struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := fetchUserinfo(ctx, k.client, k.url, cred.Token, &body); err != nil {
		return domain.Identity{}, err
	}

	if body.ID == 0 || body.KakaoAccount.Email == "" {
		return domain.Identity{}, fmt.Errorf("%w: incomplete userinfo", ErrProviderRejected)
	}

	return domain.Identity{
		Provider:    domain.ProviderKakao,
		ProviderID:  strconv.FormatInt(body.ID, 10),
		Email:       body.KakaoAccount.Email,
		DisplayName: body.KakaoAccount.Profile.Nickname,
		Image:       body.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
