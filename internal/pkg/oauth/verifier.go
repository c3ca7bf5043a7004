package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/internal/pkg/env"
)

const (
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	kakaoUserInfoURL   = "https://kapi.kakao.com/v2/user/me"
	naverUserInfoURL   = "https://openapi.naver.com/v1/nid/me"
)

var (
	// ErrInvalidProviderToken covers every provider-side verification
	// failure: network, signature, wrong audience, missing email consent.
	// The distinction is deliberately not surfaced to callers.
	ErrInvalidProviderToken = errors.New("provider token verification failed")
	// ErrUnsupportedProvider is returned for a provider name outside the
	// closed provider set.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// UserInfo is the normalized identity assertion produced by verifying a
// provider credential. Email is a hard precondition: an identity without a
// verifiable email cannot be reconciled against local accounts.
type UserInfo struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
}

// Verifier checks a provider-issued credential with the provider itself and
// maps the response into the common UserInfo shape. Idempotent; no side
// effects beyond the outbound call.
type Verifier interface {
	Verify(credential string) (UserInfo, error)
}

// Verifiers dispatches to the per-provider implementation by name.
type Verifiers struct {
	byName map[string]Verifier
}

// NewVerifiers wires the three provider verifiers from environment config.
func NewVerifiers() *Verifiers {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Verifiers{byName: map[string]Verifier{
		models.PROVIDER_GOOGLE: &GoogleVerifier{
			clientID: env.GetEnv("GOOGLE_KEY", ""),
			client:   client,
			url:      googleTokenInfoURL,
		},
		models.PROVIDER_KAKAO: &KakaoVerifier{client: client, url: kakaoUserInfoURL},
		models.PROVIDER_NAVER: &NaverVerifier{client: client, url: naverUserInfoURL},
	}}
}

// For selects the verifier for the given provider name.
func (v *Verifiers) For(provider string) (Verifier, error) {
	impl, ok := v.byName[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	return impl, nil
}

// GoogleVerifier validates a Google ID token against Google's tokeninfo
// endpoint, which checks the signature server-side, and asserts the token
// was minted for our client id.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
	url      string
}

func (g *GoogleVerifier) Verify(idToken string) (UserInfo, error) {
	resp, err := g.client.Get(g.url + "?id_token=" + url.QueryEscape(idToken))
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, fmt.Errorf("%w: tokeninfo status %d", ErrInvalidProviderToken, resp.StatusCode)
	}

	var payload struct {
		Aud   string `json:"aud"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}

	if payload.Aud != g.clientID {
		return UserInfo{}, fmt.Errorf("%w: audience mismatch", ErrInvalidProviderToken)
	}
	if payload.Email == "" {
		return UserInfo{}, fmt.Errorf("%w: no email claim", ErrInvalidProviderToken)
	}

	return UserInfo{
		Provider:       models.PROVIDER_GOOGLE,
		ProviderUserID: payload.Sub,
		Email:          payload.Email,
		Name:           safeName(payload.Name, payload.Email),
	}, nil
}

// KakaoVerifier calls Kakao's user-info endpoint with the credential as a
// bearer token; a valid response proves possession.
type KakaoVerifier struct {
	client *http.Client
	url    string
}

func (k *KakaoVerifier) Verify(accessToken string) (UserInfo, error) {
	body, err := fetchUserInfo(k.client, k.url, accessToken)
	if err != nil {
		return UserInfo{}, err
	}

	var payload struct {
		ID           json.Number `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname string `json:"nickname"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}

	if payload.KakaoAccount.Email == "" {
		// User declined the email consent scope
		return UserInfo{}, fmt.Errorf("%w: no email claim", ErrInvalidProviderToken)
	}

	return UserInfo{
		Provider:       models.PROVIDER_KAKAO,
		ProviderUserID: payload.ID.String(),
		Email:          payload.KakaoAccount.Email,
		Name:           safeName(payload.KakaoAccount.Profile.Nickname, payload.KakaoAccount.Email),
	}, nil
}

// NaverVerifier calls Naver's profile endpoint with the credential as a
// bearer token.
type NaverVerifier struct {
	client *http.Client
	url    string
}

func (n *NaverVerifier) Verify(accessToken string) (UserInfo, error) {
	body, err := fetchUserInfo(n.client, n.url, accessToken)
	if err != nil {
		return UserInfo{}, err
	}

	var payload struct {
		Response struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}

	if payload.Response.Email == "" {
		return UserInfo{}, fmt.Errorf("%w: no email claim", ErrInvalidProviderToken)
	}

	return UserInfo{
		Provider:       models.PROVIDER_NAVER,
		ProviderUserID: payload.Response.ID,
		Email:          payload.Response.Email,
		Name:           safeName(payload.Response.Name, payload.Response.Email),
	}, nil
}

func fetchUserInfo(client *http.Client, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrInvalidProviderToken, resp.StatusCode)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProviderToken, err)
	}
	return buf, nil
}

func safeName(name, email string) string {
	if name != "" {
		return name
	}
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return "User"
}
