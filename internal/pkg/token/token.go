package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired means the token was well-formed and correctly signed but its
	// expiry instant has passed. Callers may silently refresh.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers malformed, tampered or wrongly signed tokens. Callers
	// must re-authenticate.
	ErrInvalid = errors.New("token invalid")
	// ErrSessionNotFound means a syntactically valid refresh token has no
	// matching server-side session (already rotated, or logged out).
	ErrSessionNotFound = errors.New("refresh session not found")
)

// Pair is an access/refresh token set issued together.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service issues and validates HS256-signed tokens carrying only the user id
// and expiry. Refresh tokens are additionally anchored in the RefreshStore so
// they can be revoked and rotated.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
}

// NewService creates a token service. The store keeps at most one live
// refresh token per user.
func NewService(secret string, accessTTL, refreshTTL time.Duration, store RefreshStore) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
	}
}

// IssueAccessToken signs a short-lived access token for the user.
func (s *Service) IssueAccessToken(userID uint) (string, error) {
	return s.sign(userID, s.accessTTL, "")
}

// IssueRefreshToken signs a long-lived refresh token and overwrites the
// user's refresh session with it. Any previously issued refresh token for
// the same user stops working at this point.
func (s *Service) IssueRefreshToken(userID uint) (string, error) {
	// A jti makes every refresh token distinct even within the same second,
	// so rotation can tell the new session value from the superseded one.
	tok, err := s.sign(userID, s.refreshTTL, uuid.NewString())
	if err != nil {
		return "", err
	}
	if err := s.store.Put(userID, tok, s.refreshTTL); err != nil {
		return "", fmt.Errorf("store refresh session: %w", err)
	}
	return tok, nil
}

// IssuePair issues an access and refresh token together (login, rotation).
func (s *Service) IssuePair(userID uint) (Pair, error) {
	access, err := s.IssueAccessToken(userID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.IssueRefreshToken(userID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate checks signature and expiry and returns the user id. It never
// touches the RefreshStore; that lookup belongs to the rotation path only.
func (s *Service) Validate(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalid, claims.Subject)
	}
	return uint(id), nil
}

// Rotate exchanges a refresh token for a fresh pair. The presented token must
// exactly match the stored session value; a superseded or logged-out token
// fails with ErrSessionNotFound even if its signature is still valid.
func (s *Service) Rotate(refreshToken string) (Pair, error) {
	userID, err := s.Validate(refreshToken)
	if err != nil {
		return Pair{}, err
	}

	stored, err := s.store.Get(userID)
	if err != nil {
		return Pair{}, err
	}
	if stored != refreshToken {
		return Pair{}, ErrSessionNotFound
	}

	if err := s.store.Delete(userID); err != nil {
		return Pair{}, fmt.Errorf("drop refresh session: %w", err)
	}

	return s.IssuePair(userID)
}

// Revoke deletes the user's refresh session (logout).
func (s *Service) Revoke(userID uint) error {
	return s.store.Delete(userID)
}

func (s *Service) sign(userID uint, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
