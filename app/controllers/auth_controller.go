package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/internal/pkg/auth"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/usercontext"
)

var authService *auth.Service

// InitializeAuthController wires the auth service used by the auth handlers
func InitializeAuthController(svc *auth.Service) {
	authService = svc
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=150"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SocialLoginRequest struct {
	Provider string `json:"provider" validate:"required"`
	Token    string `json:"token" validate:"required"`
}

type SocialLinkRequest struct {
	Key string `json:"key" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserSummary is the account shape returned alongside tokens
type UserSummary struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse carries tokens on SUCCESS and the link key on
// REQUIRES_LINKING; absent fields are dropped from the JSON.
type LoginResponse struct {
	Status       auth.Status  `json:"status"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *UserSummary `json:"user,omitempty"`
	LinkKey      string       `json:"link_key,omitempty"`
}

func toUserSummary(user *models.User) *UserSummary {
	return &UserSummary{ID: user.ID, Email: user.Email, Name: user.Name}
}

func toLoginResponse(res auth.LoginResult) LoginResponse {
	out := LoginResponse{Status: res.Status, LinkKey: res.LinkKey}
	if res.Status == auth.StatusSuccess {
		out.AccessToken = res.Tokens.AccessToken
		out.RefreshToken = res.Tokens.RefreshToken
		out.User = toUserSummary(res.User)
	}
	return out
}

// HandleSignup registers a local email/password account
func HandleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := authService.Signup(req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}

	return result.Created(c, fiber.Map{"user_id": user.ID})
}

// HandleLogin authenticates with email and password
func HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	res, err := authService.LocalLogin(req.Email, req.Password)
	if err != nil {
		return err
	}

	return result.OK(c, toLoginResponse(res))
}

// HandleSocialLogin verifies a provider credential and reconciles the
// identity; the response status tells the client whether it got tokens or a
// linking ticket.
func HandleSocialLogin(c *fiber.Ctx) error {
	var req SocialLoginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	res, err := authService.SocialLogin(req.Provider, req.Token)
	if err != nil {
		return err
	}

	return result.OK(c, toLoginResponse(res))
}

// HandleSocialLink consumes a linking ticket and attaches the provider
// identity to the existing account
func HandleSocialLink(c *fiber.Ctx) error {
	var req SocialLinkRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	res, err := authService.CompleteLink(req.Key)
	if err != nil {
		return err
	}

	return result.OK(c, toLoginResponse(res))
}

// HandleSocialExchange redeems a redirect-flow login ticket for tokens
func HandleSocialExchange(c *fiber.Ctx) error {
	var req SocialLinkRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	res, err := authService.ExchangeLoginTicket(req.Key)
	if err != nil {
		return err
	}

	return result.OK(c, toLoginResponse(res))
}

// HandleRefresh rotates a refresh token into a fresh pair
func HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := authService.Refresh(req.RefreshToken)
	if err != nil {
		return err
	}

	return result.OK(c, pair)
}

// HandleLogout deletes the caller's refresh session
func HandleLogout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	if err := authService.Logout(userID); err != nil {
		return err
	}

	return result.OK(c, nil)
}

// HandleDeleteAccount removes the caller's account and owned data
func HandleDeleteAccount(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	if err := authService.DeleteAccount(userID); err != nil {
		return err
	}

	return result.OK(c, nil)
}
