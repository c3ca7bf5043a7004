package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/repository"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/usercontext"
)

var (
	userRepo     repository.UserRepository
	providerRepo repository.ProviderAccountRepository
)

func InitializeUserController(users repository.UserRepository, providers repository.ProviderAccountRepository) {
	userRepo = users
	providerRepo = providers
}

type UpdateNicknameRequest struct {
	Name string `json:"name" validate:"required,min=2,max=150"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type ProfileResponse struct {
	UserSummary
	HasPassword bool     `json:"has_password"`
	Providers   []string `json:"providers"`
}

func HandleGetProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	user, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result.NewError(result.UserNotFound)
		}
		return result.WrapError(result.InternalServerError, err)
	}

	accounts, err := providerRepo.ListByUserID(userID)
	if err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	providers := make([]string, 0, len(accounts))
	for _, a := range accounts {
		providers = append(providers, a.Provider)
	}

	return result.OK(c, ProfileResponse{
		UserSummary: *toUserSummary(user),
		HasPassword: user.HasPassword(),
		Providers:   providers,
	})
}

func HandleUpdateNickname(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	var req UpdateNicknameRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result.NewError(result.UserNotFound)
		}
		return result.WrapError(result.InternalServerError, err)
	}

	user.Name = req.Name
	if err := userRepo.Update(user); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	return result.OK(c, toUserSummary(user))
}

func HandleUpdatePassword(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	var req UpdatePasswordRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result.NewError(result.UserNotFound)
		}
		return result.WrapError(result.InternalServerError, err)
	}

	// Provider-only accounts never had a password to verify against
	if !user.HasPassword() {
		return result.NewError(result.PasswordLoginDisabled)
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return result.NewError(result.CurrentPasswordMismatch)
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	if err := userRepo.Update(user); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	return result.OK(c, fiber.Map{"updated": true})
}
