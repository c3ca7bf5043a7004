package result

import "github.com/gofiber/fiber/v2"

// Code is a stable, client-facing result code. The HTTP status is how the
// code travels on the wire; the string code is what frontends switch on.
type Code struct {
	HTTPStatus int
	Code       string
	Message    string
}

var (
	// Success
	Success = Code{fiber.StatusOK, "S000", "request succeeded"}

	// Generic
	InvalidInput        = Code{fiber.StatusBadRequest, "G001", "invalid input"}
	InvalidRequest      = Code{fiber.StatusBadRequest, "G002", "invalid request"}
	Unauthorized        = Code{fiber.StatusUnauthorized, "G003", "authentication required"}
	InternalServerError = Code{fiber.StatusInternalServerError, "G500", "internal server error"}

	// Tokens
	InvalidToken         = Code{fiber.StatusUnauthorized, "T001", "invalid token"}
	ExpiredToken         = Code{fiber.StatusUnauthorized, "T002", "expired token"}
	RefreshTokenNotFound = Code{fiber.StatusUnauthorized, "T003", "refresh token missing or expired"}

	// Members
	EmailDuplicated         = Code{fiber.StatusConflict, "M001", "email already registered"}
	UserNotFound            = Code{fiber.StatusNotFound, "M002", "user not found"}
	InvalidCredentials      = Code{fiber.StatusUnauthorized, "M003", "email or password does not match"}
	CurrentPasswordMismatch = Code{fiber.StatusBadRequest, "M004", "current password does not match"}
	PasswordLoginDisabled   = Code{fiber.StatusBadRequest, "M005", "account has no password login"}
	UnsupportedProvider     = Code{fiber.StatusBadRequest, "M006", "unsupported social login provider"}
	AlreadyLinkedAccount    = Code{fiber.StatusConflict, "M007", "provider already linked to this account"}
	LinkKeyNotFound         = Code{fiber.StatusNotFound, "M008", "link key missing or expired"}

	// Diaries
	DiaryNotFound = Code{fiber.StatusNotFound, "D001", "diary not found"}
)
