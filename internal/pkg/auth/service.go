package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/app/repository"
	"github.com/buddydiary/buddy-api/internal/pkg/oauth"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/token"
)

// Status is the outcome of an authentication attempt. Exactly one holds.
type Status string

const (
	StatusSuccess         Status = "SUCCESS"
	StatusRequiresLinking Status = "REQUIRES_LINKING"
)

// LoginResult carries tokens and the user on SUCCESS, or the linking ticket
// key on REQUIRES_LINKING.
type LoginResult struct {
	Status  Status
	Tokens  token.Pair
	User    *models.User
	LinkKey string
}

// VerifierSelector picks the provider verifier by name. *oauth.Verifiers
// satisfies it; tests substitute fakes.
type VerifierSelector interface {
	For(provider string) (oauth.Verifier, error)
}

// Service is the identity core: local login, social login with identity
// reconciliation, link completion, token refresh, logout.
type Service struct {
	users     repository.UserRepository
	links     repository.ProviderAccountRepository
	diaries   repository.DiaryRepository
	tokens    *token.Service
	broker    *oauth.Broker
	verifiers VerifierSelector
}

// NewService wires the auth service from its collaborators.
func NewService(
	repos *repository.Repositories,
	tokens *token.Service,
	broker *oauth.Broker,
	verifiers VerifierSelector,
) *Service {
	return &Service{
		users:     repos.User,
		links:     repos.ProviderAccount,
		diaries:   repos.Diary,
		tokens:    tokens,
		broker:    broker,
		verifiers: verifiers,
	}
}

// Signup registers a local account. A duplicate email, whether seen in the
// pre-check or raised by the unique index in a race, yields the same error.
func (s *Service) Signup(email, password, name string) (*models.User, error) {
	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, result.NewError(result.EmailDuplicated)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, result.WrapError(result.InternalServerError, err)
	}

	user, err := models.CreateUser(name, email, password)
	if err != nil {
		return nil, result.MessageError(result.InvalidInput, err.Error())
	}

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, result.NewError(result.EmailDuplicated)
		}
		return nil, result.WrapError(result.InternalServerError, err)
	}
	return user, nil
}

// LocalLogin authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) LocalLogin(email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, result.NewError(result.InvalidCredentials)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	// bcrypt comparison is constant-time; an empty stored hash (provider-only
	// account) never matches.
	if !user.CheckPassword(password) {
		return LoginResult{}, result.NewError(result.InvalidCredentials)
	}

	return s.succeed(user)
}

// SocialLogin verifies the provider credential and reconciles the resulting
// identity assertion against local accounts.
func (s *Service) SocialLogin(provider, credential string) (LoginResult, error) {
	verifier, err := s.verifiers.For(provider)
	if err != nil {
		return LoginResult{}, result.WrapError(result.UnsupportedProvider, err)
	}

	info, err := verifier.Verify(credential)
	if err != nil {
		// All provider-side failures surface as one generic code
		return LoginResult{}, result.WrapError(result.InvalidToken, err)
	}

	return s.reconcile(info)
}

// reconcile decides, for a verified assertion, between an existing linked
// account (SUCCESS), an existing unlinked account (REQUIRES_LINKING) and a
// brand-new account (created, then SUCCESS).
func (s *Service) reconcile(info oauth.UserInfo) (LoginResult, error) {
	user, err := s.users.GetByEmail(info.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, result.WrapError(result.InternalServerError, err)
		}
		return s.registerSocialUser(info)
	}

	linked, err := s.links.ExistsByUserAndProvider(user.ID, info.Provider)
	if err != nil {
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	if !linked {
		// Never attach the link silently: park the assertion behind an
		// opaque single-use key and require explicit confirmation.
		key, err := s.broker.CreateLinkTicket(info)
		if err != nil {
			return LoginResult{}, result.WrapError(result.InternalServerError, err)
		}
		return LoginResult{Status: StatusRequiresLinking, LinkKey: key}, nil
	}

	// Trust is anchored at link-creation time; the stored subject id is not
	// re-compared here since the provider re-authenticated the assertion.
	return s.succeed(user)
}

// registerSocialUser creates a provider-only account and its link in one
// atomic unit.
func (s *Service) registerSocialUser(info oauth.UserInfo) (LoginResult, error) {
	user, err := models.CreateSocialUser(info.Name, info.Email)
	if err != nil {
		return LoginResult{}, result.MessageError(result.InvalidInput, err.Error())
	}

	link := &models.ProviderAccount{
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
	}
	if err := s.users.CreateWithProvider(user, link); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a creation race; the email or external identity now exists
			return LoginResult{}, result.NewError(result.EmailDuplicated)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	return s.succeed(user)
}

// CompleteLink consumes a linking ticket and attaches the provider identity
// to the account it named.
func (s *Service) CompleteLink(key string) (LoginResult, error) {
	info, err := s.broker.ConsumeLinkTicket(key)
	if err != nil {
		if errors.Is(err, oauth.ErrTicketNotFound) {
			return LoginResult{}, result.NewError(result.LinkKeyNotFound)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	user, err := s.users.GetByEmail(info.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, result.NewError(result.UserNotFound)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	linked, err := s.links.ExistsByUserAndProvider(user.ID, info.Provider)
	if err != nil {
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}
	if linked {
		return LoginResult{}, result.NewError(result.AlreadyLinkedAccount)
	}

	err = s.links.Create(&models.ProviderAccount{
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent completion won the race; same outcome for caller
			return LoginResult{}, result.NewError(result.AlreadyLinkedAccount)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	return s.succeed(user)
}

// Refresh rotates a refresh token into a fresh pair.
func (s *Service) Refresh(refreshToken string) (token.Pair, error) {
	pair, err := s.tokens.Rotate(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrSessionNotFound):
			return token.Pair{}, result.NewError(result.RefreshTokenNotFound)
		case errors.Is(err, token.ErrExpired), errors.Is(err, token.ErrInvalid):
			return token.Pair{}, result.WrapError(result.InvalidToken, err)
		default:
			return token.Pair{}, result.WrapError(result.InternalServerError, err)
		}
	}
	return pair, nil
}

// Logout drops the user's refresh session; outstanding access tokens simply
// age out.
func (s *Service) Logout(userID uint) error {
	if err := s.tokens.Revoke(userID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	return nil
}

// ExchangeLoginTicket redeems a post-redirect login ticket for tokens.
func (s *Service) ExchangeLoginTicket(key string) (LoginResult, error) {
	userID, err := s.broker.ConsumeLoginTicket(key)
	if err != nil {
		if errors.Is(err, oauth.ErrTicketNotFound) {
			return LoginResult{}, result.NewError(result.LinkKeyNotFound)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, result.NewError(result.UserNotFound)
		}
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	return s.succeed(user)
}

// Reconcile runs the reconciliation engine for an externally verified
// assertion (redirect-based flow).
func (s *Service) Reconcile(info oauth.UserInfo) (LoginResult, error) {
	if info.Email == "" {
		return LoginResult{}, result.NewError(result.InvalidToken)
	}
	info.Email = models.NormalizeEmail(info.Email)
	return s.reconcile(info)
}

// CreateLoginTicket parks a successful redirect login for the token exchange.
func (s *Service) CreateLoginTicket(userID uint) (string, error) {
	return s.broker.CreateLoginTicket(userID)
}

// DeleteAccount revokes the session and removes the user with owned data.
func (s *Service) DeleteAccount(userID uint) error {
	if err := s.tokens.Revoke(userID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	if err := s.links.DeleteByUserID(userID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	if err := s.diaries.DeleteByUserID(userID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	if err := s.users.Delete(userID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	return nil
}

// succeed issues a token pair and stamps the login time.
func (s *Service) succeed(user *models.User) (LoginResult, error) {
	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return LoginResult{}, result.WrapError(result.InternalServerError, err)
	}

	if err := s.users.UpdateLastLogin(user.ID, time.Now()); err != nil {
		log.Warnf("failed to update last login for user %d: %v", user.ID, err)
	}

	return LoginResult{Status: StatusSuccess, Tokens: pair, User: user}, nil
}
