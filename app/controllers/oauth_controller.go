package controllers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/internal/pkg/auth"
	"github.com/buddydiary/buddy-api/internal/pkg/env"
	"github.com/buddydiary/buddy-api/internal/pkg/oauth"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
)

// HandleOAuthCallback completes the browser redirect flow with the provider
// and hands the identity to the reconciliation engine. The frontend receives
// only an opaque single-use key in the redirect URL, never identity data or
// tokens.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("oauth callback failed: %v", err)
		return redirectFrontend(c, map[string]string{"mode": "error", "code": result.InvalidToken.Code})
	}

	provider := strings.ToLower(u.Provider)
	if !models.IsSupportedProvider(provider) {
		return redirectFrontend(c, map[string]string{"mode": "error", "code": result.UnsupportedProvider.Code})
	}

	res, err := authService.Reconcile(oauth.UserInfo{
		Provider:       provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		Name:           firstNonEmpty(u.Name, u.NickName, u.Email),
	})
	if err != nil {
		log.Warnf("oauth reconciliation failed: %v", err)
		return redirectFrontend(c, map[string]string{"mode": "error", "code": result.InvalidToken.Code})
	}

	if res.Status == auth.StatusRequiresLinking {
		return redirectFrontend(c, map[string]string{"mode": "link", "key": res.LinkKey})
	}

	// Park the login behind a short-lived ticket so the token pair stays out
	// of the redirect URL
	key, err := authService.CreateLoginTicket(res.User.ID)
	if err != nil {
		log.Errorf("login ticket creation failed: %v", err)
		return redirectFrontend(c, map[string]string{"mode": "error", "code": result.InternalServerError.Code})
	}

	return redirectFrontend(c, map[string]string{"mode": "success", "key": key})
}

func redirectFrontend(c *fiber.Ctx, params map[string]string) error {
	base := strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return c.Redirect(base+"/auth/callback?"+q.Encode(), fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
