package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/buddydiary/buddy-api/app/controllers"
	"github.com/buddydiary/buddy-api/internal/pkg/middleware"
	"github.com/buddydiary/buddy-api/internal/pkg/token"
)

type ApiRouter struct {
	tokens *token.Service
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")
	requireJWT := middleware.RequireJWT(h.tokens)

	auth := v1.Group("/auth")
	auth.Post("/signup", controllers.HandleSignup)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/login/social", controllers.HandleSocialLogin)
	auth.Post("/social/link", controllers.HandleSocialLink)
	auth.Post("/social/exchange", controllers.HandleSocialExchange)
	auth.Post("/refresh", controllers.HandleRefresh)
	auth.Post("/logout", requireJWT, controllers.HandleLogout)
	auth.Delete("/account", requireJWT, controllers.HandleDeleteAccount)

	users := v1.Group("/users", requireJWT)
	users.Get("/me", controllers.HandleGetProfile)
	users.Put("/me/nickname", controllers.HandleUpdateNickname)
	users.Put("/me/password", controllers.HandleUpdatePassword)

	diaries := v1.Group("/diaries", requireJWT)
	diaries.Post("/", controllers.HandleCreateDiary)
	diaries.Get("/", controllers.HandleListDiaries)
	diaries.Get("/:id", controllers.HandleGetDiary)
	diaries.Put("/:id", controllers.HandleUpdateDiary)
	diaries.Delete("/:id", controllers.HandleDeleteDiary)
}

func NewApiRouter(tokens *token.Service) *ApiRouter {
	return &ApiRouter{tokens: tokens}
}
