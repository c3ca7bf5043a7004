package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/buddydiary/buddy-api/app/controllers"
	"github.com/buddydiary/buddy-api/app/repository"
	"github.com/buddydiary/buddy-api/internal/pkg/auth"
	"github.com/buddydiary/buddy-api/internal/pkg/cache"
	"github.com/buddydiary/buddy-api/internal/pkg/database"
	"github.com/buddydiary/buddy-api/internal/pkg/env"
	"github.com/buddydiary/buddy-api/internal/pkg/oauth"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/router"
	"github.com/buddydiary/buddy-api/internal/pkg/token"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	tokens := token.NewService(
		env.GetEnv("JWT_SECRET", ""),
		time.Duration(envInt("JWT_ACCESS_TTL_MINUTES", 15))*time.Minute,
		time.Duration(envInt("JWT_REFRESH_TTL_DAYS", 14))*24*time.Hour,
		token.NewRedisRefreshStore(cache.GetClient()),
	)
	broker := oauth.NewBroker(oauth.NewRedisTicketStore(cache.GetClient()))
	authService := auth.NewService(repos, tokens, broker, oauth.NewVerifiers())

	controllers.InitializeAuthController(authService)
	controllers.InitializeUserController(repos.User, repos.ProviderAccount)
	controllers.InitializeDiaryController(repos.Diary)

	app := fiber.New(fiber.Config{
		ErrorHandler: result.ErrorHandler,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, tokens)

	return app
}

func envInt(key string, fallback int) int {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
