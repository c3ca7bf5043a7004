package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/buddydiary/buddy-api/internal/pkg/token"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all HTTP surfaces. The HttpRouter goes first so the
// oauth session store exists before any redirect route is hit.
func InstallRouter(app *fiber.App, tokens *token.Service) {
	setup(app, NewHttpRouter(), NewApiRouter(tokens))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
