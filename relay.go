package main

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewApp wires the relay into a fiber app: the websocket route, a status
// page and a health check.
func NewApp(relay *Relay) (*fiber.App, error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               AppName,
		Views:                 html.NewFileSystem(http.FS(views), ".html"),
		DisableStartupMessage: true,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("index", fiber.Map{
			"Title":   "chat relay",
			"RelayID": relay.ID(),
			"Version": Version,
			"Peers":   relay.Peers(),
		})
	})

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:user", websocket.New(relay.HandleWebSocket))

	return app, nil
}
