// Package api exposes the statement service over HTTP.
package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// ServerOptions configures the fiber app.
type ServerOptions struct {
	// BodyLimit caps request bodies in bytes; uploads are held in memory.
	BodyLimit int
	// AccessLog enables the request logging middleware.
	AccessLog bool
	// Metrics mounts the Prometheus handler at /metrics.
	Metrics bool
	Logger  *slog.Logger
}

// DefaultBodyLimit is 32 MB.
const DefaultBodyLimit = 32 << 20

// NewApp builds the fiber app with middleware and the routes of h.
func NewApp(h *Handler, opts ServerOptions) *fiber.App {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "statement-editor",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		// Ids and query values outlive the request in locks and metrics.
		Immutable:    true,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type," + ActorHeader,
	}))
	if opts.AccessLog {
		app.Use(logger.New())
	}
	if opts.Metrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}
	h.RegisterRoutes(app)
	return app
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var (
		ferr *fiber.Error
		perr *models.ParseError
		nerr *models.NotFoundError
		verr *models.ValidationError
		uerr *models.UnsupportedFormatError
	)
	switch {
	case errors.As(err, &ferr):
		return ferr.Code
	case errors.As(err, &perr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &nerr):
		return fiber.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &uerr):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		detail := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
			detail = "internal server error"
		}
		return c.Status(status).JSON(ErrorResponse{Detail: detail})
	}
}
