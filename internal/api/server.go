package api

import (
	"errors"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ServerDeps struct {
	Service  ConversationService
	Verifier *Verifier
	Limiter  *UserRateLimiter
	Metrics  *metrics.Metrics
	Log      *zap.SugaredLogger
	// RequestLog enables the per-request access log.
	RequestLog bool
}

func NewServer(d ServerDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			} else {
				d.Log.Errorw("unhandled request error", "request_id", requestID(c), "path", c.Path(), "err", err)
			}
			return c.Status(code).JSON(fiber.Map{"status": "error", "code": "HTTP_ERROR", "message": err.Error()})
		},
	})
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString, ContextKey: localRequestID}))
	app.Use(recover.New())
	if d.RequestLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:" + localRequestID + "} ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	h := NewHandlers(d.Service, d.Log)
	api := app.Group("/v1", JWTAuth(d.Verifier))

	send := []fiber.Handler{}
	if d.Limiter != nil {
		send = append(send, d.Limiter.Handler())
	}
	send = append(send, h.sendMessage)
	api.Post("/messages", send...)

	api.Get("/conversations/with/:userId", h.getConversation)
	api.Post("/messages/:address/read", h.markRead)
	api.Post("/conversations/:conversationId/read", h.markAllRead)
	api.Post("/conversations/:conversationId/read-batch", h.markBatchRead)
	api.Get("/unread-count", h.unreadCount)
	api.Get("/admin/conversations", h.adminConversations)

	return app
}
