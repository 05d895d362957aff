package api

import (
	"context"
	"errors"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/service"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

// ConversationService is the subset of service.Service the transport calls.
type ConversationService interface {
	SendMessage(ctx context.Context, senderID, recipientID, content string) (*domain.MessageView, error)
	GetConversation(ctx context.Context, userID, otherID string) ([]domain.MessageView, error)
	MarkMessageAsRead(ctx context.Context, addr, userID string) error
	MarkAllAsRead(ctx context.Context, conversationID, userID string) (int, error)
	MarkMessagesAsRead(ctx context.Context, conversationID string, addrs []string, userID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	ListAdminConversations(ctx context.Context, adminID string) ([]domain.ConversationSummary, error)
}

type Handlers struct {
	svc      ConversationService
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewHandlers(svc ConversationService, log *zap.SugaredLogger) *Handlers {
	return &Handlers{svc: svc, validate: validator.New(), log: log}
}

// fail renders err. Internal errors are hidden from the client, so they are
// logged here under the request id the client received.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	if apperr.Code(err) == "INTERNAL" {
		h.log.Errorw("request failed", "request_id", requestID(c), "user", userID(c), "path", c.Path(), "err", err)
	}
	return utils.JSONError(c, err)
}

type sendMessageReq struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required,max=4000"`
}

type readBatchReq struct {
	Addresses []string `json:"addresses" validate:"required,min=1,max=500,dive,required"`
}

func (h *Handlers) bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Invalid("invalid body")
	}
	return h.validate.Struct(out)
}

func rejectBody(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return utils.JSONValidationError(c, err)
	}
	return utils.JSONError(c, err)
}

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := h.bind(c, &req); err != nil {
		return rejectBody(c, err)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	msg, err := h.svc.SendMessage(ctx, userID(c), req.RecipientID, req.Content)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, msg)
}

func (h *Handlers) getConversation(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	msgs, err := h.svc.GetConversation(ctx, userID(c), c.Params("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, msgs)
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	addr := c.Params("address")
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	if err := h.svc.MarkMessageAsRead(ctx, addr, userID(c)); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"address": addr})
}

func (h *Handlers) markAllRead(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	n, err := h.svc.MarkAllAsRead(ctx, c.Params("conversationId"), userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"updated": n})
}

func (h *Handlers) markBatchRead(c *fiber.Ctx) error {
	var req readBatchReq
	if err := h.bind(c, &req); err != nil {
		return rejectBody(c, err)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	n, err := h.svc.MarkMessagesAsRead(ctx, c.Params("conversationId"), req.Addresses, userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"updated": n})
}

func (h *Handlers) unreadCount(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	n, err := h.svc.UnreadCount(ctx, userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"unread_count": n})
}

// adminConversations accepts ?sort=attention to order by unread count first.
func (h *Handlers) adminConversations(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	list, err := h.svc.ListAdminConversations(ctx, userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if c.Query("sort") == "attention" {
		service.SortByAttention(list)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, list)
}
