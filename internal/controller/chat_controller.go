package controller

import (
	"context"

	"roleplay-agent-be/internal/dto"
	"roleplay-agent-be/internal/handler"
	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/pkg/serverutils"
	"roleplay-agent-be/internal/service"
	"roleplay-agent-be/pkg/agent"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendTurn(ctx *fiber.Ctx) error
	StreamTurn(ctx *fiber.Ctx) error
	GetAllThreads(ctx *fiber.Ctx) error
	GetThreadHistory(ctx *fiber.Ctx) error
	DeleteThread(ctx *fiber.Ctx) error
}

type chatController struct {
	turnService service.ITurnService
	logger      logger.ILogger
}

func NewChatController(turnService service.ITurnService, log logger.ILogger) IChatController {
	return &chatController{
		turnService: turnService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	// WS handshake carries the token itself; header middleware can't see it.
	h.Get("/stream", c.StreamTurn)

	h.Use(serverutils.JwtMiddleware)
	h.Post("/turn", c.SendTurn)
	h.Get("/threads", c.GetAllThreads)
	h.Get("/threads/:id/history", c.GetThreadHistory)
	h.Delete("/threads/:id", c.DeleteThread)
}

func (c *chatController) SendTurn(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.SendTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.turnService.SendTurn(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send turn", res))
}

// StreamTurn upgrades to a websocket, reads one turn request and streams the
// pipeline's events back as JSON frames. Closing the socket mid-stream
// cancels the turn and nothing is persisted.
func (c *chatController) StreamTurn(ctx *fiber.Ctx) error {
	userId, err := handler.AuthWsRequest(ctx)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var req dto.SendTurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			conn.WriteJSON(agent.StreamEvent{Type: agent.EventError, Content: "malformed turn request"})
			return
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			conn.WriteJSON(agent.StreamEvent{Type: agent.EventError, Content: err.Error()})
			return
		}

		// A read error means the consumer went away; cancel the turn.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		events := make(chan agent.StreamEvent, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for evt := range events {
				if err := conn.WriteJSON(evt); err != nil {
					cancel()
				}
			}
		}()

		if _, err := c.turnService.StreamTurn(runCtx, userId, &req, events); err != nil {
			c.logger.Warn("ChatController", "Streamed turn ended with error", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
		<-writerDone
	})(ctx)
}

func (c *chatController) GetAllThreads(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.turnService.GetAllThreads(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get threads", res))
}

func (c *chatController) GetThreadHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid thread id")
	}

	res, err := c.turnService.GetThreadHistory(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get thread history", res))
}

func (c *chatController) DeleteThread(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid thread id")
	}

	if err := c.turnService.DeleteThread(ctx.Context(), userId, &dto.DeleteThreadRequest{ThreadId: id}); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete thread", nil))
}
