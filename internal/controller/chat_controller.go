package controller

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"doc-chat-be/internal/dto"
	"doc-chat-be/internal/pkg/serverutils"
	"doc-chat-be/internal/service"
	"doc-chat-be/pkg/apperrors"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("upload", c.Upload)
	h.Post("query", c.Query)
	h.Post("reset", c.Reset)
	h.Get("health", c.Health)
}

func (c *chatController) Upload(ctx *fiber.Ctx) error {
	// 1. Grab the file from the multipart form
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperrors.New(apperrors.KindValidation, "missing file field in multipart form")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "failed to open uploaded file", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "failed to read uploaded file", err)
	}

	// 2. session_id is optional; empty means "start a new session"
	sessionId := ctx.FormValue("session_id")

	res, err := c.chatService.Upload(ctx.Context(), sessionId, content, fileHeader.Filename)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload document", res))
}

func (c *chatController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid request body", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Query(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query document", res))
}

func (c *chatController) Reset(ctx *fiber.Ctx) error {
	var req dto.ResetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid request body", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Reset(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}

// Health doubles as liveness probe and session inspector via the optional
// session_id query parameter.
func (c *chatController) Health(ctx *fiber.Ctx) error {
	res, err := c.chatService.Status(ctx.Context(), ctx.Query("session_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}
