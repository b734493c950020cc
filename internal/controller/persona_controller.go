package controller

import (
	"roleplay-agent-be/internal/dto"
	"roleplay-agent-be/internal/pkg/serverutils"
	"roleplay-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPersonaController interface {
	RegisterRoutes(r fiber.Router)
	IngestPassages(ctx *fiber.Ctx) error
	GetPassages(ctx *fiber.Ctx) error
	DeletePassage(ctx *fiber.Ctx) error
}

type personaController struct {
	personaService service.IPersonaService
}

func NewPersonaController(personaService service.IPersonaService) IPersonaController {
	return &personaController{
		personaService: personaService,
	}
}

func (c *personaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/persona/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/passages", c.IngestPassages)
	h.Get("/passages", c.GetPassages)
	h.Delete("/passages/:id", c.DeletePassage)
}

func (c *personaController) IngestPassages(ctx *fiber.Ctx) error {
	var req dto.IngestPassagesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.personaService.IngestPassages(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest passages", res))
}

func (c *personaController) GetPassages(ctx *fiber.Ctx) error {
	character := ctx.Query("character", "")

	res, err := c.personaService.GetPassages(ctx.Context(), character)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get passages", res))
}

func (c *personaController) DeletePassage(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid passage id")
	}

	if err := c.personaService.DeletePassage(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete passage", nil))
}
