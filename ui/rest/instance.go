package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/go-ozzo/ozzo-validation/v4"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/pkg/utils"
)

type instanceHandler struct {
	registry instance.Registry
}

func (h *instanceHandler) Create(c *fiber.Ctx) error {
	var req instance.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		utils.PanicIfNeeded(validationError("invalid request body: " + err.Error()))
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.ChannelType, validation.Required, validation.In(instance.ChannelWhatsApp, instance.ChannelDiscord)),
	); err != nil {
		utils.PanicIfNeeded(validationError(err.Error()))
	}

	cfg, err := h.registry.Create(c.Context(), req)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  fiber.StatusCreated,
		Code:    "SUCCESS",
		Message: "instance created",
		Results: cfg.Masked(),
	})
}

func (h *instanceHandler) List(c *fiber.Ctx) error {
	filter := instance.ListFilter{
		ChannelType: instance.ChannelType(c.Query("channel_type")),
		ActiveOnly:  c.QueryBool("active_only", false),
	}
	list, err := h.registry.List(c.Context(), filter)
	utils.PanicIfNeeded(err)

	masked := make([]instance.InstanceConfig, len(list))
	for i, cfg := range list {
		masked[i] = cfg.Masked()
	}
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: masked})
}

func (h *instanceHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.registry.Get(c.Context(), c.Params("name"))
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: cfg.Masked()})
}

func (h *instanceHandler) Update(c *fiber.Ctx) error {
	var patch instance.Patch
	if err := c.BodyParser(&patch); err != nil {
		utils.PanicIfNeeded(validationError("invalid request body: " + err.Error()))
	}
	cfg, err := h.registry.Update(c.Context(), c.Params("name"), patch)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: cfg.Masked()})
}

func (h *instanceHandler) Delete(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.registry.Delete(c.Context(), c.Params("name")))
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Message: "instance deleted"})
}

func (h *instanceHandler) SetDefault(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.registry.SetDefault(c.Context(), c.Params("name")))
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Message: "default instance updated"})
}

func (h *instanceHandler) HealthCheck(c *fiber.Ctx) error {
	status, err := h.registry.HealthCheck(c.Context(), c.Params("name"))
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: status})
}
