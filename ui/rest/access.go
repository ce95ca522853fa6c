package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/domains/access"
	"github.com/namastexlabs/automagik-omni-go/pkg/utils"
)

type accessHandler struct {
	control access.Control
}

func (h *accessHandler) List(c *fiber.Ctx) error {
	filter := access.ListFilter{RuleType: access.RuleType(c.Query("rule_type"))}
	if inst := c.Query("instance_name"); inst != "" {
		filter.InstanceName = &inst
	}
	rules, err := h.control.ListRules(c.Context(), filter)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: rules})
}

func (h *accessHandler) Add(c *fiber.Ctx) error {
	var req access.AddRuleRequest
	if err := c.BodyParser(&req); err != nil {
		utils.PanicIfNeeded(validationError("invalid request body: " + err.Error()))
	}
	if req.PhoneNumber == "" || (req.RuleType != access.RuleAllow && req.RuleType != access.RuleDeny) {
		utils.PanicIfNeeded(validationError("phone_number and a valid rule_type are required"))
	}

	rule, err := h.control.AddRule(c.Context(), req)
	utils.PanicIfNeeded(err)
	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{Status: fiber.StatusCreated, Code: "SUCCESS", Results: rule})
}

func (h *accessHandler) Remove(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.control.RemoveRule(c.Context(), c.Params("id")))
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Message: "rule removed"})
}
