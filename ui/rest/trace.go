package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"github.com/namastexlabs/automagik-omni-go/pkg/utils"
)

type traceHandler struct {
	store trace.Store
}

type tracePage struct {
	Traces []trace.MessageTrace `json:"traces"`
	Total  int                  `json:"total"`
	Page   int                  `json:"page"`
}

func (h *traceHandler) List(c *fiber.Ctx) error {
	filter := trace.ListFilter{
		InstanceName: c.Query("instance_name"),
		Phone:        c.Query("phone"),
		TraceStatus:  trace.Status(c.Query("status")),
		MessageType:  trace.MessageType(c.Query("message_type")),
		Page:         c.QueryInt("page", 1),
		PageSize:     c.QueryInt("page_size", 50),
	}
	if start := c.Query("start_date"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			filter.StartDate = &t
		}
	}
	if end := c.Query("end_date"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			filter.EndDate = &t
		}
	}

	traces, total, err := h.store.List(c.Context(), filter)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{
		Status: fiber.StatusOK, Code: "SUCCESS",
		Results: tracePage{Traces: traces, Total: total, Page: filter.Page},
	})
}

func (h *traceHandler) Payloads(c *fiber.Ctx) error {
	payloads, err := h.store.Payloads(c.Context(), c.Params("trace_id"))
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: payloads})
}

func (h *traceHandler) Analytics(c *fiber.Ctx) error {
	filter := trace.ListFilter{InstanceName: c.Query("instance_name")}
	analytics, err := h.store.Analytics(c.Context(), filter)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: analytics})
}

func (h *traceHandler) Cleanup(c *fiber.Ctx) error {
	days := c.QueryInt("older_than_days", 30)
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := h.store.CleanupOlderThan(c.Context(), cutoff)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{
		Status: fiber.StatusOK, Code: "SUCCESS",
		Results: fiber.Map{"deleted": deleted},
	})
}
