package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/router"
	"github.com/sirupsen/logrus"
)

type webhookHandler struct {
	router *router.Router
}

// EvolutionWebhook receives the Evolution broker's push events. It always
// answers 200 once the body is accepted: the pipeline's own error kinds are
// recorded on the trace, never surfaced as a webhook-level HTTP failure, so
// the broker never retries a message the pipeline already handled. The body
// reports the pipeline outcome so the broker can tell a received message
// from one it dropped or blocked.
func (h *webhookHandler) EvolutionWebhook(c *fiber.Ctx) error {
	instanceName := c.Params("instance_name")
	body := c.Body()

	result, err := h.router.HandleWebhook(c.Context(), instanceName, body)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"instance_name": instanceName,
			"error":         err.Error(),
		}).Warn("inbound pipeline error")
	}

	return c.Status(fiber.StatusOK).JSON(webhookResponse{
		Status: result.Status,
		Reason: result.Reason,
	})
}

type webhookResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}
