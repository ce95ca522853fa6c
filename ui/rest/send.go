package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/pkg/utils"
	"github.com/namastexlabs/automagik-omni-go/router"
)

type sendHandler struct {
	router *router.Router
}

type sendRequest struct {
	InstanceName    string `json:"instance_name"`
	Recipient       string `json:"recipient"`
	Text            string `json:"text,omitempty"`
	MediaURL        string `json:"media_url,omitempty"`
	MediaMimeType   string `json:"media_mime_type,omitempty"`
	Caption         string `json:"caption,omitempty"`
	QuotedMessageID string `json:"quoted_message_id,omitempty"`
}

func (h *sendHandler) send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		utils.PanicIfNeeded(validationError("invalid request body: " + err.Error()))
	}
	if req.InstanceName == "" || req.Recipient == "" {
		utils.PanicIfNeeded(validationError("instance_name and recipient are required"))
	}

	result, err := h.router.SendProactive(c.Context(), req.InstanceName, req.Recipient, omni.OutboundMessage{
		Text:            req.Text,
		MediaURL:        req.MediaURL,
		MediaMimeType:   req.MediaMimeType,
		Caption:         req.Caption,
		QuotedMessageID: req.QuotedMessageID,
	})
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{Status: fiber.StatusOK, Code: "SUCCESS", Results: result})
}

// Text, Media, Audio, Sticker, Contact and Reaction all share the same
// OutboundMessage shape and the same handler; no layer distinguishes the
// kinds. The adapters only check whether MediaURL is set.
func (h *sendHandler) Text(c *fiber.Ctx) error     { return h.send(c) }
func (h *sendHandler) Media(c *fiber.Ctx) error    { return h.send(c) }
func (h *sendHandler) Audio(c *fiber.Ctx) error    { return h.send(c) }
func (h *sendHandler) Sticker(c *fiber.Ctx) error  { return h.send(c) }
func (h *sendHandler) Contact(c *fiber.Ctx) error  { return h.send(c) }
func (h *sendHandler) Reaction(c *fiber.Ctx) error { return h.send(c) }
