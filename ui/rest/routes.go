package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/core/config"
	"github.com/namastexlabs/automagik-omni-go/domains/access"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"github.com/namastexlabs/automagik-omni-go/router"
	"github.com/namastexlabs/automagik-omni-go/ui/rest/middleware"
)

// Dependencies bundles every collaborator the Admin API needs, assembled
// by cmd at startup.
type Dependencies struct {
	Config    *config.Config
	Instances instance.Registry
	Access    access.Control
	Traces    trace.Store
	Router    *router.Router
}

// RegisterRoutes mounts every Admin API route and the webhook ingress
// endpoint under app, including the auth middleware boundary.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	inst := &instanceHandler{registry: deps.Instances}
	acc := &accessHandler{control: deps.Access}
	tr := &traceHandler{store: deps.Traces}
	wh := &webhookHandler{router: deps.Router}
	sd := &sendHandler{router: deps.Router}

	app.Post("/api/v1/webhook/evolution/:instance_name", wh.EvolutionWebhook)

	api := app.Group("/api/v1", middleware.APIKeyAuth(deps.Config))

	instances := api.Group("/instances")
	instances.Post("/", inst.Create)
	instances.Get("/", inst.List)
	instances.Get("/:name", inst.Get)
	instances.Patch("/:name", inst.Update)
	instances.Delete("/:name", inst.Delete)
	instances.Post("/:name/default", inst.SetDefault)
	instances.Get("/:name/health", inst.HealthCheck)

	accessGroup := api.Group("/access-rules")
	accessGroup.Get("/", acc.List)
	accessGroup.Post("/", acc.Add)
	accessGroup.Delete("/:id", acc.Remove)

	traces := api.Group("/traces")
	traces.Get("/", tr.List)
	traces.Get("/:trace_id/payloads", tr.Payloads)
	traces.Get("/analytics", tr.Analytics)
	traces.Delete("/cleanup", tr.Cleanup)

	send := api.Group("/send")
	send.Post("/text", sd.Text)
	send.Post("/media", sd.Media)
	send.Post("/audio", sd.Audio)
	send.Post("/sticker", sd.Sticker)
	send.Post("/contact", sd.Contact)
	send.Post("/reaction", sd.Reaction)
}
