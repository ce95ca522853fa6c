package middleware

import (
	"fmt"

	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			status := fiber.StatusInternalServerError
			body := errorBody{Kind: "INTERNAL_SERVER_ERROR", Message: fmt.Sprintf("%v", recovered)}

			if genErr, ok := recovered.(pkgError.GenericError); ok {
				status = genErr.StatusCode()
				body = errorBody{Kind: genErr.ErrCode(), Message: genErr.Error()}
			}

			logrus.WithFields(logrus.Fields{
				"path":   ctx.Path(),
				"method": ctx.Method(),
				"kind":   body.Kind,
			}).Error("panic recovered")

			_ = ctx.Status(status).JSON(errorEnvelope{Error: body})
		}()

		return ctx.Next()
	}
}
