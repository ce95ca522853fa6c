package utils

import pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"

// ResponseData is the success envelope for the Admin API. Errors never use
// this type: they panic with a pkgError.GenericError and are rendered by
// ui/rest/middleware.Recovery into the {error:{kind,message,detail}} shape.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with err when non-nil so ui/rest handlers can stay
// free of repetitive "if err != nil" plumbing; ui/rest/middleware.Recovery
// is the single place that turns the panic back into an HTTP response.
func PanicIfNeeded(err error) {
	if err == nil {
		return
	}
	if _, ok := err.(pkgError.GenericError); ok {
		panic(err)
	}
	panic(pkgError.InternalServerError(err.Error()))
}
