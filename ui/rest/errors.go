package rest

import pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"

func validationError(msg string) error {
	return pkgError.ValidationError(msg)
}
