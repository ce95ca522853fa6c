package error

import "net/http"

// GenericError is implemented by every typed error in this package so that
// ui/rest/middleware.Recovery can map it to the HTTP envelope without a type
// switch per error kind.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}

type ValidationError string

func (err ValidationError) Error() string    { return string(err) }
func (err ValidationError) ErrCode() string  { return "VALIDATION_ERROR" }
func (err ValidationError) StatusCode() int  { return http.StatusBadRequest }

type UnauthorizedError string

func (err UnauthorizedError) Error() string   { return string(err) }
func (err UnauthorizedError) ErrCode() string { return "UNAUTHORIZED" }
func (err UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

type ConflictError string

func (err ConflictError) Error() string   { return string(err) }
func (err ConflictError) ErrCode() string { return "CONFLICT" }
func (err ConflictError) StatusCode() int { return http.StatusConflict }

type UnprocessableError string

func (err UnprocessableError) Error() string   { return string(err) }
func (err UnprocessableError) ErrCode() string { return "UNPROCESSABLE_ENTITY" }
func (err UnprocessableError) StatusCode() int { return http.StatusUnprocessableEntity }

type InternalServerError string

func (err InternalServerError) Error() string   { return string(err) }
func (err InternalServerError) ErrCode() string { return "INTERNAL_SERVER_ERROR" }
func (err InternalServerError) StatusCode() int { return http.StatusInternalServerError }
