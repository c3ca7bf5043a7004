package result

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Envelope is the uniform response body. Result is omitted when nil so error
// responses stay two fields.
type Envelope struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

// Error is an error that knows its result code. Controllers and services
// return it; the fiber ErrorHandler turns it into an Envelope.
type Error struct {
	ResultCode Code
	Message    string // optional override of ResultCode.Message
	Err        error  // optional wrapped cause, never sent to the client
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.ResultCode.Code + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.ResultCode.Code + ": " + e.Message
	}
	return e.ResultCode.Code + ": " + e.ResultCode.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an error carrying the given result code.
func NewError(code Code) *Error {
	return &Error{ResultCode: code}
}

// WrapError attaches an internal cause to a result code.
func WrapError(code Code, err error) *Error {
	return &Error{ResultCode: code, Err: err}
}

// MessageError overrides the default message, e.g. for validation detail.
func MessageError(code Code, message string) *Error {
	return &Error{ResultCode: code, Message: message}
}

// Is lets errors.Is match two result errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.ResultCode.Code == t.ResultCode.Code
	}
	return false
}

// OK sends a success envelope with the default success message.
func OK(c *fiber.Ctx, payload interface{}) error {
	return c.Status(Success.HTTPStatus).JSON(Envelope{
		Code:    Success.Code,
		Message: Success.Message,
		Result:  payload,
	})
}

// Created sends a success envelope with a 201 status.
func Created(c *fiber.Ctx, payload interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{
		Code:    Success.Code,
		Message: Success.Message,
		Result:  payload,
	})
}

// ErrorHandler is installed as the fiber app error handler. It maps *Error
// to its envelope, fiber errors to a generic envelope, and anything else to
// an internal server error without leaking the cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var re *Error
	if errors.As(err, &re) {
		if re.Err != nil {
			log.Warnf("[%s] %s: %v", c.Path(), re.ResultCode.Code, re.Err)
		}
		msg := re.ResultCode.Message
		if re.Message != "" {
			msg = re.Message
		}
		return c.Status(re.ResultCode.HTTPStatus).JSON(Envelope{
			Code:    re.ResultCode.Code,
			Message: msg,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(Envelope{
			Code:    InvalidRequest.Code,
			Message: fe.Message,
		})
	}

	log.Errorf("[%s] unhandled error: %v", c.Path(), err)
	return c.Status(InternalServerError.HTTPStatus).JSON(Envelope{
		Code:    InternalServerError.Code,
		Message: InternalServerError.Message,
	})
}
