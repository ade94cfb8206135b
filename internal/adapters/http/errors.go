package http

import "github.com/gofiber/fiber/v2"

// APIError is the JSON body of every non-2xx response. Code is a
// stable machine-readable string; Message is for humans and may
// change between releases.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code, message string) error {
	rid, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: rid,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errGone marks requests against sessions that already ended; the
// client should drop its geolocation watch rather than retry.
func errGone(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusGone, "session_ended", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}
