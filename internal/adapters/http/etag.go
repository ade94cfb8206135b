package http

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// etagMinBody skips hashing trivial responses; a 304 round trip saves
// nothing when the body is smaller than the headers.
const etagMinBody = 64

// ETagMiddleware hashes successful GET responses into a weak ETag and
// answers If-None-Match revalidation with 304. POI and track payloads
// change rarely, so most repeat fetches from the player collapse to
// empty responses.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		res := c.Response()
		if c.Method() != fiber.MethodGet || res.StatusCode() != fiber.StatusOK {
			return nil
		}
		if len(res.Header.Peek("ETag")) > 0 {
			// Handler set its own validator, leave it alone.
			return nil
		}

		body := res.Body()
		if len(body) < etagMinBody {
			return nil
		}

		sum := sha256.Sum256(body)
		tag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set("ETag", tag)

		if c.Get(fiber.HeaderIfNoneMatch) == tag {
			c.Status(fiber.StatusNotModified)
			res.ResetBody()
		}
		return nil
	}
}
