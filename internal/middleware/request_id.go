package middleware

import (
	"time"

	contextPkg "facecam/pkg/context"
	"facecam/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	RequestIDKey = "X-Request-ID"
	// CycleIDKey carries the capture cycle a response belongs to.
	CycleIDKey = "X-Cycle-ID"
)

// NewRequestIDMiddleware honours an incoming X-Request-ID and mints a ULID
// otherwise. The id is echoed back on the response and stored on the user
// context for code that only sees a context.Context.
func NewRequestIDMiddleware() fiber.Handler {
	utilsInstance := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if requestID == "" {
			requestID, _ = utilsInstance.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.SetUserContext(contextPkg.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}
