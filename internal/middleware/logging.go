package middleware

import (
	"fmt"
	"strings"
	"time"

	"facecam/pkg/log"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type loggingMiddleware struct {
	logger *logrus.Logger
}

func newLoggingMiddleware(logger *logrus.Logger) *loggingMiddleware {
	return &loggingMiddleware{
		logger: logger,
	}
}

func (l *loggingMiddleware) handle(c *fiber.Ctx) error {
	start := time.Now()

	requestID, ok := c.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()

	if err != nil && status == fiber.StatusInternalServerError {
		return err
	}

	logFields := log.Fields{
		log.RequestIDKey: requestID,
		"method":         c.Method(),
		"path":           c.Path(),
		"status":         status,
		"latency_ms":     latency.Milliseconds(),
		"ip":             c.IP(),
		"user_agent":     c.Get("User-Agent"),
		"response_size":  len(c.Response().Body()),
	}

	if body := c.Request().Body(); len(body) > 0 {
		logFields["request_body"] = sanitizeRequestBody(string(c.Request().Header.ContentType()), body)
	}

	entry := l.logger.WithFields(logFields)
	switch {
	case status >= 500:
		entry.Error("Server error")
	case status >= 400:
		entry.Warn("Client error")
	default:
		entry.Info("Success")
	}

	return err
}

// sanitizeRequestBody keeps request logs readable: image payloads are
// replaced by their size.
func sanitizeRequestBody(contentType string, body []byte) string {
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return fmt.Sprintf("[multipart %d bytes]", len(body))
	}

	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for _, field := range []string{"image", "image_base64", "frame"} {
		if v, exists := jsonBody[field].(string); exists {
			jsonBody[field] = fmt.Sprintf("[image %d bytes]", len(v))
		}
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}
