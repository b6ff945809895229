package config

import (
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "Facecam",
			BodyLimit:         20 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: false,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if e, ok := err.(*fiber.Error); ok {
					code = e.Code
				}
				if code >= fiber.StatusInternalServerError {
					logger.WithFields(logrus.Fields{
						"path":  c.Path(),
						"error": err.Error(),
					}).Error("Unhandled error")
				}
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})

	return app
}
