package detectionHandler

import (
	"time"

	detectionService "facecam/internal/api/detection/service"
	"facecam/internal/middleware"
	"facecam/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	requestTimeout   time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		requestTimeout:   time.Minute,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	webcam := srv.Group("/webcam")
	webcam.Post("/start", h.StartWebcam)
	webcam.Post("/stop", h.StopWebcam)
	webcam.Get("/frame", h.GetWebcamFrame)
	webcam.Post("/capture", h.middleware.NewRateLimiter, h.CaptureWebcam)

	srv.Post("/images", h.middleware.NewRateLimiter, h.DetectImage)

	srv.Get("/surface", h.GetSurface)
	srv.Use("/surface/ws", wsMiddleware)
	srv.Get("/surface/ws", websocket.New(h.handleSurfaceFeed))

	srv.Get("/status", h.GetStatus)
}
