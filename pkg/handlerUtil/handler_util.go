package handlerUtil

import (
	"errors"

	"facecam/internal/capture"
	"facecam/internal/engine"
	"facecam/internal/media"
	"facecam/pkg/log"
	"facecam/pkg/response"
	"facecam/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type domainError struct {
	err     error
	status  int
	code    string
	message string
}

// domainErrors is checked in order; the first match wins.
var domainErrors = []domainError{
	// media
	{media.ErrPermissionDenied, fiber.StatusForbidden, "CAMERA_PERMISSION_DENIED", "Camera permission denied"},
	{media.ErrNoDevice, fiber.StatusNotFound, "NO_CAMERA", "No camera device found"},
	{media.ErrNoActiveStream, fiber.StatusConflict, "WEBCAM_NOT_STARTED", "Webcam is not started"},
	{media.ErrNoFrame, fiber.StatusConflict, "NO_FRAME", "Webcam has not produced a frame yet"},

	// engine
	{engine.ErrNotReady, fiber.StatusServiceUnavailable, "MODELS_NOT_READY", "Face models are still loading"},
	{engine.ErrModelLoad, fiber.StatusServiceUnavailable, "MODEL_LOAD_FAILED", "Face models failed to load"},
	{engine.ErrInference, fiber.StatusBadGateway, "INFERENCE_FAILED", "Error processing the image"},

	// uploads
	{capture.ErrInvalidImage, fiber.StatusBadRequest, "INVALID_IMAGE", "The file could not be decoded as an image"},
	{utils.ErrNoFile, fiber.StatusBadRequest, "NO_FILE", "No file uploaded"},
	{utils.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File too large"},
	{utils.ErrNotAnImage, fiber.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", "Invalid file type. Only images are allowed."},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           path,
		"operation":      operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{
			Error: respErr.Err.Error(),
			Code:  respErr.ErrCode,
		})
	}

	for _, de := range domainErrors {
		if !errors.Is(err, de.err) {
			continue
		}

		entry := h.logger.WithFields(fields)
		if de.status >= fiber.StatusInternalServerError {
			entry.Error(de.message)
		} else {
			entry.Warn(de.message)
		}

		return c.Status(de.status).JSON(ErrorResponse{
			Error: de.message,
			Code:  de.code,
		})
	}

	h.logger.WithFields(fields).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: fiberUtils.StatusMessage(fiber.StatusRequestTimeout),
		Code:  "REQUEST_TIMEOUT",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
