package detectionHandler

import (
	"bytes"
	"image"
	"strconv"
	"time"

	"facecam/internal/api/detection"
	"facecam/internal/capture"
	"facecam/internal/middleware"
	contextPkg "facecam/pkg/context"
	"facecam/pkg/handlerUtil"
	"facecam/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) StartWebcam(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	base := contextPkg.FromFiberCtx(ctx)
	c, cancel := context.WithTimeout(base, h.requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.detectionService.StartWebcam(base); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "start_webcam")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.WebcamResponse{Active: true})
	}
}

func (h *DetectionHandler) StopWebcam(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	h.detectionService.StopWebcam(contextPkg.FromFiberCtx(ctx))

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.WebcamResponse{Active: false})
}

func (h *DetectionHandler) GetWebcamFrame(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	data, err := h.detectionService.WebcamFrame(contextPkg.FromFiberCtx(ctx))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "webcam_frame")
	}

	ctx.Set(fiber.HeaderCacheControl, "no-store")
	ctx.Type("png")
	return ctx.Send(data)
}

// The request timeout only decides the response. The cycle itself runs on the
// detached context so a slow cycle still renders and shows up in /status.
func (h *DetectionHandler) CaptureWebcam(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	base := contextPkg.FromFiberCtx(ctx)
	c, cancel := context.WithTimeout(base, h.requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		log.RequestIDKey: requestID,
		"path":           ctx.Path(),
	}).Debug("Processing webcam capture request")

	result, err := h.detectionService.CaptureWebcam(base)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "capture_webcam")
	}

	return h.respondCycle(ctx, c, errHandler, result)
}

// DetectImage accepts a multipart "image" file or a JSON body carrying a data URL.
func (h *DetectionHandler) DetectImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	base := contextPkg.FromFiberCtx(ctx)
	c, cancel := context.WithTimeout(base, h.requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var img image.Image

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			log.RequestIDKey: requestID,
			"path":           ctx.Path(),
			"file_name":      file.Filename,
			"file_size":      file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		data, err := h.utils.ReadFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
		}

		img, err = capture.Decode(bytes.NewReader(data))
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_image")
		}
	} else {
		if len(ctx.Body()) == 0 {
			return errHandler.Handle(ctx, requestID, detection.ErrNoImage, ctx.Path(), "parse_request_body")
		}

		var req detection.ImageRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrNoImage, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		img, err = capture.DecodeDataURL(req.Image)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_image")
		}
	}

	result, err := h.detectionService.DetectImage(base, img)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_image")
	}

	return h.respondCycle(ctx, c, errHandler, result)
}

func (h *DetectionHandler) respondCycle(ctx *fiber.Ctx, c context.Context, errHandler *handlerUtil.ErrorHandler, result *detection.CycleResult) error {
	ctx.Set(middleware.CycleIDKey, strconv.FormatUint(result.ID, 10))

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			log.RequestIDKey: h.middleware.GetRequestID(ctx),
			log.CycleIDKey:   result.ID,
			"state":          result.State,
			"faces":          len(result.Detections),
		}).Info("Capture cycle finished")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *DetectionHandler) GetSurface(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	data, err := h.detectionService.SurfacePNG()
	if err != nil {
		h.log.WithFields(log.Fields{
			log.RequestIDKey: requestID,
			"error":          err.Error(),
		}).Error("Failed to encode surface")
		return errHandler.Handle(ctx, requestID, detection.ErrSurfaceUnavailable, ctx.Path(), "encode_surface")
	}

	ctx.Set(fiber.HeaderCacheControl, "no-store")
	ctx.Type("png")
	return ctx.Send(data)
}

func (h *DetectionHandler) GetStatus(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.detectionService.Status())
}

func (h *DetectionHandler) handleSurfaceFeed(c *websocket.Conn) {
	h.log.Info("Surface feed client connected")
	defer h.log.Info("Surface feed client disconnected")

	feed, unsubscribe := h.detectionService.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Errorf("Surface feed error: %v", err)
				}
				return
			}
		}
	}()

	if data, err := h.detectionService.SurfacePNG(); err == nil {
		if err := h.writeFrame(c, data); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case data, ok := <-feed:
			if !ok {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return
			}
			if err := h.writeFrame(c, data); err != nil {
				return
			}
		}
	}
}

func (h *DetectionHandler) writeFrame(c *websocket.Conn, data []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		h.log.Errorf("Error setting write deadline: %v", err)
		return err
	}

	if err := c.WriteMessage(websocket.BinaryMessage, data); err != nil {
		h.log.Errorf("Error writing surface frame: %v", err)
		return err
	}

	return nil
}
