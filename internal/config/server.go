package config

import (
	"context"
	"fmt"

	detectionHandler "facecam/internal/api/detection/handler"
	detectionService "facecam/internal/api/detection/service"
	"facecam/internal/engine"
	"facecam/internal/media"
	"facecam/internal/middleware"
	"facecam/internal/overlay"
	"facecam/internal/surface"
	"facecam/pkg/inference"
	"facecam/pkg/s3"
	"facecam/pkg/utils"
	"facecam/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	log              *logrus.Logger
	env              *Env
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	inferenceClient  *inference.Client
	modelStore       engine.ModelStore
	faceEngine       *engine.Engine
	webcam           *media.Adapter
	detectionService detectionService.IDetectionService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if server.faceEngine == nil {
		return nil, fmt.Errorf("face engine is required")
	}
	if server.webcam == nil {
		return nil, fmt.Errorf("webcam adapter is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.env == nil {
			return fmt.Errorf("environment must be loaded before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.WithRateLimit(s.env.RateLimitRPS, s.env.RateLimitBurst))
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithInferenceClient(client *inference.Client) ServerOption {
	return func(s *Server) error {
		s.inferenceClient = client
		return nil
	}
}

// WithModelStore picks the local directory or the S3 bucket according to
// MODEL_SOURCE.
func WithModelStore() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be loaded before the model store")
		}

		switch s.env.ModelSource {
		case ModelSourceS3:
			store, err := s3.New(s.env.ModelPath)
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to initialize S3 model store: %v", err)
				}
				return fmt.Errorf("failed to create S3 model store: %w", err)
			}
			s.modelStore = store
		default:
			s.modelStore = engine.NewDirStore(s.env.ModelPath)
		}

		return nil
	}
}

func WithFaceEngine() ServerOption {
	return func(s *Server) error {
		if s.inferenceClient == nil || s.modelStore == nil {
			return fmt.Errorf("inference client and model store must be initialized before the face engine")
		}

		s.faceEngine = engine.New(s.inferenceClient, s.modelStore, s.log,
			engine.WithDetectTimeout(s.env.DetectionTimeout),
		)
		return nil
	}
}

func WithWebcam(provider media.Provider) ServerOption {
	return func(s *Server) error {
		s.webcam = media.NewAdapter(provider, s.log)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	// Detection
	s.detectionService = detectionService.NewDetectionService(
		s.log,
		s.faceEngine,
		s.webcam,
		overlay.NewDefault(),
		surface.New(s.env.SurfaceWidth, s.env.SurfaceHeight),
	)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, s.detectionService, s.utils)

	s.setupHealthCheck()
	s.setupApp()
	s.handlers = append(s.handlers, detectionHandlers)
}

// InitializeModels loads the face models in the background. The server
// answers requests meanwhile; detection reports not-ready until it is done.
func (s *Server) InitializeModels(ctx context.Context) {
	go func() {
		if _, err := s.faceEngine.Initialize(ctx); err != nil {
			s.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("Detection disabled until restart")
		}
	}()
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	return s.engine.Listen(fmt.Sprintf(":%s", s.env.AppPort))
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.detectionService != nil {
		s.detectionService.Shutdown()
	} else if s.webcam != nil {
		s.webcam.Stop()
	}

	if s.inferenceClient != nil {
		s.inferenceClient.Close()
	}

	return s.engine.ShutdownWithContext(ctx)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
			"ready":   s.faceEngine.Ready(),
		})
	})
}

func (s *Server) setupApp() {
	s.engine.Get("/app", func(ctx *fiber.Ctx) error {
		ctx.Type("html")
		return ctx.Send(web.Index)
	})
}
