package detection

import (
	"net/http"

	"facecam/pkg/response"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
	ErrNoImage             = response.NewError(http.StatusBadRequest, "NO_IMAGE", "an image file or an image payload is required")
	ErrSurfaceUnavailable  = response.NewError(http.StatusInternalServerError, "SURFACE_UNAVAILABLE", "failed to encode the drawing surface")
)
