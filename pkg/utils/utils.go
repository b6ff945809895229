package utils

import (
	"crypto/rand"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile       = errors.New("no file uploaded")
	ErrFileTooLarge = errors.New("file size exceeds limit")
	ErrNotAnImage   = errors.New("uploaded file is not an image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return NewWithLimit(10 * 1024 * 1024)
}

func NewWithLimit(maxFileSize int64) IUtils {
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateImageFile only looks at size and declared type; decoding decides the rest.
func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
}
