package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/logging"
	"github.com/Aashish23092/conciliador/service"
)

// RequestLogger stores a request-scoped logger in the request context.
func RequestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.WithLogger(c.Request.Context(), logger)
		ctx = logging.WithField(ctx, "request_id", uuid.NewString())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logging.FromContext(ctx).Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("request handled")
	}
}

// sendError sends a structured error response
func sendError(c *gin.Context, message string, err error) {
	statusCode, code := errorStatus(err)
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		logger := logging.FromContext(c.Request.Context())
		if statusCode >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg(message)
		} else {
			logger.Debug().Err(err).Msg(message)
		}
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   code,
		Message: errorMsg,
		Code:    statusCode,
	})
}

func errorStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, dto.ErrNoFiles), dto.IsInvalidInput(err):
		return http.StatusBadRequest, "INVALID_INPUT"
	case dto.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case dto.IsAlreadyExists(err):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "PROCESSING_FAILED"
}

// uploadedDocuments reads the PDFs posted as files[].
func uploadedDocuments(c *gin.Context) ([]service.Document, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, dto.NewValidationError("files[]", nil, "failed to parse multipart form")
	}

	request := &dto.DocumentUploadRequest{Files: form.File["files[]"]}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	docs := make([]service.Document, 0, len(request.Files))
	for _, fh := range request.Files {
		data, err := readUpload(fh)
		if err != nil {
			return nil, dto.NewDocumentError(fh.Filename, "read upload", err)
		}
		docs = append(docs, service.Document{Name: fh.Filename, Data: data})
	}
	return docs, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}
