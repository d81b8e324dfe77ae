package transport

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go-tamper-inspector/internal/config"
	apperrors "go-tamper-inspector/internal/errors"
	"go-tamper-inspector/internal/logger"
	"go-tamper-inspector/internal/service"
	"go-tamper-inspector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MetricsProvider exposes aggregated comparison counters
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
}

func NewHandler(svc service.ComparisonService, metrics MetricsProvider, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/stats", stats(metrics))
	r.POST("/compare", compareUploads(svc, cfg))
	r.POST("/compare/url", compareURLs(svc, cfg))

	if cfg.ArtifactBackend == config.BackendLocal && strings.HasPrefix(cfg.ArtifactBaseURL, "/") {
		r.Static(cfg.ArtifactBaseURL, cfg.ArtifactDir)
	}

	return r
}

func compareUploads(svc service.ComparisonService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logRequest(c, "Processing upload comparison request")

		original, err := openFormFile(c, "original")
		if err != nil {
			respondError(c, statusForFormError(err), "invalid upload", err)
			return
		}
		defer original.Close()

		tampered, err := openFormFile(c, "tampered")
		if err != nil {
			respondError(c, statusForFormError(err), "invalid upload", err)
			return
		}
		defer tampered.Close()

		var opts models.CompareOptionsRequest
		if err := c.ShouldBind(&opts); err != nil {
			respondError(c, http.StatusBadRequest, "invalid comparison options", err)
			return
		}

		resp, err := svc.CompareUploads(ctx, original, tampered, &opts)
		if err != nil {
			respondError(c, determineStatusCode(err), "comparison failed", err)
			return
		}

		logCompletion(startTime, resp)
		c.JSON(http.StatusOK, resp)
	}
}

func compareURLs(svc service.ComparisonService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logRequest(c, "Processing URL comparison request")

		var req models.CompareURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"original_url": req.OriginalURL,
			"tampered_url": req.TamperedURL,
		}).Debug("Fetching images")

		resp, err := svc.CompareURLs(ctx, req.OriginalURL, req.TamperedURL, req.Options)
		if err != nil {
			respondError(c, determineStatusCode(err), "comparison failed", err)
			return
		}

		logCompletion(startTime, resp)
		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "available",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func stats(metrics MetricsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			respondError(c, http.StatusNotFound, "metrics unavailable", apperrors.NewNotFoundError("no metrics observer configured", nil))
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func openFormFile(c *gin.Context, field string) (multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return header.Open()
}

func logRequest(c *gin.Context, message string) {
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info(message)
}

func logCompletion(startTime time.Time, resp *models.ComparisonResponse) {
	logger.WithFields(logrus.Fields{
		"comparison_id":      resp.ID,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"score":              resp.Score,
		"regions":            len(resp.Regions),
		"tampered":           resp.Tampered,
	}).Info("Image comparison completed successfully")
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func statusForFormError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(code, resp)
}
