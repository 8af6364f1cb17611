package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/frame-classifier/internal/config"
	apperrors "github.com/anime-shed/frame-classifier/internal/errors"
	"github.com/anime-shed/frame-classifier/internal/logger"
	"github.com/anime-shed/frame-classifier/internal/service"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// IndexMessage is served on GET / as a liveness banner.
const IndexMessage = "Frame classification server is running."

func NewHandler(svc service.ClassificationService, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		cors(cfg.CORSAllowedOrigin),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/", index)
	r.GET("/health", healthCheck)
	r.POST("/predict", predict(svc, cfg))
	r.GET("/domains", listDomains(svc))
	r.GET("/stats", stats(svc))

	return r
}

func predict(svc service.ClassificationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing prediction request")

		var req models.PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, apperrors.NewValidationError("request body too large", err).
					WithStatus(http.StatusRequestEntityTooLarge))
				return
			}
			respondError(c, apperrors.NewValidationError("invalid request format", err))
			return
		}

		// Query parameter takes precedence over the JSON body
		if domain := strings.TrimSpace(c.Query("domain")); domain != "" {
			req.Domain = domain
		}

		resp, err := svc.Classify(ctx, req)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"domain":             resp.Domain,
			"category":           resp.Category,
			"label":              resp.Label,
			"confidence":         resp.Confidence,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Prediction completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func listDomains(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"domains": svc.Domains()})
	}
}

func stats(svc service.ClassificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Stats())
	}
}

func index(c *gin.Context) {
	c.String(http.StatusOK, IndexMessage)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowedOrigin)
		h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

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
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	// App errors first, then bare context errors
	switch {
	case errors.As(err, new(*apperrors.AppError)):
		return apperrors.GetStatusCode(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	body := models.ErrorResponse{Error: http.StatusText(code), Type: string(apperrors.ErrorTypeInternal)}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body = models.ErrorResponse{Error: appErr.Message, Type: string(appErr.Type), Details: appErr.Details}
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, body)
}
