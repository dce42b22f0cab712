package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/labinterpreter/internal/interpret"
)

const (
	msgMissingContent = "Contenido HTML requerido"
	msgNoMeasurements = "No se pudieron extraer valores de laboratorio del contenido HTML"
	msgSynthesis      = "Error en la interpretación médica"
	msgInternal       = "Error interno del servidor"
	msgTooLarge       = "El contenido excede el tamaño máximo permitido"
)

func setupRouter(svc *interpret.Service, cfg *Config, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(logger),
		recovery(logger),
		limitBodySize(cfg.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			MaxAge:       12 * time.Hour,
		}),
	)

	health := healthHandler(cfg)
	ranges := rangesHandler(svc)
	interp := interpretHandler(svc)

	router.GET("/healthz", health)
	router.GET("/health", health)
	router.GET("/ranges", ranges)
	router.POST("/interpret", interp)

	// Paths used by the browser front-end.
	api := router.Group("/api/medical-interpret")
	api.POST("", interp)
	api.GET("/health", health)
	api.GET("/ranges", ranges)

	return router
}

func healthHandler(cfg *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
			"openai_configured": cfg.OpenAIAPIKey != "",
			"gemini_configured": cfg.GeminiAPIKey != "",
			"ai_enabled":        cfg.AIEnabled,
		})
	}
}

func rangesHandler(svc *interpret.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Ranges())
	}
}

func interpretHandler(svc *interpret.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req interpret.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingContent})
			return
		}

		result, err := svc.Interpret(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			status, msg := errorResponse(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, interpret.ErrMissingContent):
		return http.StatusBadRequest, msgMissingContent
	case errors.Is(err, interpret.ErrNoMeasurements):
		return http.StatusBadRequest, msgNoMeasurements
	case errors.Is(err, interpret.ErrSynthesis):
		return http.StatusInternalServerError, msgSynthesis
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
