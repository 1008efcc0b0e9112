package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/auth"
	"github.com/satriahrh/learnvoice/internal/cachekey"
	"github.com/satriahrh/learnvoice/internal/websocket"
	"github.com/satriahrh/learnvoice/usecase"
)

// Resolver turns a phrase into a playable URL
type Resolver interface {
	ResolveToURL(ctx context.Context, text, voice string, speed float64) (*usecase.Result, error)
}

// Warmer runs cache warming jobs in the background
type Warmer interface {
	StartJob(req usecase.WarmRequest) string
	Job(id string) (usecase.WarmJob, bool)
}

// Dependencies are the collaborators the routes are served from
type Dependencies struct {
	Resolver Resolver
	Warmer   Warmer
	Store    repositories.BlobStore
	Signer   *auth.Signer
	// Hub is optional; without it /ws/preload is not registered
	Hub *websocket.Hub

	StorageConfigured bool
}

type handler struct {
	Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{Dependencies: deps, logger: logger}

	e.GET("/", h.status)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "learnvoice-server",
		})
	})

	e.POST("/api/tts", h.resolve)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/tts", h.resolve)
	v1.GET("/voices", h.voices)
	v1.GET("/audio/:name", h.audio)

	cache := v1.Group("/cache", adminOnly(deps.Signer, logger))
	cache.POST("/warm", h.startWarm)
	cache.GET("/warm/:id", h.warmStatus)

	if deps.Hub != nil {
		e.GET("/ws/preload", func(c echo.Context) error {
			return websocket.HandleWebSocket(deps.Hub, c)
		})
	}
}

func (h *handler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "ok",
		Engine:  "go",
		Storage: h.StorageConfigured,
	})
}

func (h *handler) resolve(c echo.Context) error {
	var req TTSRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("Failed to bind tts request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	result, err := h.Resolver.ResolveToURL(c.Request().Context(), req.Text, req.VoiceID, req.Speed)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Audio resolution failed",
				zap.String("text", req.Text),
				zap.String("voice", req.VoiceID),
				zap.Error(err))
		}
		return c.JSON(status, ErrorResponse{
			Error:   entities.ErrorCode(err),
			Message: entities.ErrorMessage(err),
		})
	}

	return c.JSON(http.StatusOK, TTSResponse{
		URL:    result.URL,
		Source: string(result.Source),
		Cached: result.Cached,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrStorageFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) voices(c echo.Context) error {
	return c.JSON(http.StatusOK, VoicesResponse{Voices: entities.AvailableVoices})
}

// audio streams a self-hosted blob after checking its URL token
func (h *handler) audio(c echo.Context) error {
	key, ok := cachekey.FromFilename(c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown audio object",
		})
	}

	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Signed URL token is required",
		})
	}
	if err := h.Signer.VerifyAudioToken(token, key); err != nil {
		h.logger.Warn("Audio download rejected", zap.String("key", key.String()), zap.Error(err))
		if errors.Is(err, auth.ErrTokenMismatch) {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "invalid_token",
				Message: "Token does not grant access to this object",
			})
		}
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired token",
		})
	}

	data, err := h.Store.Get(c.Request().Context(), key)
	if errors.Is(err, entities.ErrBlobNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown audio object",
		})
	}
	if err != nil {
		h.logger.Error("Failed to read blob", zap.String("key", key.String()), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "storage_failure",
			Message: entities.ErrorMessage(entities.ErrStorageFailure),
		})
	}

	// content addressed, so the bytes behind a name never change
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, entities.ContentTypeMPEG, data)
}

func (h *handler) startWarm(c echo.Context) error {
	var req WarmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	words := usecase.UniqueWords(req.Words, req.VoiceID, req.Speed)
	if len(words) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "At least one word is required",
		})
	}

	id := h.Warmer.StartJob(usecase.WarmRequest{
		Words: words,
		Voice: req.VoiceID,
		Speed: req.Speed,
	})
	h.logger.Info("Cache warm job accepted", zap.String("jobID", id), zap.Int("words", len(words)))

	return c.JSON(http.StatusAccepted, WarmResponse{JobID: id})
}

func (h *handler) warmStatus(c echo.Context) error {
	job, ok := h.Warmer.Job(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown job",
		})
	}
	return c.JSON(http.StatusOK, job)
}

// adminOnly requires a bearer token carrying the admin role
func adminOnly(signer *auth.Signer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			authHeader := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if token == "" {
				logger.Warn("Admin request rejected: missing token")
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := signer.ValidateToken(token)
			if err != nil {
				logger.Warn("Admin request rejected: invalid token", zap.Error(err))
				message := "Invalid JWT token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					message = "Expired JWT token"
				}
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: message,
				})
			}

			if claims.Role != auth.RoleAdmin {
				logger.Warn("Admin request rejected: invalid role", zap.String("role", claims.Role))
				return c.JSON(http.StatusForbidden, ErrorResponse{
					Error:   "invalid_role",
					Message: "Only admin tokens may manage the cache",
				})
			}

			return next(c)
		}
	}
}
