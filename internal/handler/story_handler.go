package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"starlit-server/internal/middleware"
	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 3 * time.Second

// examplePrompts - подсказки для пустого экрана клиента.
var examplePrompts = []string{
	"Tell me a story about a brave little mouse",
	"I want to hear about a friendly dragon who loves to bake",
	"Create a story about a curious star exploring the night sky",
	"Tell me about a magical forest where animals can talk",
	"Story about a kind mermaid who helps lost sailors",
}

// StoryProcessor - конвейер обработки одного запроса.
type StoryProcessor interface {
	Process(ctx context.Context, req models.GenerationRequest) models.FormattedResponse
}

// HealthCheck - проверка одной зависимости для /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options - параметры HTTP слоя.
type Options struct {
	RequestTimeout time.Duration
	MaxInputLength int
}

type StoryHandler struct {
	processor StoryProcessor
	threads   store.ThreadStore
	checks    []HealthCheck
	opts      Options
	logger    *zap.Logger
}

func NewStoryHandler(processor StoryProcessor, threads store.ThreadStore, opts Options, logger *zap.Logger, checks ...HealthCheck) *StoryHandler {
	return &StoryHandler{
		processor: processor,
		threads:   threads,
		checks:    checks,
		opts:      opts,
		logger:    logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. generateMiddleware (например, лимит
// запросов) применяется только к /generate_story.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine, generateMiddleware ...gin.HandlerFunc) {
	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)
	router.GET("/examples", h.examples)
	router.POST("/generate_story", append(generateMiddleware, h.generateStory)...)
	router.GET("/threads/:thread_id", h.getThread)
}

type generateStoryRequest struct {
	UserInput  string `json:"user_input" binding:"required"`
	LengthTier string `json:"length_tier"`
	ThreadID   string `json:"thread_id"`
}

func (h *StoryHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Starlit Stories API is running",
		"status":  "operational",
	})
}

func (h *StoryHandler) examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": examplePrompts})
}

// health параллельно опрашивает зависимости и отдает 503 при первой ошибке.
func (h *StoryHandler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	statuses := make([]string, len(h.checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range h.checks {
		g.Go(func() error {
			if err := check.Check(gctx); err != nil {
				statuses[i] = "down"
				return fmt.Errorf("%s: %w", check.Name, err)
			}
			statuses[i] = "up"
			return nil
		})
	}
	err := g.Wait()

	deps := gin.H{}
	for i, check := range h.checks {
		status := statuses[i]
		if status == "" {
			status = "unknown"
		}
		deps[check.Name] = status
	}

	body := gin.H{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	}
	if err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *StoryHandler) generateStory(c *gin.Context) {
	var req generateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid generate_story body",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success:  false,
			Error:    "Please tell me what kind of story you would like to hear.",
			ThreadID: req.ThreadID,
		})
		return
	}
	if h.opts.MaxInputLength > 0 && utf8.RuneCountInString(strings.TrimSpace(req.UserInput)) > h.opts.MaxInputLength {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success:  false,
			Error:    fmt.Sprintf("That request is a little too long for me. Could you tell it in %d characters or fewer?", h.opts.MaxInputLength),
			ThreadID: req.ThreadID,
		})
		return
	}

	ctx := c.Request.Context()
	if h.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.RequestTimeout)
		defer cancel()
	}

	resp := h.processor.Process(ctx, models.GenerationRequest{
		UserInput:  req.UserInput,
		LengthTier: models.LengthTier(req.LengthTier),
		ThreadID:   req.ThreadID,
	})
	h.logger.Info("Story request processed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("thread_id", resp.ThreadID),
		zap.String("kind", string(resp.Kind)),
	)
	c.JSON(http.StatusOK, resp.ToAPI())
}

func (h *StoryHandler) getThread(c *gin.Context) {
	threadID := c.Param("thread_id")
	thread, err := h.threads.Get(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownThread) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		h.logger.Error("Failed to load thread",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected internal error occurred"})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	c.JSON(http.StatusOK, thread)
}
