package middleware

import (
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRateLimitStore возвращает Redis хранилище счетчиков, если клиент есть,
// иначе хранилище в памяти процесса.
func NewRateLimitStore(client *redis.Client, perMinute uint) ratelimit.Store {
	if client != nil {
		return ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: client,
			Rate:        time.Minute,
			Limit:       perMinute,
		})
	}
	return ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: perMinute,
	})
}

// RateLimit ограничивает число запросов с одного IP. Ответ при превышении
// совпадает по форме с ответом /generate_story.
func RateLimit(store ratelimit.Store, log *zap.Logger) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			log.Warn("Rate limit exceeded",
				zap.String("request_id", GetRequestID(c)),
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			retry := time.Until(info.ResetTime).Round(time.Second)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   fmt.Sprintf("The storyteller needs a short rest. Please try again in %s.", retry),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
