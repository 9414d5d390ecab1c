package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	inFlightTTL       = 30 * time.Second
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a mutating request that
// carries an Idempotency-Key already seen for the same actor. Lifecycle
// operations are not idempotent themselves, so a retried accept or complete
// gets the original answer instead of AlreadyAccepted or InvalidTransition.
// A duplicate that arrives while the first request is still running gets 409.
// It must run after AuthMiddleware.
func IdempotencyMiddleware(client redis.Cmdable, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, key)

		cached, err := getCachedResponse(ctx, client, cacheKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			// Redis unavailable: proceed without idempotency.
			logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
			c.Next()
			return
		}
		if cached != nil {
			replay(c, cached)
			return
		}

		lockKey := cacheKey + ":lock"
		acquired, err := client.SetNX(ctx, lockKey, "1", inFlightTTL).Result()
		if err == nil && !acquired {
			abortWithError(c, http.StatusConflict, "conflict", "request with this idempotency key is in progress")
			return
		}
		if err == nil {
			defer client.Del(context.WithoutCancel(ctx), lockKey)

			// The first request may have stored its response and released the
			// lock between the lookup above and SetNX.
			if cached, err := getCachedResponse(ctx, client, cacheKey); err == nil && cached != nil {
				replay(c, cached)
				return
			}
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are not replayed; the client may retry them.
		if c.Writer.Status() >= 200 && c.Writer.Status() < 500 {
			response := cachedResponse{
				StatusCode: c.Writer.Status(),
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := setCachedResponse(context.WithoutCancel(ctx), client, cacheKey, &response, idempotencyTTL); err != nil {
				logger.WarnContext(ctx, "idempotency store failed", "error", err)
			}
		}
	}
}

func replay(c *gin.Context, cached *cachedResponse) {
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// idempotencyCacheKey scopes a client key to the caller and route so two users
// reusing the same key never see each other's responses.
func idempotencyCacheKey(c *gin.Context, key string) string {
	subject := "anonymous"
	if actor, ok := ActorFrom(c); ok {
		subject = actor.UserID
	}
	return "idempotency:" + subject + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

// getCachedResponse retrieves a cached response from Redis.
func getCachedResponse(ctx context.Context, client redis.Cmdable, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client redis.Cmdable, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
