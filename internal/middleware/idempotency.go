package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idemPrefix           = "idem:v1:"
	idemPending          = "__pending__"
	idemOpTimeout        = 2 * time.Second
)

// idemRecord is the replayable slice of a completed response.
type idemRecord struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// Idempotency makes unsafe requests replay-safe: the first request under a
// given Idempotency-Key runs the handler and stores its response in Redis,
// retries get the stored response back, and a concurrent duplicate gets a
// conflict while the first is still running. Mounted on the money-moving
// route groups.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idemPrefix + key

		ctx, cancel := context.WithTimeout(context.Background(), idemOpTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replayIdempotent(c, key, cached, logger)
		case !errors.Is(err, redis.Nil):
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		// Reserve the key before running the handler so a racing duplicate
		// sees the pending marker instead of running twice.
		reserved, err := cache.SetNX(ctx, cacheKey, idemPending, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			// Failed attempts may be retried, so release the reservation.
			releaseIdempotent(cache, cacheKey)
			return err
		}

		record := idemRecord{
			Status:      c.Response().StatusCode(),
			Body:        string(c.Response().Body()),
			ContentType: string(c.Response().Header.ContentType()),
		}
		payload, err := json.Marshal(record)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			releaseIdempotent(cache, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), idemOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			releaseIdempotent(cache, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}
		return nil
	}
}

func replayIdempotent(c *fiber.Ctx, key, cached string, logger *slog.Logger) error {
	if cached == idemPending {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var record idemRecord
	if err := json.Unmarshal([]byte(cached), &record); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if record.ContentType != "" {
		c.Set(fiber.HeaderContentType, record.ContentType)
	}
	return c.Status(record.Status).SendString(record.Body)
}

func releaseIdempotent(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idemOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}
