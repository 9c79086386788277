package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one structured line per request once the handler chain returns.
// The user id attribute is only present on authenticated requests.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Int("bytes", len(c.Response().Body())),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, ok := c.Locals(requestIDHeader).(string); ok && requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}
		logger.Info("request completed", attrs...)
		return nil
	}
}
