package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxRequestIDKey = "requestID"
)

// RequestID propaga el X-Request-ID recibido o genera uno nuevo.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(CtxRequestIDKey, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestLogger escribe una línea por petición; las rutas de skip no se registran.
func RequestLogger(logger *logrus.Logger, skip ...string) fiber.Handler {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *fiber.Ctx) error {
		if skipped[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		if _, ok := err.(*ValidationError); ok {
			status = fiber.StatusBadRequest
		}

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.Locals(CtxRequestIDKey),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
		return err
	}
}
