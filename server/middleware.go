package server

import (
	"errors"
	"strings"
	"time"

	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	localsRequestID = "request_id"
	localsUserID    = "user_id"
)

type errorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func newRequestID() string {
	return "req_" + uuid.New().String()[:8]
}

// requestID reuses a caller supplied X-Request-ID or mints one.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(headerRequestID))
	if id == "" || len(id) > 64 {
		id = newRequestID()
	}

	c.Locals(localsRequestID, id)
	c.Set(headerRequestID, id)
	return c.Next()
}

// allowAnyOrigin sets the CORS origin header even when the request carries no
// Origin, which the cors middleware skips.
func allowAnyOrigin(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	return c.Next()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	fields := logger.Fields{
		"event":      "http_request",
		"request_id": requestIDFrom(c),
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if userID, ok := c.Locals(localsUserID).(string); ok && userID != "" {
		fields["user_id"] = userID
	}

	log := s.logger.WithFields(fields)
	switch {
	case status >= 500:
		log.Errorf("%s %s -> %d", c.Method(), c.Path(), status)
	case status >= 400:
		log.Warnf("%s %s -> %d", c.Method(), c.Path(), status)
	default:
		log.Printf("%s %s -> %d", c.Method(), c.Path(), status)
	}

	return err
}

// handleError renders every error as {error, success:false}. Anything that is
// not a *fiber.Error is an unexpected internal failure.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		s.logger.WithFields(logger.Fields{
			"request_id": requestIDFrom(c),
			"path":       c.Path(),
		}).Errorf("Unhandled error: %v", err)
	}

	return c.Status(code).JSON(errorResponse{Error: message, Success: false})
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorResponse{Error: message, Success: false})
}
