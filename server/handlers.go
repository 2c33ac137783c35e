package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/brightsphere/ai-gateway/gateway"
	"github.com/brightsphere/ai-gateway/interactions"
	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/brightsphere/ai-gateway/videos"
	"github.com/gofiber/fiber/v2"
)

const anonymousUser = "anonymous"

type completeRequest struct {
	Query   string `json:"query"`
	Feature string `json:"feature,omitempty"`
	Context string `json:"context,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

type completeResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Feature  string `json:"feature,omitempty"`
	Success  bool   `json:"success"`
}

type videoSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"maxResults,omitempty"`
	UserID     string `json:"userId,omitempty"`
}

type videoSearchResponse struct {
	Videos  []videos.Video `json:"videos"`
	Success bool           `json:"success"`
}

type healthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}

type statsResponse struct {
	Gateway  gateway.Stats              `json:"gateway"`
	Recorder interactions.RecorderStats `json:"recorder"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	names := s.config.Orchestrator.Registry().Names()
	status := "ok"
	if len(names) == 0 {
		status = "degraded"
	}
	return c.JSON(healthResponse{Status: status, Providers: names})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := statsResponse{Gateway: s.config.Orchestrator.Stats()}
	if s.config.Recorder != nil {
		resp.Recorder = s.config.Recorder.Stats()
	}
	return c.JSON(resp)
}

func (s *Server) handleComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return respondError(c, fiber.StatusBadRequest, "Query is required")
	}

	requestID := requestIDFrom(c)
	userID := s.resolveUserID(c, req.UserID)

	if !s.allow(c, userID) {
		return respondError(c, fiber.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}

	if s.config.Orchestrator.Registry().Len() == 0 {
		s.logger.WithFields(logger.Fields{"request_id": requestID}).Errorf("No AI provider credentials configured")
		return respondError(c, fiber.StatusServiceUnavailable, "No AI providers are configured")
	}

	result := s.config.Orchestrator.Complete(c.UserContext(), gateway.CompletionRequest{
		RequestID: requestID,
		UserID:    userID,
		Query:     req.Query,
		Feature:   req.Feature,
		Context:   req.Context,
	})

	if s.config.Recorder != nil {
		s.config.Recorder.Record(&interactions.Entry{
			RequestID:    requestID,
			UserID:       userID,
			Query:        req.Query,
			Response:     result.Text,
			ProviderUsed: result.ProviderUsed,
			Feature:      gateway.NormalizeFeature(req.Feature),
			Success:      result.Success,
			ErrorKind:    result.ErrorKind,
			LatencyMs:    result.Latency.Milliseconds(),
		})
	}

	return c.JSON(completeResponse{
		Response: result.Text,
		Model:    result.ProviderUsed,
		Feature:  req.Feature,
		Success:  result.Success,
	})
}

func (s *Server) handleVideoSearch(c *fiber.Ctx) error {
	var req videoSearchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return respondError(c, fiber.StatusBadRequest, "Query is required")
	}

	userID := s.resolveUserID(c, req.UserID)
	if !s.allow(c, userID) {
		return respondError(c, fiber.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}

	if s.config.Videos == nil {
		return respondError(c, fiber.StatusServiceUnavailable, "Video search is not configured")
	}

	found, err := s.config.Videos.Search(c.UserContext(), query, req.MaxResults)
	if err != nil {
		s.logger.WithFields(logger.Fields{
			"request_id": requestIDFrom(c),
			"event":      "video_search_failed",
		}).Errorf("Video search failed: %v", err)

		if errors.Is(err, videos.ErrQuotaExceeded) {
			return respondError(c, fiber.StatusServiceUnavailable, "Video search quota exceeded")
		}
		return respondError(c, fiber.StatusBadGateway, "Video search failed")
	}

	return c.JSON(videoSearchResponse{Videos: found, Success: true})
}

// resolveUserID prefers the authenticated subject, then the body, then anonymous.
func (s *Server) resolveUserID(c *fiber.Ctx, bodyUserID string) string {
	if userID, ok := c.Locals(localsUserID).(string); ok && userID != "" {
		return userID
	}
	if id := strings.TrimSpace(bodyUserID); id != "" {
		c.Locals(localsUserID, id)
		return id
	}
	c.Locals(localsUserID, anonymousUser)
	return anonymousUser
}

// allow runs the rate limit check for userID and sets the X-RateLimit headers.
func (s *Server) allow(c *fiber.Ctx, userID string) bool {
	if s.config.Limiter == nil {
		return true
	}

	decision := s.config.Limiter.Check(userID)
	c.Set("X-RateLimit-Limit", strconv.Itoa(s.config.Limiter.Limit()))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if decision.Allowed {
		return true
	}

	requestID := requestIDFrom(c)
	s.config.Orchestrator.RecordRateLimited(requestID, userID)
	s.logger.WithFields(logger.Fields{
		"event":      "rate_limited",
		"request_id": requestID,
		"user_id":    userID,
	}).Warnf("Rate limit exceeded for %s", userID)
	return false
}
