package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	"github.com/noah-isme/lecture-progress-api/internal/service"
)

const (
	eventLectureCompleted = "lecture-completed"
	eventReady            = "ready"
	eventPing             = "ping"

	liveBufferSize = 16
)

type eventSource interface {
	Subscribe(handler progress.Handler) (unsubscribe func())
}

type relevanceChecker interface {
	Relevant(actor string, event models.LectureCompleted) bool
}

// EventsHandler streams lecture completed notifications over server-sent
// events.
type EventsHandler struct {
	bus       eventSource
	relevance relevanceChecker
	metrics   *service.MetricsService
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewEventsHandler constructs the live events handler. Faculty only receive
// events for batches in their workspace when relevance is set.
func NewEventsHandler(bus eventSource, relevance relevanceChecker, metrics *service.MetricsService, heartbeat time.Duration, logger *zap.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{bus: bus, relevance: relevance, metrics: metrics, heartbeat: heartbeat, logger: logger}
}

// Stream godoc
// @Summary Live lecture completion events
// @Description Server-sent events. Emits "ready" once, "lecture-completed" per completion and "ping" as a heartbeat.
// @Tags Events
// @Produce text/event-stream
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}

	events := make(chan models.LectureCompleted, liveBufferSize)
	unsubscribe := h.bus.Subscribe(func(event models.LectureCompleted) {
		if !h.wants(principal, event) {
			return
		}
		select {
		case events <- event:
		default:
			h.logger.Warn("live client too slow, event dropped",
				zap.String("user_id", principal.UserID),
				zap.String("lecture_id", event.LectureID))
		}
	})
	defer unsubscribe()

	h.metrics.LiveClientConnected(1)
	defer h.metrics.LiveClientConnected(-1)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	c.Status(200)
	c.SSEvent(eventReady, gin.H{"userId": principal.UserID, "role": principal.Role})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			c.SSEvent(eventLectureCompleted, event)
			c.Writer.Flush()
		case at := <-ticker.C:
			c.SSEvent(eventPing, at.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}

func (h *EventsHandler) wants(principal *models.Principal, event models.LectureCompleted) bool {
	if principal.Role != models.RoleFaculty || h.relevance == nil {
		return true
	}
	return h.relevance.Relevant(principal.UserID, event)
}
