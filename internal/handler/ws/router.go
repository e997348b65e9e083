package ws

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/metrics"
)

// Router delivers events to live sessions. It does not buffer and it does
// not retry: an offline user or a saturated outbound queue is a delivery
// failure, and the saturated session is force-closed so its reader notices.
//
// Router is the services' notification port; they depend on its Notify
// method only.
type Router struct {
	registry *Registry
	metrics  *metrics.Metrics
}

// NewRouter creates a router over the given registry
func NewRouter(registry *Registry, m *metrics.Metrics) *Router {
	return &Router{registry: registry, metrics: m}
}

// Notify sends one event to one user. Reports whether the event reached
// the user's session queue.
func (r *Router) Notify(userID uuid.UUID, event string, payload any) bool {
	session := r.registry.Lookup(userID)
	if session == nil {
		r.metrics.RecordDeliveryFailure("offline")
		return false
	}

	frame, err := encodeFrame(event, payload)
	if err != nil {
		logger.Error("failed to encode frame",
			zap.String("event", event), zap.Error(err))
		r.metrics.RecordDeliveryFailure("encode")
		return false
	}

	if !session.enqueue(frame) {
		// The consumer cannot keep up; dropping silently would leave the
		// client with holes in its event stream, so cut the session instead
		logger.Warn("outbound queue full, closing session",
			zap.String("user_id", userID.String()),
			zap.String("event", event))
		r.metrics.RecordDeliveryFailure("queue_full")
		session.forceClose()
		return false
	}

	r.metrics.RecordEvent("out", event)
	return true
}
