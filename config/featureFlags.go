package config

import (
	"os"
	"strings"
	"time"
)

type NotificationTransport string

const (
	// NotificationTransportOutbox writes notification rows; the outbox dispatcher publishes them later.
	NotificationTransportOutbox NotificationTransport = "outbox"
	// NotificationTransportPubSub publishes straight to Pub/Sub from the request.
	NotificationTransportPubSub NotificationTransport = "pubsub"
)

// GetNotificationTransport selects how QA notifications leave the engine.
//
// Set via env:
// - NOTIFICATION_TRANSPORT=outbox|pubsub (default outbox)
func GetNotificationTransport() NotificationTransport {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFICATION_TRANSPORT")))
	if v == string(NotificationTransportPubSub) {
		return NotificationTransportPubSub
	}
	return NotificationTransportOutbox
}

// OutboxDispatchEnabled runs the background publisher for outbox notification rows.
//
// Set via env:
// - OUTBOX_DISPATCH_ENABLED=true
func OutboxDispatchEnabled() bool {
	return boolFromEnv("OUTBOX_DISPATCH_ENABLED")
}

// NumberingLockEnabled serializes number generation per scope with a Redis lock.
// The unique index on the number columns is still the source of truth.
//
// Set via env:
// - NUMBERING_LOCK_ENABLED=true
func NumberingLockEnabled() bool {
	return boolFromEnv("NUMBERING_LOCK_ENABLED")
}

// TemplateCacheTTL is how long checklist templates stay cached in Redis.
func TemplateCacheTTL() time.Duration {
	return time.Duration(IntFromEnv("TEMPLATE_CACHE_TTL_MINUTES", 60)) * time.Minute
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
