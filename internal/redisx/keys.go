package redisx

import "time"

const (
	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// TTLDedup bounds how long a delivered event id is remembered.
	TTLDedup = 48 * time.Hour
	// TTLClaim bounds how long an in-flight claim blocks redelivery if the
	// worker dies before releasing or confirming it.
	TTLClaim = 10 * time.Minute
)
