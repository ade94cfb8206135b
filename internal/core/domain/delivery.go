package domain

// DeliveryClaimTTLSeconds bounds how long a session's push-delivery
// claims survive in the cache; it only needs to outlive the longest
// plausible redelivery window.
const DeliveryClaimTTLSeconds = 24 * 60 * 60

// DeliveryClaimKey names the cache set of track IDs whose push
// notification was already delivered for a session. Every delivery
// path claims a slot here before sending, so a fired trigger produces
// at most one push regardless of which worker gets there first.
func DeliveryClaimKey(sessionID string) string {
	return "session:" + sessionID + ":notified"
}
