package sendgrid

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// EventID derives the deterministic storage id for an inbound event so that
// redelivery of the same logical event lands on the same key.
//
// sg_event_id is not guaranteed to be present on every event type, so the id
// hashes a fixed-order concatenation of the best available signals:
//
//	sg_event_id | sg_message_id | event | timestamp
//
// Missing fields contribute an empty segment. If the provider omits both of
// its ids, two distinct events sharing type and second collide and the later
// write wins; accepted as an approximation, not a dedup guarantee.
func EventID(e InboundEvent) string {
	ts := ""
	if e.Timestamp != 0 {
		ts = strconv.FormatFloat(e.Timestamp, 'f', -1, 64)
	}
	sum := sha256.Sum256([]byte(e.SGEventID + "|" + e.SGMessageID + "|" + e.Event + "|" + ts))
	return hex.EncodeToString(sum[:])[:32]
}
