package redis

// Key prefixes for primary entity storage.
const (
	prefixProject        = "hookgate:proj:"
	prefixEndpoint       = "hookgate:ep:"
	prefixRule           = "hookgate:rule:"
	prefixTransformation = "hookgate:xform:"
	prefixEvent          = "hookgate:evt:"
	prefixDelivery       = "hookgate:del:"
	prefixDLQ            = "hookgate:dlq:"
)

// Key prefixes for unique indexes.
const (
	uniqueProjectAPIKey = "hookgate:u:proj:apikey:"
)

// Key prefixes for sorted set indexes.
const (
	zProjectAll        = "hookgate:z:proj:all"
	zEndpointProject   = "hookgate:z:ep:proj:"   // + project ID, scored by created_at
	zRuleEndpoint      = "hookgate:z:rule:ep:"   // + endpoint ID, scored by priority
	zTransformEndpoint = "hookgate:z:xform:ep:"  // + endpoint ID, scored by priority
	zEventAll          = "hookgate:z:evt:all"    // scored by created_at
	zEventProject      = "hookgate:z:evt:proj:"  // + project ID
	zEventDue          = "hookgate:z:evt:due"    // pending/failed, scored by next_attempt_at
	zEventProcessing   = "hookgate:z:evt:proc"   // processing, scored by last_attempt_at
	zDLQAll            = "hookgate:z:dlq:all"    // scored by failed_at
)

// Other index keys.
const (
	sEventStatus     = "hookgate:s:evt:status:"    // + status
	hRuleStats       = "hookgate:h:rule:stats:"    // + rule ID
	lDeliveryEvent   = "hookgate:l:del:evt:"       // + event ID, append order
	hDeliveryCounter = "hookgate:h:del:count:evt:" // + event ID, field = destination
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
