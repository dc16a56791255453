package redis

import (
	"fmt"

	"github.com/mcoot/geoguess/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "geoguess"

// participantKey returns the Redis key for a Participant
func participantKey(id model.ExternalID) string {
	return fmt.Sprintf("%s:participant:%d", keyPrefix, id)
}

// sessionKey returns the Redis key holding the external ID bound to a session
func sessionKey(handle model.SessionHandle) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, handle)
}

// sessionsIndexKey returns the Redis key for the SET of live session handles
func sessionsIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}

// openRoundKey returns the Redis key for the currently open round
func openRoundKey() string {
	return fmt.Sprintf("%s:round:open", keyPrefix)
}

// closedRoundsKey returns the Redis key for the LIST of closed rounds, newest first
func closedRoundsKey() string {
	return fmt.Sprintf("%s:rounds:closed", keyPrefix)
}

// roundSequenceKey returns the Redis key for the round ID counter
func roundSequenceKey() string {
	return fmt.Sprintf("%s:seq:round", keyPrefix)
}
