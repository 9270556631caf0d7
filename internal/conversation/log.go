// Package conversation keeps the ordered transcript of one chat session.
package conversation

import (
	"slices"

	"github.com/google/uuid"

	"navassist/internal/domain"
)

// Log is an append-only, session-owned sequence of turns. Render order is
// append order. It is not safe for concurrent use; a session serializes access.
type Log struct {
	sessionID string
	turns     []domain.Turn
}

// NewLog creates an empty log for a new session.
func NewLog() *Log {
	return &Log{sessionID: uuid.NewString()}
}

// SessionID identifies the session owning the log.
func (l *Log) SessionID() string { return l.sessionID }

// Append adds t after every previously appended turn.
func (l *Log) Append(t domain.Turn) {
	l.turns = append(l.turns, t)
}

// Render returns a copy of the turns in append order.
func (l *Log) Render() []domain.Turn {
	return slices.Clone(l.turns)
}

// Len returns the number of turns.
func (l *Log) Len() int { return len(l.turns) }

// Reset empties the log and starts a new session.
func (l *Log) Reset() {
	l.turns = nil
	l.sessionID = uuid.NewString()
}
