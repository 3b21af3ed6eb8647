package resolve

import (
	"errors"

	"cinemabot/offerservice/internal/domain"
)

// SessionState is the lifecycle of one movie pick per conversation turn.
type SessionState string

const (
	SessionCreated           SessionState = "created"
	SessionAwaitingSelection SessionState = "awaiting_selection"
	SessionResolved          SessionState = "resolved"
	SessionDeclined          SessionState = "declined"
)

var (
	ErrInvalidTransition   = errors.New("invalid selection session transition")
	ErrCandidateOutOfRange = errors.New("candidate index out of range")
	ErrSessionNotResolved  = errors.New("selection session is not resolved")
)

// SelectionSession decides which movie identifier is handed to the offer
// resolver. It holds at most three candidates and lives for a single
// conversation turn; nothing here is persisted.
type SelectionSession struct {
	state      SessionState
	candidates []domain.MovieIdentity
	chosen     domain.MovieIdentity
}

func NewSelectionSession(candidates []domain.MovieIdentity) *SelectionSession {
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return &SelectionSession{
		state:      SessionCreated,
		candidates: append([]domain.MovieIdentity(nil), candidates...),
	}
}

func (s *SelectionSession) State() SessionState {
	return s.state
}

func (s *SelectionSession) Candidates() []domain.MovieIdentity {
	return append([]domain.MovieIdentity(nil), s.candidates...)
}

// Present moves the session out of Created: with candidates on hand the user
// gets a pick affordance, with none the session is declined outright.
func (s *SelectionSession) Present() (SessionState, error) {
	if s.state != SessionCreated {
		return s.state, ErrInvalidTransition
	}
	if len(s.candidates) == 0 {
		s.state = SessionDeclined
	} else {
		s.state = SessionAwaitingSelection
	}
	return s.state, nil
}

// Select resolves the session to the picked candidate.
func (s *SelectionSession) Select(index int) (domain.MovieIdentity, error) {
	if s.state != SessionAwaitingSelection {
		return domain.MovieIdentity{}, ErrInvalidTransition
	}
	if index < 0 || index >= len(s.candidates) {
		return domain.MovieIdentity{}, ErrCandidateOutOfRange
	}
	s.chosen = s.candidates[index]
	s.state = SessionResolved
	return s.chosen, nil
}

// Decline records an explicit rejection of all candidates.
func (s *SelectionSession) Decline() error {
	if s.state != SessionAwaitingSelection {
		return ErrInvalidTransition
	}
	s.state = SessionDeclined
	return nil
}

// Chosen returns the resolved identity once the session reached Resolved.
func (s *SelectionSession) Chosen() (domain.MovieIdentity, error) {
	if s.state != SessionResolved {
		return domain.MovieIdentity{}, ErrSessionNotResolved
	}
	return s.chosen, nil
}
