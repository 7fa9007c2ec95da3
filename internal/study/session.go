package study

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/sched"
	"github.com/mfield/retain/internal/storage"
)

// Session is one sitting over a deck's due cards.
type Session struct {
	ID        string
	StartedAt time.Time
	DeckID    int64

	CardsReviewed int
	MaxCards      int

	CurrentCardID *int64
}

// SessionStats summarises a finished session.
type SessionStats struct {
	SessionID     string
	Duration      time.Duration
	CardsReviewed int
}

// Service drives the scheduler on behalf of an interactive client:
// session bookkeeping, card hand-off and answer submission.
type Service struct {
	col      *collection.Collection
	sched    *sched.Scheduler
	sessions map[string]*sessionState
}

type sessionState struct {
	*Session
	current *storage.Card
	shown   time.Time
}

// NewService creates a new study service.
func NewService(col *collection.Collection, scheduler *sched.Scheduler) *Service {
	return &Service{
		col:      col,
		sched:    scheduler,
		sessions: make(map[string]*sessionState),
	}
}

// StartSession selects a deck and begins a review session over it.
func (s *Service) StartSession(deckID int64, maxCards int) (*Session, error) {
	if err := s.col.Decks.SelectDeck(deckID); err != nil {
		return nil, err
	}
	s.col.Conf.CurDeck = deckID
	s.col.Conf.ActiveDecks = s.col.Decks.Active()
	if err := s.col.FlushConf(); err != nil {
		return nil, err
	}
	if err := s.sched.Reset(); err != nil {
		return nil, fmt.Errorf("failed to build queues: %w", err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		StartedAt: s.col.Now(),
		DeckID:    deckID,
		MaxCards:  maxCards,
	}
	s.sessions[session.ID] = &sessionState{Session: session}
	return session, nil
}

// NextCard hands out the next due card, or nil when the session is
// complete.
func (s *Service) NextCard(sessionID string) (*storage.Card, error) {
	state, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if state.MaxCards > 0 && state.CardsReviewed >= state.MaxCards {
		return nil, nil
	}
	card, err := s.sched.NextCard()
	if err != nil {
		return nil, err
	}
	if card == nil {
		state.current = nil
		state.CurrentCardID = nil
		return nil, nil
	}
	state.current = card
	state.CurrentCardID = &card.ID
	state.shown = s.col.Now()
	return card, nil
}

// Answer grades the card handed out by NextCard.
func (s *Service) Answer(sessionID string, ease domain.Ease) error {
	state, exists := s.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if state.current == nil {
		return fmt.Errorf("no card outstanding in session %s", sessionID)
	}
	taken := s.col.Now().Sub(state.shown)
	if err := s.sched.AnswerCard(state.current, ease, taken); err != nil {
		return err
	}
	state.CardsReviewed++
	state.current = nil
	state.CurrentCardID = nil
	return nil
}

// Counts exposes the footer triple for the session's current card.
func (s *Service) Counts(sessionID string) (int, int, int) {
	state, exists := s.sessions[sessionID]
	if !exists {
		return 0, 0, 0
	}
	return s.sched.Counts(state.current)
}

// EndSession finalises the session and returns its statistics.
func (s *Service) EndSession(sessionID string) (*SessionStats, error) {
	state, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	stats := &SessionStats{
		SessionID:     sessionID,
		Duration:      s.col.Now().Sub(state.StartedAt),
		CardsReviewed: state.CardsReviewed,
	}
	delete(s.sessions, sessionID)
	return stats, nil
}
