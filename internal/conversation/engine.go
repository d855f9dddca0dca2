// Package conversation implements the turn-taking engine for multi-language
// conversations: a round-robin speaker queue where each recorded utterance
// runs through language detection and, when the detection is reliable,
// updates the active participant and the transcript.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emifrog/speechtotalk/internal/metrics"
	"github.com/emifrog/speechtotalk/internal/models"
	"github.com/emifrog/speechtotalk/internal/translator"
)

const (
	// MinParticipants is the floor for RemoveParticipant: a conversation
	// needs at least two speakers to be meaningful.
	MinParticipants = 2

	// DefaultDetectionThreshold gates transcript updates: detections below
	// it are dropped so noise never corrupts the history.
	DefaultDetectionThreshold = 0.6
)

var (
	ErrInactive            = errors.New("conversation mode is not active")
	ErrNoParticipants      = errors.New("conversation has no participants")
	ErrUnknownParticipant  = errors.New("unknown participant id")
	ErrMinParticipants     = fmt.Errorf("conversation requires at least %d participants", MinParticipants)
	ErrUnreliableDetection = errors.New("language detection below confidence threshold")
)

// Engine is the conversation turn state machine. Safe for concurrent use.
type Engine struct {
	detector  translator.Detector
	now       func() time.Time
	threshold float64
	db        *gorm.DB // optional session archive; nil disables archiving

	mu           sync.Mutex
	sessionID    string
	participants []models.Participant
	activeIndex  int
	turnHistory  []models.Turn
	isActive     bool
	nextID       int
}

// NewEngine builds an engine with the injected detector and clock. db may be
// nil; sessions are then not archived on deactivation.
func NewEngine(detector translator.Detector, db *gorm.DB, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		detector:  detector,
		db:        db,
		now:       now,
		threshold: DefaultDetectionThreshold,
	}
}

// Initialize seeds the conversation. A nil or empty language list yields the
// default French/English pair. Resets the active speaker and the transcript.
func (e *Engine) Initialize(preferredLangs []string) []models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(preferredLangs) == 0 {
		preferredLangs = []string{"fr", "en"}
	}

	e.sessionID = uuid.New().String()
	e.participants = make([]models.Participant, 0, len(preferredLangs))
	e.nextID = 0
	for _, lang := range preferredLangs {
		e.participants = append(e.participants, e.newParticipantLocked(lang))
	}
	e.activeIndex = 0
	e.turnHistory = nil

	return e.snapshotParticipantsLocked()
}

func (e *Engine) newParticipantLocked(lang string) models.Participant {
	e.nextID++
	return models.Participant{
		ID:                defaultID(e.nextID),
		PreferredLanguage: lang,
		JoinedAt:          e.now(),
	}
}

func defaultID(n int) string {
	return fmt.Sprintf("p%d", n)
}

// SetActive flips conversation mode on or off. Deactivation archives the
// session transcript when a database is attached.
func (e *Engine) SetActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isActive && !active {
		e.archiveLocked()
	}
	e.isActive = active
}

// IsActive reports whether conversation mode is on.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isActive
}

// AddParticipant appends a speaker with a fresh sequential id. The active
// speaker does not change.
func (e *Engine) AddParticipant(preferredLang string) models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.newParticipantLocked(preferredLang)
	e.participants = append(e.participants, p)
	return p
}

// RemoveParticipant removes a speaker by id. Refuses to drop below the
// two-participant floor. Removing the active speaker, or any speaker before
// it in the list, re-clamps the active index to 0.
func (e *Engine) RemoveParticipant(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.participants) <= MinParticipants {
		return ErrMinParticipants
	}

	for i, p := range e.participants {
		if p.ID != id {
			continue
		}
		e.participants = append(e.participants[:i], e.participants[i+1:]...)
		switch {
		case i == e.activeIndex || e.activeIndex >= len(e.participants):
			e.activeIndex = 0
		case i < e.activeIndex:
			// keep the same speaker active after the list shifts left
			e.activeIndex--
		}
		return nil
	}
	return ErrUnknownParticipant
}

// AdvanceTurn moves to the next speaker round-robin and returns it.
// Returns nil when there are no participants.
func (e *Engine) AdvanceTurn() *models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.participants) == 0 {
		return nil
	}
	e.activeIndex = (e.activeIndex + 1) % len(e.participants)
	p := e.participants[e.activeIndex]
	return &p
}

// Current returns the active speaker, or nil when the roster is empty.
func (e *Engine) Current() *models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.participants) == 0 {
		return nil
	}
	p := e.participants[e.activeIndex]
	return &p
}

// Participants returns a snapshot of the roster.
func (e *Engine) Participants() []models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotParticipantsLocked()
}

func (e *Engine) snapshotParticipantsLocked() []models.Participant {
	return append([]models.Participant(nil), e.participants...)
}

// RecordUtterance runs language detection on text and, when the detection is
// reliable, updates the active speaker and appends a turn to the transcript.
// Unreliable or failed detections are dropped without touching any state.
func (e *Engine) RecordUtterance(ctx context.Context, text string) (*models.Turn, error) {
	e.mu.Lock()
	if !e.isActive {
		e.mu.Unlock()
		return nil, ErrInactive
	}
	if len(e.participants) == 0 {
		e.mu.Unlock()
		return nil, ErrNoParticipants
	}
	active := e.activeIndex
	e.mu.Unlock()

	// Detection happens outside the lock: it is a network call.
	detection, err := e.detector.DetectLanguage(ctx, text)
	if err != nil {
		log.Printf("[CONVERSATION] detection failed, dropping utterance: %v", err)
		metrics.DetectionDroppedTotal.Inc()
		return nil, err
	}
	if detection.Confidence < e.threshold {
		debugDetection(text, detection)
		metrics.DetectionDroppedTotal.Inc()
		return nil, ErrUnreliableDetection
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The roster may have shifted while detecting; re-clamp.
	if len(e.participants) == 0 {
		return nil, ErrNoParticipants
	}
	if active >= len(e.participants) {
		active = 0
	}

	p := &e.participants[active]
	p.LastDetectedLanguage = detection.LanguageCode
	p.DetectionConfidence = detection.Confidence

	turn := models.Turn{
		ID:               uuid.New().String(),
		ParticipantID:    p.ID,
		Text:             text,
		DetectedLanguage: detection.LanguageCode,
		Confidence:       detection.Confidence,
		Timestamp:        e.now(),
	}
	e.turnHistory = append(e.turnHistory, turn)
	metrics.ConversationTurnsTotal.Inc()

	return &turn, nil
}

func debugDetection(text string, d translator.Detection) {
	log.Printf("[CONVERSATION] dropped unreliable detection (%s, %.2f) for %d-char utterance",
		d.LanguageCode, d.Confidence, len(text))
}

// History returns a snapshot of the transcript.
func (e *Engine) History() []models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Turn(nil), e.turnHistory...)
}

// ClearHistory empties the transcript only; the roster and active speaker
// are untouched.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turnHistory = nil
}

// archiveLocked persists the finished session transcript. Best effort: a
// failed archive only logs.
func (e *Engine) archiveLocked() {
	if e.db == nil || len(e.turnHistory) == 0 {
		return
	}

	turns, err := json.Marshal(e.turnHistory)
	if err != nil {
		log.Printf("[CONVERSATION] failed to serialize session %s: %v", e.sessionID, err)
		return
	}

	blob := models.ConversationBlob{
		SessionID: e.sessionID,
		Turns:     string(turns),
		TurnCount: len(e.turnHistory),
		CreatedAt: e.now(),
	}
	if err := e.db.Create(&blob).Error; err != nil {
		log.Printf("[CONVERSATION] failed to archive session %s: %v", e.sessionID, err)
		return
	}
	log.Printf("[CONVERSATION] archived session %s (%d turns)", e.sessionID, len(e.turnHistory))
}
