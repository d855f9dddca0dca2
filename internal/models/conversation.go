package models

import "time"

// Participant is one speaker in a multi-language conversation.
// IDs are assigned sequentially by the engine ("p1", "p2", ...) and stay
// stable for the lifetime of the conversation.
type Participant struct {
	ID                   string    `json:"id"`
	PreferredLanguage    string    `json:"preferred_language"`
	LastDetectedLanguage string    `json:"last_detected_language,omitempty"`
	DetectionConfidence  float64   `json:"detection_confidence,omitempty"`
	JoinedAt             time.Time `json:"joined_at"`
}

// Turn is one recorded utterance by the active participant.
type Turn struct {
	ID               string    `json:"id"` // UUID
	ParticipantID    string    `json:"participant_id"`
	Text             string    `json:"text"`
	DetectedLanguage string    `json:"detected_language"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
}

// ConversationBlob archives a finished conversation session to the database.
// One row per session, turns serialized as JSON.
type ConversationBlob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"uniqueIndex;not null;size:36" json:"session_id"`
	Turns     string    `gorm:"not null" json:"turns"` // JSON array of Turn
	TurnCount int       `gorm:"default:0" json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
}

func (ConversationBlob) TableName() string {
	return "conversation_blobs"
}
