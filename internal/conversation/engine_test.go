package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emifrog/speechtotalk/internal/translator"
)

// fakeDetector returns scripted detections in order, repeating the last one.
type fakeDetector struct {
	results []translator.Detection
	errs    []error
	calls   int
}

func (d *fakeDetector) DetectLanguage(_ context.Context, _ string) (translator.Detection, error) {
	i := d.calls
	d.calls++
	if i >= len(d.results) {
		i = len(d.results) - 1
	}
	if i < 0 {
		return translator.Detection{}, errors.New("no scripted detection")
	}
	var err error
	if i < len(d.errs) {
		err = d.errs[i]
	}
	return d.results[i], err
}

func reliable(lang string) *fakeDetector {
	return &fakeDetector{results: []translator.Detection{{LanguageCode: lang, Confidence: 0.95}}}
}

func newActiveEngine(t *testing.T, detector translator.Detector, langs ...string) *Engine {
	t.Helper()
	e := NewEngine(detector, nil, func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	})
	e.Initialize(langs)
	e.SetActive(true)
	return e
}

func TestInitializeDefaults(t *testing.T) {
	e := NewEngine(reliable("fr"), nil, nil)

	participants := e.Initialize(nil)
	if len(participants) != 2 {
		t.Fatalf("Expected default 2 participants, got %d", len(participants))
	}
	if participants[0].PreferredLanguage != "fr" || participants[1].PreferredLanguage != "en" {
		t.Errorf("Default languages = %s, %s; want fr, en",
			participants[0].PreferredLanguage, participants[1].PreferredLanguage)
	}
	if participants[0].ID == participants[1].ID {
		t.Error("Participant IDs must be distinct")
	}

	if cur := e.Current(); cur == nil || cur.ID != participants[0].ID {
		t.Error("First participant should be active after initialize")
	}
}

func TestInitializeResetsHistory(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en")

	if _, err := e.RecordUtterance(context.Background(), "Bonjour"); err != nil {
		t.Fatalf("RecordUtterance: %v", err)
	}
	e.Initialize([]string{"fr", "es"})

	if n := len(e.History()); n != 0 {
		t.Errorf("Initialize should clear history, found %d turns", n)
	}
}

func TestTurnRotation(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en", "es")
	ids := e.Participants()

	// Starting at A (index 0), three advances visit B, C, A.
	want := []string{ids[1].ID, ids[2].ID, ids[0].ID}
	for i, expected := range want {
		got := e.AdvanceTurn()
		if got == nil || got.ID != expected {
			t.Fatalf("Advance %d: got %v, want id %s", i+1, got, expected)
		}
	}
}

func TestAdvanceTurnEmptyRoster(t *testing.T) {
	e := NewEngine(reliable("fr"), nil, nil)
	if got := e.AdvanceTurn(); got != nil {
		t.Errorf("AdvanceTurn on empty roster = %v, want nil", got)
	}
}

func TestAddParticipantKeepsActive(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en")
	before := e.Current().ID

	p := e.AddParticipant("de")
	if p.PreferredLanguage != "de" {
		t.Errorf("New participant language = %s", p.PreferredLanguage)
	}
	if e.Current().ID != before {
		t.Error("AddParticipant must not change the active speaker")
	}
	if len(e.Participants()) != 3 {
		t.Errorf("Expected 3 participants, got %d", len(e.Participants()))
	}
}

func TestRemoveParticipantFloor(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en")
	ids := e.Participants()

	if err := e.RemoveParticipant(ids[0].ID); !errors.Is(err, ErrMinParticipants) {
		t.Errorf("Removing below floor should fail, got %v", err)
	}
	if len(e.Participants()) != 2 {
		t.Error("Failed removal must not mutate the roster")
	}
}

func TestRemoveActiveParticipantClampsToZero(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en", "es")
	ids := e.Participants()

	e.AdvanceTurn() // active: index 1
	if err := e.RemoveParticipant(ids[1].ID); err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	if cur := e.Current(); cur == nil || cur.ID != ids[0].ID {
		t.Errorf("Active should clamp to first participant, got %v", cur)
	}
}

func TestRemoveEarlierParticipantKeepsActiveSpeaker(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en", "es")
	ids := e.Participants()

	e.AdvanceTurn()
	e.AdvanceTurn() // active: index 2
	if err := e.RemoveParticipant(ids[0].ID); err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	if cur := e.Current(); cur == nil || cur.ID != ids[2].ID {
		t.Errorf("Active speaker should survive removal of an earlier entry, got %v", cur)
	}
}

func TestRemoveUnknownParticipant(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en", "es")
	if err := e.RemoveParticipant("p99"); !errors.Is(err, ErrUnknownParticipant) {
		t.Errorf("Expected ErrUnknownParticipant, got %v", err)
	}
}

func TestRecordUtteranceReliable(t *testing.T) {
	e := newActiveEngine(t, reliable("es"), "fr", "en")

	turn, err := e.RecordUtterance(context.Background(), "Hola, necesito ayuda")
	if err != nil {
		t.Fatalf("RecordUtterance: %v", err)
	}
	if turn.DetectedLanguage != "es" {
		t.Errorf("DetectedLanguage = %s, want es", turn.DetectedLanguage)
	}
	if turn.ID == "" {
		t.Error("Turn should carry an ID")
	}

	active := e.Current()
	if active.LastDetectedLanguage != "es" || active.DetectionConfidence != 0.95 {
		t.Errorf("Active participant not updated: %+v", active)
	}
	if len(e.History()) != 1 {
		t.Errorf("Expected 1 turn in history, got %d", len(e.History()))
	}
}

func TestRecordUtteranceUnreliableDropped(t *testing.T) {
	detector := &fakeDetector{results: []translator.Detection{{LanguageCode: "es", Confidence: 0.3}}}
	e := newActiveEngine(t, detector, "fr", "en")

	_, err := e.RecordUtterance(context.Background(), "mumble")
	if !errors.Is(err, ErrUnreliableDetection) {
		t.Fatalf("Expected ErrUnreliableDetection, got %v", err)
	}
	if len(e.History()) != 0 {
		t.Error("Unreliable detection must not reach the transcript")
	}
	if e.Current().LastDetectedLanguage != "" {
		t.Error("Unreliable detection must not mutate the participant")
	}
}

func TestRecordUtteranceDetectorError(t *testing.T) {
	detector := &fakeDetector{
		results: []translator.Detection{{}},
		errs:    []error{errors.New("network down")},
	}
	e := newActiveEngine(t, detector, "fr", "en")

	if _, err := e.RecordUtterance(context.Background(), "Bonjour"); err == nil {
		t.Fatal("Expected detector error to propagate")
	}
	if len(e.History()) != 0 {
		t.Error("Failed detection must not reach the transcript")
	}
}

func TestRecordUtteranceInactive(t *testing.T) {
	e := NewEngine(reliable("fr"), nil, nil)
	e.Initialize(nil)

	if _, err := e.RecordUtterance(context.Background(), "Bonjour"); !errors.Is(err, ErrInactive) {
		t.Errorf("Expected ErrInactive, got %v", err)
	}
}

func TestClearHistoryKeepsRoster(t *testing.T) {
	e := newActiveEngine(t, reliable("fr"), "fr", "en")
	if _, err := e.RecordUtterance(context.Background(), "Bonjour"); err != nil {
		t.Fatalf("RecordUtterance: %v", err)
	}
	e.AdvanceTurn()
	activeBefore := e.Current().ID

	e.ClearHistory()

	if len(e.History()) != 0 {
		t.Error("ClearHistory left turns behind")
	}
	if len(e.Participants()) != 2 {
		t.Error("ClearHistory must not touch the roster")
	}
	if e.Current().ID != activeBefore {
		t.Error("ClearHistory must not move the active speaker")
	}
}
