package game

import (
	"context"
	"time"
)

// Oracle judges guesses against a keyword. Verdicts are aligned with the
// input guesses by position.
type Oracle interface {
	Judge(ctx context.Context, keyword string, guesses []string) ([]Verdict, error)
}

// ImageStore persists a drawing and returns a durable reference to it.
type ImageStore interface {
	Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error)
}

// Recorder receives the append-only history of play. It never feeds back
// into live room state.
type Recorder interface {
	RoomCreated(ctx context.Context, rec RoomRecord) error
	RoundResolved(ctx context.Context, rec RoundRecord) error
	RoomClosed(ctx context.Context, rec ClosedRecord) error
}

type RoomRecord struct {
	RoomID      string
	MaxPlayers  int
	TotalRounds int
	Creator     string
	CreatedAt   time.Time
}

type RoundRecord struct {
	RoomID        string
	Round         int
	Turn          int
	Drawer        string
	Keyword       string
	DrawingRef    string
	AutoAvailable bool
	Judgments     []Judgment
	ResolvedAt    time.Time
}

type ClosedRecord struct {
	RoomID      string
	Reason      string
	FinalScores []FinalScore
	ClosedAt    time.Time
}

const (
	CloseReasonEmpty    = "empty"
	CloseReasonGameOver = "game_over"
)

type nopRecorder struct{}

func (nopRecorder) RoomCreated(context.Context, RoomRecord) error    { return nil }
func (nopRecorder) RoundResolved(context.Context, RoundRecord) error { return nil }
func (nopRecorder) RoomClosed(context.Context, ClosedRecord) error   { return nil }
