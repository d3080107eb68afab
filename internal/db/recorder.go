package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"draw-guess/internal/game"
)

// Recorder writes the append-only history of play. A nil connection turns
// every call into a no-op.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]uint
}

func NewRecorder(conn *gorm.DB, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: conn, logger: logger, rooms: make(map[string]uint)}
}

type roomCreatedPayload struct {
	Creator     string `json:"creator"`
	MaxPlayers  int    `json:"maxPlayers"`
	TotalRounds int    `json:"totalRounds"`
}

type roundResolvedPayload struct {
	Round        int    `json:"round"`
	Turn         int    `json:"turn"`
	Keyword      string `json:"keyword"`
	CorrectCount int    `json:"correctCount"`
	AIAvailable  bool   `json:"aiAvailable"`
}

type roomClosedPayload struct {
	Reason      string            `json:"reason"`
	FinalScores []game.FinalScore `json:"finalScores,omitempty"`
}

func (r *Recorder) RoomCreated(ctx context.Context, rec game.RoomRecord) error {
	if r.db == nil {
		return nil
	}
	room := Room{
		Code:        rec.RoomID,
		Creator:     rec.Creator,
		MaxPlayers:  rec.MaxPlayers,
		TotalRounds: rec.TotalRounds,
		Status:      RoomStatusOpen,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.CreatedAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return createEvent(tx, room.ID, nil, "room_created", roomCreatedPayload{
			Creator:     rec.Creator,
			MaxPlayers:  rec.MaxPlayers,
			TotalRounds: rec.TotalRounds,
		}, rec.CreatedAt)
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.rooms[rec.RoomID] = room.ID
	r.mu.Unlock()
	return nil
}

func (r *Recorder) RoundResolved(ctx context.Context, rec game.RoundRecord) error {
	if r.db == nil {
		return nil
	}
	conn := r.db.WithContext(ctx)
	roomID, err := r.roomID(conn, rec.RoomID)
	if err != nil {
		return err
	}
	round := Round{
		RoomID:        roomID,
		Number:        rec.Round,
		Turn:          rec.Turn,
		Drawer:        rec.Drawer,
		Keyword:       rec.Keyword,
		DrawingRef:    rec.DrawingRef,
		AutoAvailable: rec.AutoAvailable,
		ResolvedAt:    rec.ResolvedAt,
		CreatedAt:     rec.ResolvedAt,
	}
	correct := 0
	for _, j := range rec.Judgments {
		human := j.Human != nil && *j.Human
		if j.Correct {
			correct++
		}
		round.Judgments = append(round.Judgments, Judgment{
			Guesser:       j.Nickname,
			Guess:         j.Guess,
			AutoAvailable: j.AutoAvailable,
			AutoCorrect:   j.AutoCorrect,
			AutoReason:    j.AutoReason,
			HumanDecision: human,
			Correct:       j.Correct,
			CreatedAt:     rec.ResolvedAt,
		})
	}
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&round).Error; err != nil {
			return err
		}
		roundID := round.ID
		return createEvent(tx, roomID, &roundID, "round_resolved", roundResolvedPayload{
			Round:        rec.Round,
			Turn:         rec.Turn,
			Keyword:      rec.Keyword,
			CorrectCount: correct,
			AIAvailable:  rec.AutoAvailable,
		}, rec.ResolvedAt)
	})
}

func (r *Recorder) RoomClosed(ctx context.Context, rec game.ClosedRecord) error {
	if r.db == nil {
		return nil
	}
	conn := r.db.WithContext(ctx)
	roomID, err := r.roomID(conn, rec.RoomID)
	if err != nil {
		return err
	}
	closedAt := rec.ClosedAt
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Room{}).Where("id = ?", roomID).Updates(map[string]any{
			"status":       RoomStatusClosed,
			"close_reason": rec.Reason,
			"closed_at":    &closedAt,
			"updated_at":   closedAt,
		}).Error; err != nil {
			return err
		}
		return createEvent(tx, roomID, nil, "room_closed", roomClosedPayload{
			Reason:      rec.Reason,
			FinalScores: rec.FinalScores,
		}, closedAt)
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.rooms, rec.RoomID)
	r.mu.Unlock()
	return nil
}

// roomID resolves a live room code to its row, falling back to the newest
// open row when this process did not record the creation.
func (r *Recorder) roomID(conn *gorm.DB, code string) (uint, error) {
	r.mu.Lock()
	id, ok := r.rooms[code]
	r.mu.Unlock()
	if ok {
		return id, nil
	}
	var room Room
	err := conn.Where("code = ? AND status = ?", code, RoomStatusOpen).Order("id desc").First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errors.New("room " + code + " has no history row")
	}
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.rooms[code] = room.ID
	r.mu.Unlock()
	return room.ID, nil
}

func createEvent(tx *gorm.DB, roomID uint, roundID *uint, eventType string, payload any, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&Event{
		RoomID:    roomID,
		RoundID:   roundID,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
		CreatedAt: at,
	}).Error
}
