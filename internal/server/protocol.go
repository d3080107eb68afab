package server

import (
	"strings"

	"draw-guess/internal/game"
)

// Client-originated event kinds.
const (
	eventCreateRoom      = "create_room"
	eventJoinRoom        = "join_room"
	eventLeaveRoom       = "leave_room"
	eventSubmitDrawing   = "submit_drawing"
	eventSubmitGuess     = "submit_guess"
	eventSubmitJudgments = "submit_judgments"
	eventPlayerReady     = "player_ready"
)

type envelope struct {
	Event string `json:"event"`
}

type createRoomRequest struct {
	Password    string `json:"password" binding:"required,password"`
	MaxPlayers  int    `json:"maxPlayers" binding:"required,min=2,max=12"`
	TotalRounds int    `json:"totalRounds" binding:"required,min=1,max=10"`
	Nickname    string `json:"nickname" binding:"required,nickname"`
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId" binding:"required,alphanum,max=16"`
	Password string `json:"password" binding:"required,password"`
	Nickname string `json:"nickname" binding:"required,nickname"`
	PlayerID string `json:"playerId" binding:"omitempty,uuid"`
}

// playerRequest addresses an action at a seat the connection already holds.
type playerRequest struct {
	RoomID   string `json:"roomId" binding:"required,alphanum,max=16"`
	PlayerID string `json:"playerId" binding:"required,uuid"`
}

type submitDrawingRequest struct {
	playerRequest
	Keyword    string `json:"keyword" binding:"required,keyword"`
	DrawingRef string `json:"drawingRef" binding:"omitempty,max=2048"`
	ImageData  string `json:"imageData"`
}

type submitGuessRequest struct {
	playerRequest
	Guess string `json:"guess" binding:"required,guess"`
}

type judgmentDecision struct {
	PlayerID  string `json:"playerId" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type submitJudgmentsRequest struct {
	playerRequest
	Judgments []judgmentDecision `json:"judgments" binding:"required,min=1,dive"`
}

func normalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (r createRoomRequest) settings() game.Settings {
	return game.Settings{
		Password:    r.Password,
		MaxPlayers:  r.MaxPlayers,
		TotalRounds: r.TotalRounds,
	}
}

// decisions folds the wire list into the per-guesser map. A repeated
// playerId keeps its last value.
func (r submitJudgmentsRequest) decisions() map[string]bool {
	out := make(map[string]bool, len(r.Judgments))
	for _, j := range r.Judgments {
		out[j.PlayerID] = j.IsCorrect
	}
	return out
}

func unknownEvent(kind string) error {
	if kind == "" {
		return &game.Error{Code: game.CodeInvalidInput, Msg: "message has no event"}
	}
	return &game.Error{Code: game.CodeInvalidInput, Msg: "unknown event " + kind}
}
