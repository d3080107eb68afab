package game

// Server-originated event kinds.
const (
	EventRoomCreated      = "room_created"
	EventRoomJoined       = "room_joined"
	EventRoomState        = "room_state"
	EventError            = "error"
	EventPlayerJoined     = "player_joined"
	EventPlayerLeft       = "player_left"
	EventPlayerPresence   = "player_presence"
	EventNewDrawing       = "new_drawing"
	EventAllGuessed       = "all_guessed"
	EventAIJudgments      = "ai_judgments"
	EventAIJudgmentFailed = "ai_judgment_failed"
	EventReadyUpdate      = "ready_update"
	EventRoundEnd         = "round_end"
	EventRoundStart       = "round_start"
	EventGameOver         = "game_over"
)

type RoomCreated struct {
	Event    string   `json:"event"`
	RoomID   string   `json:"roomId"`
	PlayerID string   `json:"playerId"`
	Room     Snapshot `json:"room"`
}

type RoomJoined struct {
	Event    string   `json:"event"`
	RoomID   string   `json:"roomId"`
	PlayerID string   `json:"playerId"`
	Rejoined bool     `json:"rejoined"`
	Room     Snapshot `json:"room"`
}

type RoomState struct {
	Event string   `json:"event"`
	Room  Snapshot `json:"room"`
}

type ErrorMessage struct {
	Event   string `json:"event"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message"`
}

func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{Event: EventError, Code: CodeOf(err), Message: err.Error()}
}

type PlayerJoined struct {
	Event    string       `json:"event"`
	RoomID   string       `json:"roomId"`
	PlayerID string       `json:"playerId"`
	Nickname string       `json:"nickname"`
	Rejoined bool         `json:"rejoined"`
	Players  []PlayerView `json:"players"`
}

type PlayerLeft struct {
	Event      string       `json:"event"`
	RoomID     string       `json:"roomId"`
	PlayerID   string       `json:"playerId"`
	Nickname   string       `json:"nickname"`
	DrawerLeft bool         `json:"drawerLeft"`
	DrawerID   string       `json:"drawerId"`
	RoundReset bool         `json:"roundReset"`
	Phase      Phase        `json:"phase"`
	Players    []PlayerView `json:"players"`
}

// PlayerPresence reports a connection drop or return for a member who
// keeps their seat.
type PlayerPresence struct {
	Event     string       `json:"event"`
	RoomID    string       `json:"roomId"`
	PlayerID  string       `json:"playerId"`
	Connected bool         `json:"connected"`
	Players   []PlayerView `json:"players"`
}

type NewDrawing struct {
	Event      string `json:"event"`
	RoomID     string `json:"roomId"`
	DrawerID   string `json:"drawerId"`
	DrawingRef string `json:"drawingRef"`
}

type GuessView struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Guess    string `json:"guess"`
}

type AllGuessed struct {
	Event   string      `json:"event"`
	RoomID  string      `json:"roomId"`
	Guesses []GuessView `json:"guesses"`
}

// AIJudgments carries full detail to the drawer only; guessers receive it
// with Pending set and no verdicts.
type AIJudgments struct {
	Event     string         `json:"event"`
	RoomID    string         `json:"roomId"`
	Keyword   string         `json:"keyword,omitempty"`
	Judgments []JudgmentView `json:"judgments,omitempty"`
	Pending   bool           `json:"pending,omitempty"`
}

type AIJudgmentFailed struct {
	Event   string      `json:"event"`
	RoomID  string      `json:"roomId"`
	Error   string      `json:"error"`
	Guesses []GuessView `json:"guesses"`
}

type ReadyUpdate struct {
	Event      string       `json:"event"`
	RoomID     string       `json:"roomId"`
	PlayerID   string       `json:"playerId"`
	ReadyCount int          `json:"readyCount"`
	Players    []PlayerView `json:"players"`
}

type DeltaView struct {
	PlayerID                 string `json:"playerId"`
	Score                    int    `json:"score"`
	CorrectGuesses           int    `json:"correctGuesses"`
	DrawingsGuessedCorrectly int    `json:"drawingsGuessedCorrectly"`
}

// RoundEnd is personalized: the drawer sees every judgment, a guesser sees
// only their own. Everyone gets the keyword, deltas and the score table.
type RoundEnd struct {
	Event        string         `json:"event"`
	RoomID       string         `json:"roomId"`
	Keyword      string         `json:"keyword"`
	CurrentRound int            `json:"currentRound"`
	TotalRounds  int            `json:"totalRounds"`
	Turn         int            `json:"turn"`
	Judgments    []JudgmentView `json:"judgments"`
	Deltas       []DeltaView    `json:"deltas"`
	Players      []PlayerView   `json:"players"`
}

type RoundStart struct {
	Event          string       `json:"event"`
	RoomID         string       `json:"roomId"`
	CurrentRound   int          `json:"currentRound"`
	TotalRounds    int          `json:"totalRounds"`
	Turn           int          `json:"turn"`
	DrawerID       string       `json:"drawerId"`
	DrawerNickname string       `json:"drawerNickname"`
	Players        []PlayerView `json:"players"`
}

type GameOver struct {
	Event       string       `json:"event"`
	RoomID      string       `json:"roomId"`
	FinalScores []FinalScore `json:"finalScores"`
	Players     []PlayerView `json:"players"`
}

func guessViews(judgments []Judgment) []GuessView {
	views := make([]GuessView, 0, len(judgments))
	for _, j := range judgments {
		views = append(views, GuessView{PlayerID: j.PlayerID, Nickname: j.Nickname, Guess: j.Guess})
	}
	return views
}

func deltaViews(deltas []Delta) []DeltaView {
	views := make([]DeltaView, 0, len(deltas))
	for _, d := range deltas {
		views = append(views, DeltaView{
			PlayerID:                 d.PlayerID,
			Score:                    d.Score,
			CorrectGuesses:           d.CorrectGuesses,
			DrawingsGuessedCorrectly: d.DrawingsGuessedCorrectly,
		})
	}
	return views
}
