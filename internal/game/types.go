package game

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseLobby           Phase = "LOBBY"
	PhaseDrawing         Phase = "DRAWING"
	PhaseAwaitingGuesses Phase = "AWAITING_GUESSES"
	PhaseAIJudging       Phase = "AI_JUDGING"
	PhaseHumanJudging    Phase = "HUMAN_JUDGING"
	PhaseRoundEnd        Phase = "ROUND_END"
	PhaseGameOver        Phase = "GAME_OVER"
)

// Active reports whether a round is in progress, i.e. exactly one drawer
// must exist.
func (p Phase) Active() bool {
	return p != PhaseLobby && p != PhaseGameOver
}

type Role string

const (
	RoleDrawer  Role = "drawer"
	RoleGuesser Role = "guesser"
)

const (
	MinMaxPlayers  = 2
	MaxMaxPlayers  = 12
	MaxTotalRounds = 10
)

type Settings struct {
	Password    string
	MaxPlayers  int
	TotalRounds int
}

// Player is a durable identity inside one room. The live connection is held
// by Connections, never here.
type Player struct {
	ID                       string
	Nickname                 string
	Role                     Role
	Score                    int
	CorrectGuesses           int
	DrawingsGuessedCorrectly int
	Connected                bool
	JoinedAt                 time.Time
}

// Room is mutated only through Registry.Update, which holds mu.
type Room struct {
	mu     sync.Mutex
	closed bool

	ID             string
	Password       string
	MaxPlayers     int
	TotalRounds    int
	CurrentRound   int
	Turn           int
	Players        []*Player
	DrawerID       string
	Keyword        string
	DrawingRef     string
	Guesses        map[string]string
	Judgments      []Judgment
	AutoAvailable  bool
	Ready          ReadySet
	DrawnThisCycle int
	Phase          Phase
	PhaseStartedAt time.Time
	CreatedAt      time.Time

	// JudgeAttempt identifies the in-flight oracle call; outcomes carrying
	// an older attempt are dropped.
	JudgeAttempt int
	judgeOrder   []string
	// keepDrawer is set when the drawer left during ROUND_END and their
	// follower was promoted; the promoted player draws the next turn.
	keepDrawer bool
}

func newRoom(id string, settings Settings, now time.Time) *Room {
	return &Room{
		ID:             id,
		Password:       settings.Password,
		MaxPlayers:     settings.MaxPlayers,
		TotalRounds:    settings.TotalRounds,
		CurrentRound:   1,
		Turn:           1,
		Guesses:        make(map[string]string),
		Phase:          PhaseLobby,
		PhaseStartedAt: now,
		CreatedAt:      now,
	}
}

func (room *Room) player(id string) *Player {
	for _, p := range room.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (room *Room) playerIndex(id string) int {
	for i, p := range room.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (room *Room) playerByNickname(nickname string) *Player {
	for _, p := range room.Players {
		if p.Nickname == nickname {
			return p
		}
	}
	return nil
}

func (room *Room) drawer() *Player {
	return room.player(room.DrawerID)
}

func (room *Room) guessers() []*Player {
	out := make([]*Player, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ID != room.DrawerID {
			out = append(out, p)
		}
	}
	return out
}

func (room *Room) setPhase(phase Phase, at time.Time) {
	room.Phase = phase
	room.PhaseStartedAt = at
}
