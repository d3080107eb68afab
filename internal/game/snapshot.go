package game

import "sort"

type PlayerView struct {
	ID                       string `json:"id"`
	Nickname                 string `json:"nickname"`
	Role                     Role   `json:"role"`
	Score                    int    `json:"score"`
	CorrectGuesses           int    `json:"correctGuesses"`
	DrawingsGuessedCorrectly int    `json:"drawingsGuessedCorrectly"`
	Connected                bool   `json:"connected"`
	Ready                    bool   `json:"ready"`
	HasGuessed               bool   `json:"hasGuessed"`
}

type JudgmentView struct {
	PlayerID      string `json:"playerId"`
	Nickname      string `json:"nickname"`
	Guess         string `json:"guess"`
	AIAvailable   bool   `json:"aiAvailable"`
	AICorrect     bool   `json:"aiCorrect,omitempty"`
	AIReason      string `json:"aiReason,omitempty"`
	HumanDecision *bool  `json:"humanDecision,omitempty"`
	Agreed        bool   `json:"agreed,omitempty"`
	IsCorrect     bool   `json:"isCorrect"`
}

// Snapshot is a viewer-specific picture of a room used to resynchronise a
// client. The keyword is withheld from guessers until the round resolves.
type Snapshot struct {
	RoomID       string         `json:"roomId"`
	Phase        Phase          `json:"phase"`
	CurrentRound int            `json:"currentRound"`
	TotalRounds  int            `json:"totalRounds"`
	Turn         int            `json:"turn"`
	MaxPlayers   int            `json:"maxPlayers"`
	DrawerID     string         `json:"drawerId"`
	DrawingRef   string         `json:"drawingRef,omitempty"`
	Keyword      string         `json:"keyword,omitempty"`
	Players      []PlayerView   `json:"players"`
	MyGuess      string         `json:"myGuess,omitempty"`
	AIAvailable  bool           `json:"aiAvailable"`
	Judgments    []JudgmentView `json:"judgments,omitempty"`
	ReadyCount   int            `json:"readyCount"`
	PlayerID     string         `json:"playerId,omitempty"`
	PhaseStarted int64          `json:"phaseStartedAt"`
}

func (room *Room) Snapshot(viewerID string) Snapshot {
	snap := Snapshot{
		RoomID:       room.ID,
		Phase:        room.Phase,
		CurrentRound: room.CurrentRound,
		TotalRounds:  room.TotalRounds,
		Turn:         room.Turn,
		MaxPlayers:   room.MaxPlayers,
		DrawerID:     room.DrawerID,
		DrawingRef:   room.DrawingRef,
		Players:      room.playerViews(),
		AIAvailable:  room.AutoAvailable,
		ReadyCount:   room.Ready.Len(),
		PhaseStarted: room.PhaseStartedAt.UnixMilli(),
	}
	viewer := room.player(viewerID)
	if viewer == nil {
		if room.keywordRevealed() {
			snap.Keyword = room.Keyword
			snap.Judgments = judgmentViews(room.Judgments)
		}
		return snap
	}
	snap.PlayerID = viewer.ID
	isDrawer := viewer.ID == room.DrawerID
	if isDrawer || room.keywordRevealed() {
		snap.Keyword = room.Keyword
	}
	snap.MyGuess = room.Guesses[viewer.ID]
	switch {
	case isDrawer && (room.Phase == PhaseHumanJudging || room.Phase == PhaseRoundEnd):
		snap.Judgments = judgmentViews(room.Judgments)
	case room.Phase == PhaseRoundEnd:
		snap.Judgments = judgmentViews(ownJudgment(room.Judgments, viewer.ID))
	}
	return snap
}

func (room *Room) keywordRevealed() bool {
	return room.Phase == PhaseRoundEnd || room.Phase == PhaseGameOver
}

func (room *Room) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(room.Players))
	for _, p := range room.Players {
		_, guessed := room.Guesses[p.ID]
		views = append(views, PlayerView{
			ID:                       p.ID,
			Nickname:                 p.Nickname,
			Role:                     p.Role,
			Score:                    p.Score,
			CorrectGuesses:           p.CorrectGuesses,
			DrawingsGuessedCorrectly: p.DrawingsGuessedCorrectly,
			Connected:                p.Connected,
			Ready:                    room.Ready.Has(p.ID),
			HasGuessed:               guessed,
		})
	}
	return views
}

func judgmentViews(judgments []Judgment) []JudgmentView {
	if len(judgments) == 0 {
		return nil
	}
	views := make([]JudgmentView, 0, len(judgments))
	for _, j := range judgments {
		views = append(views, JudgmentView{
			PlayerID:      j.PlayerID,
			Nickname:      j.Nickname,
			Guess:         j.Guess,
			AIAvailable:   j.AutoAvailable,
			AICorrect:     j.AutoCorrect,
			AIReason:      j.AutoReason,
			HumanDecision: j.Human,
			Agreed:        j.Agreed,
			IsCorrect:     j.Correct,
		})
	}
	return views
}

func ownJudgment(judgments []Judgment, playerID string) []Judgment {
	for _, j := range judgments {
		if j.PlayerID == playerID {
			return []Judgment{j}
		}
	}
	return nil
}

type FinalScore struct {
	PlayerID                 string `json:"playerId"`
	Nickname                 string `json:"nickname"`
	Score                    int    `json:"score"`
	CorrectGuesses           int    `json:"correctGuesses"`
	DrawingsGuessedCorrectly int    `json:"drawingsGuessedCorrectly"`
}

// finalScores orders by score, keeping join order among ties.
func (room *Room) finalScores() []FinalScore {
	scores := make([]FinalScore, 0, len(room.Players))
	for _, p := range room.Players {
		scores = append(scores, FinalScore{
			PlayerID:                 p.ID,
			Nickname:                 p.Nickname,
			Score:                    p.Score,
			CorrectGuesses:           p.CorrectGuesses,
			DrawingsGuessedCorrectly: p.DrawingsGuessedCorrectly,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}
