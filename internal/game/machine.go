package game

import (
	"strings"
	"time"
)

// SubmitDrawing records the drawer's keyword and, when present, the drawing
// reference. The keyword may arrive first with the drawing following in a
// later call. Reports whether the drawing is now visible to guessers.
func (room *Room) SubmitDrawing(playerID, keyword, drawingRef string, now time.Time) (bool, error) {
	p := room.player(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	if room.Phase != PhaseLobby && room.Phase != PhaseDrawing {
		return false, phaseError(room.Phase, "submit a drawing")
	}
	if p.ID != room.DrawerID {
		return false, ErrNotDrawer
	}
	keyword = strings.TrimSpace(keyword)
	drawingRef = strings.TrimSpace(drawingRef)
	if keyword == "" && room.Keyword == "" {
		return false, invalidInput("keyword is required")
	}

	if keyword != "" {
		room.Keyword = keyword
	}
	if room.Phase == PhaseLobby {
		room.setPhase(PhaseDrawing, now)
	}
	if drawingRef == "" {
		return false, nil
	}
	room.DrawingRef = drawingRef
	room.setPhase(PhaseAwaitingGuesses, now)
	return true, nil
}

// SubmitGuess stores a guesser's answer, replacing any earlier one.
// Reports whether every guesser has now answered.
func (room *Room) SubmitGuess(playerID, text string) (bool, error) {
	p := room.player(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	if room.Phase != PhaseAwaitingGuesses {
		return false, phaseError(room.Phase, "guess")
	}
	if p.ID == room.DrawerID {
		return false, ErrDrawerCannotGuess
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false, invalidInput("guess is required")
	}
	room.Guesses[p.ID] = text
	return room.allGuessed(), nil
}

func (room *Room) allGuessed() bool {
	guessers := room.guessers()
	if len(guessers) == 0 {
		return false
	}
	for _, g := range guessers {
		if _, ok := room.Guesses[g.ID]; !ok {
			return false
		}
	}
	return true
}

// JudgeRequest is what the oracle is asked for one attempt.
type JudgeRequest struct {
	RoomID  string
	Attempt int
	Keyword string
	Guesses []string
}

// BeginJudging freezes the guesses in player order and enters AI_JUDGING.
func (room *Room) BeginJudging(now time.Time) JudgeRequest {
	room.JudgeAttempt++
	room.Judgments = room.Judgments[:0]
	room.judgeOrder = room.judgeOrder[:0]
	guesses := make([]string, 0, len(room.Guesses))
	for _, g := range room.guessers() {
		text, ok := room.Guesses[g.ID]
		if !ok {
			continue
		}
		room.Judgments = append(room.Judgments, Judgment{
			PlayerID: g.ID,
			Nickname: g.Nickname,
			Guess:    text,
		})
		room.judgeOrder = append(room.judgeOrder, g.ID)
		guesses = append(guesses, text)
	}
	room.AutoAvailable = false
	room.setPhase(PhaseAIJudging, now)
	return JudgeRequest{
		RoomID:  room.ID,
		Attempt: room.JudgeAttempt,
		Keyword: room.Keyword,
		Guesses: guesses,
	}
}

// JudgeOutcome is the result of one oracle attempt: verdicts aligned with
// the request's guesses, or Err.
type JudgeOutcome struct {
	Attempt  int
	Verdicts []Verdict
	Err      error
}

// ApplyJudgeOutcome moves AI_JUDGING to HUMAN_JUDGING, or straight to
// ROUND_END when no guess is left to judge. A failed outcome leaves
// automated verdicts unavailable. Outcomes for an abandoned attempt are
// ignored and reported as not applied.
func (room *Room) ApplyJudgeOutcome(outcome JudgeOutcome, now time.Time) bool {
	if room.Phase != PhaseAIJudging || outcome.Attempt != room.JudgeAttempt {
		return false
	}
	if len(room.Judgments) == 0 {
		room.abandonJudging(now)
		return true
	}
	if outcome.Err == nil && len(outcome.Verdicts) != len(room.judgeOrder) {
		outcome.Err = ErrOracleUnavailable
	}
	room.AutoAvailable = outcome.Err == nil
	if room.AutoAvailable {
		byPlayer := make(map[string]Verdict, len(room.judgeOrder))
		for i, playerID := range room.judgeOrder {
			byPlayer[playerID] = outcome.Verdicts[i]
		}
		for i := range room.Judgments {
			v := byPlayer[room.Judgments[i].PlayerID]
			room.Judgments[i].AutoAvailable = true
			room.Judgments[i].AutoCorrect = v.IsCorrect
			room.Judgments[i].AutoReason = v.Reason
		}
	}
	room.setPhase(PhaseHumanJudging, now)
	return true
}

// SubmitJudgments takes the drawer's final decision for every guesser and
// resolves the round.
func (room *Room) SubmitJudgments(playerID string, decisions map[string]bool, now time.Time) (RoundOutcome, error) {
	p := room.player(playerID)
	if p == nil {
		return RoundOutcome{}, ErrPlayerNotFound
	}
	if room.Phase != PhaseHumanJudging {
		return RoundOutcome{}, phaseError(room.Phase, "submit judgments")
	}
	if p.ID != room.DrawerID {
		return RoundOutcome{}, ErrNotDrawer
	}
	outcome, err := Aggregate(room.Judgments, decisions, room.DrawerID)
	if err != nil {
		return RoundOutcome{}, err
	}
	room.applyDeltas(outcome.Deltas)
	room.Judgments = outcome.Judgments
	room.Ready.Clear()
	room.setPhase(PhaseRoundEnd, now)
	return outcome, nil
}

// abandonJudging ends a judging round whose guessers have all gone. Nobody
// scores and any oracle call still in flight turns stale.
func (room *Room) abandonJudging(now time.Time) bool {
	if room.Phase != PhaseAIJudging && room.Phase != PhaseHumanJudging {
		return false
	}
	if len(room.Judgments) > 0 {
		return false
	}
	room.JudgeAttempt++
	room.Judgments = nil
	room.judgeOrder = nil
	room.Ready.Clear()
	room.setPhase(PhaseRoundEnd, now)
	return true
}

// MarkReady records a round-end acknowledgement. Reports whether the
// player was newly added and whether everyone is now ready.
func (room *Room) MarkReady(playerID string) (bool, bool, error) {
	if room.player(playerID) == nil {
		return false, false, ErrPlayerNotFound
	}
	if room.Phase != PhaseRoundEnd {
		return false, false, phaseError(room.Phase, "signal ready")
	}
	added := room.Ready.Add(playerID)
	return added, room.allReady(), nil
}

func (room *Room) allReady() bool {
	if len(room.Players) == 0 {
		return false
	}
	for _, p := range room.Players {
		if !room.Ready.Has(p.ID) {
			return false
		}
	}
	return true
}
