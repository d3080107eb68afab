package game

// Verdict is the oracle's opinion on one guess.
type Verdict struct {
	IsCorrect bool
	Reason    string
}

// Judgment tracks one guesser's guess through automated and human review.
type Judgment struct {
	PlayerID      string
	Nickname      string
	Guess         string
	AutoAvailable bool
	AutoCorrect   bool
	AutoReason    string
	Human         *bool
	// Agreed is set when the human decision matched an available
	// automated verdict.
	Agreed  bool
	Correct bool
}

// Delta is the change applied to one player's counters by a round.
type Delta struct {
	PlayerID                 string
	Score                    int
	CorrectGuesses           int
	DrawingsGuessedCorrectly int
}

type RoundOutcome struct {
	Judgments    []Judgment
	Deltas       []Delta
	CorrectCount int
}

// Aggregate merges automated verdicts with the drawer's decisions.
//
// With an automated verdict present, a guess counts as correct only when
// the human decision agrees with it and both say correct. Without one
// (oracle unavailable) the human decision stands alone.
//
// Each counted-correct guess earns its guesser one point and one correct
// guess, and earns the drawer one point and one drawing guessed correctly.
func Aggregate(judgments []Judgment, decisions map[string]bool, drawerID string) (RoundOutcome, error) {
	known := make(map[string]struct{}, len(judgments))
	for _, j := range judgments {
		if _, ok := decisions[j.PlayerID]; !ok {
			return RoundOutcome{}, ErrIncompleteJudgments
		}
		known[j.PlayerID] = struct{}{}
	}
	for playerID := range decisions {
		if _, ok := known[playerID]; !ok {
			return RoundOutcome{}, invalidInput("no guess to judge for player %s", playerID)
		}
	}

	out := RoundOutcome{Judgments: make([]Judgment, 0, len(judgments))}
	drawerDelta := Delta{PlayerID: drawerID}
	for _, j := range judgments {
		human := decisions[j.PlayerID]
		j.Human = &human
		if j.AutoAvailable {
			j.Agreed = human == j.AutoCorrect
			j.Correct = j.Agreed && human
		} else {
			j.Agreed = false
			j.Correct = human
		}
		out.Judgments = append(out.Judgments, j)
		if !j.Correct {
			continue
		}
		out.CorrectCount++
		out.Deltas = append(out.Deltas, Delta{PlayerID: j.PlayerID, Score: 1, CorrectGuesses: 1})
		drawerDelta.Score++
		drawerDelta.DrawingsGuessedCorrectly++
	}
	if drawerDelta.Score > 0 && drawerID != "" {
		out.Deltas = append(out.Deltas, drawerDelta)
	}
	return out, nil
}

func (room *Room) applyDeltas(deltas []Delta) {
	for _, d := range deltas {
		p := room.player(d.PlayerID)
		if p == nil {
			continue
		}
		p.Score += d.Score
		p.CorrectGuesses += d.CorrectGuesses
		p.DrawingsGuessedCorrectly += d.DrawingsGuessedCorrectly
	}
}
