package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitDrawingGuards(t *testing.T) {
	room := roomWith(t, "Ada", "Bob")
	now := time.Now()

	_, err := room.SubmitDrawing("p2", "cat", "ref", now)
	require.ErrorIs(t, err, ErrNotDrawer)

	_, err = room.SubmitDrawing("p1", "", "ref", now)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = room.SubmitDrawing("ghost", "cat", "ref", now)
	require.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Equal(t, PhaseLobby, room.Phase)
}

func TestSubmitDrawingKeywordThenDrawing(t *testing.T) {
	room := roomWith(t, "Ada", "Bob")

	shown, err := room.SubmitDrawing("p1", "cat", "", time.Now())
	require.NoError(t, err)
	assert.False(t, shown)
	assert.Equal(t, PhaseDrawing, room.Phase)
	assert.Equal(t, "cat", room.Keyword)

	shown, err = room.SubmitDrawing("p1", "", "ref", time.Now())
	require.NoError(t, err)
	assert.True(t, shown)
	assert.Equal(t, PhaseAwaitingGuesses, room.Phase)
	assert.Equal(t, "cat", room.Keyword)
	assert.Equal(t, "ref", room.DrawingRef)

	_, err = room.SubmitDrawing("p1", "dog", "ref2", time.Now())
	require.ErrorIs(t, err, ErrInvalidPhaseTransition)
}

func TestSubmitGuessRules(t *testing.T) {
	room := roomWith(t, "Ada", "Bob", "Cy")

	_, err := room.SubmitGuess("p2", "cat")
	require.ErrorIs(t, err, ErrInvalidPhaseTransition)

	_, err = room.SubmitDrawing("p1", "cat", "ref", time.Now())
	require.NoError(t, err)

	_, err = room.SubmitGuess("p1", "cat")
	require.ErrorIs(t, err, ErrDrawerCannotGuess)

	_, err = room.SubmitGuess("p2", "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	done, err := room.SubmitGuess("p2", "cow")
	require.NoError(t, err)
	assert.False(t, done)

	done, err = room.SubmitGuess("p2", "cat")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "cat", room.Guesses["p2"], "later guess replaces earlier")

	done, err = room.SubmitGuess("p3", "dog")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestJudgeOutcomeAlignsByPosition(t *testing.T) {
	room := awaitingJudgment(t)
	req := room.BeginJudging(time.Now())
	assert.Equal(t, PhaseAIJudging, room.Phase)
	assert.Equal(t, "cat", req.Keyword)
	assert.Equal(t, []string{"cat", "dog"}, req.Guesses)

	applied := room.ApplyJudgeOutcome(JudgeOutcome{
		Attempt:  req.Attempt,
		Verdicts: []Verdict{{IsCorrect: true, Reason: "exact"}, {IsCorrect: false, Reason: "different animal"}},
	}, time.Now())
	require.True(t, applied)
	assert.Equal(t, PhaseHumanJudging, room.Phase)
	assert.True(t, room.AutoAvailable)
	require.Len(t, room.Judgments, 2)
	assert.Equal(t, "p2", room.Judgments[0].PlayerID)
	assert.True(t, room.Judgments[0].AutoCorrect)
	assert.Equal(t, "exact", room.Judgments[0].AutoReason)
	assert.False(t, room.Judgments[1].AutoCorrect)
}

func TestJudgeOutcomeCountMismatchFallsBack(t *testing.T) {
	room := awaitingJudgment(t)
	req := room.BeginJudging(time.Now())

	applied := room.ApplyJudgeOutcome(JudgeOutcome{Attempt: req.Attempt, Verdicts: []Verdict{{IsCorrect: true}}}, time.Now())
	require.True(t, applied)
	assert.Equal(t, PhaseHumanJudging, room.Phase)
	assert.False(t, room.AutoAvailable)
	for _, j := range room.Judgments {
		assert.False(t, j.AutoAvailable)
	}
}

func TestJudgeOutcomeStaleAttemptIgnored(t *testing.T) {
	room := awaitingJudgment(t)
	req := room.BeginJudging(time.Now())

	applied := room.ApplyJudgeOutcome(JudgeOutcome{Attempt: req.Attempt - 1, Err: errors.New("late")}, time.Now())
	assert.False(t, applied)
	assert.Equal(t, PhaseAIJudging, room.Phase)
}

func TestJudgeOutcomeWithNothingLeftToJudge(t *testing.T) {
	room := awaitingJudgment(t)
	req := room.BeginJudging(time.Now())
	room.Judgments = nil

	require.True(t, room.ApplyJudgeOutcome(JudgeOutcome{Attempt: req.Attempt, Verdicts: []Verdict{{}, {}}}, time.Now()))
	assert.Equal(t, PhaseRoundEnd, room.Phase)
	assert.Greater(t, room.JudgeAttempt, req.Attempt)
}

func TestSubmitJudgmentsResolvesRound(t *testing.T) {
	room := awaitingJudgment(t)
	req := room.BeginJudging(time.Now())
	room.ApplyJudgeOutcome(JudgeOutcome{Attempt: req.Attempt, Verdicts: []Verdict{{IsCorrect: true}, {IsCorrect: false}}}, time.Now())

	_, err := room.SubmitJudgments("p2", map[string]bool{"p2": true, "p3": false}, time.Now())
	require.ErrorIs(t, err, ErrNotDrawer)

	_, err = room.SubmitJudgments("p1", map[string]bool{"p2": true}, time.Now())
	require.ErrorIs(t, err, ErrIncompleteJudgments)
	assert.Equal(t, PhaseHumanJudging, room.Phase)

	outcome, err := room.SubmitJudgments("p1", map[string]bool{"p2": true, "p3": false}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.CorrectCount)
	assert.Equal(t, PhaseRoundEnd, room.Phase)
	assert.Equal(t, 1, room.Players[0].Score)
	assert.Equal(t, 1, room.Players[0].DrawingsGuessedCorrectly)
	assert.Equal(t, 1, room.Players[1].Score)
	assert.Equal(t, 1, room.Players[1].CorrectGuesses)
	assert.Zero(t, room.Players[2].Score)
	assert.Zero(t, room.Players[2].CorrectGuesses)
}

func TestMarkReadyOnlyAtRoundEnd(t *testing.T) {
	room := roomWith(t, "Ada", "Bob")
	_, _, err := room.MarkReady("p1")
	require.ErrorIs(t, err, ErrInvalidPhaseTransition)

	room.Phase = PhaseRoundEnd
	added, all, err := room.MarkReady("p1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.False(t, all)

	added, all, err = room.MarkReady("p1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, all)

	_, all, err = room.MarkReady("p2")
	require.NoError(t, err)
	assert.True(t, all)
}

func TestAdvanceRotatesAndCountsCycles(t *testing.T) {
	room := roomWith(t, "Ada", "Bob", "Cy")
	room.TotalRounds = 2
	now := time.Now()

	wantDrawers := []string{"p2", "p3", "p1", "p2", "p3"}
	wantRounds := []int{1, 1, 2, 2, 2}
	for i, want := range wantDrawers {
		room.Phase = PhaseRoundEnd
		result := room.Advance(now)
		require.False(t, result.GameOver, "turn %d", i+2)
		assert.Equal(t, want, room.DrawerID, "turn %d", i+2)
		assert.Equal(t, wantRounds[i], room.CurrentRound, "turn %d", i+2)
		assert.Equal(t, i+2, room.Turn)
		assert.Equal(t, PhaseDrawing, room.Phase)
		assertOneDrawer(t, room)
	}

	room.Phase = PhaseRoundEnd
	result := room.Advance(now)
	assert.True(t, result.GameOver)
	assert.True(t, result.RoundAdvanced)
	assert.Equal(t, PhaseGameOver, room.Phase)
}

func TestAdvanceClearsRoundState(t *testing.T) {
	room := awaitingJudgment(t)
	room.Phase = PhaseRoundEnd
	room.Ready.Add("p1")

	room.Advance(time.Now())
	assert.Empty(t, room.Keyword)
	assert.Empty(t, room.DrawingRef)
	assert.Empty(t, room.Guesses)
	assert.Empty(t, room.Judgments)
	assert.Zero(t, room.Ready.Len())
}

func TestFinalScoresStableOrder(t *testing.T) {
	room := roomWith(t, "Ada", "Bob", "Cy")
	room.Players[0].Score = 1
	room.Players[1].Score = 3
	room.Players[2].Score = 1

	scores := room.finalScores()
	require.Len(t, scores, 3)
	assert.Equal(t, "Bob", scores[0].Nickname)
	assert.Equal(t, "Ada", scores[1].Nickname)
	assert.Equal(t, "Cy", scores[2].Nickname)
}

func TestSnapshotHidesKeywordFromGuessers(t *testing.T) {
	room := awaitingJudgment(t)

	drawer := room.Snapshot("p1")
	assert.Equal(t, "cat", drawer.Keyword)

	guesser := room.Snapshot("p2")
	assert.Empty(t, guesser.Keyword)
	assert.Equal(t, "cat", guesser.MyGuess)
	assert.Equal(t, "ref", guesser.DrawingRef)

	anonymous := room.Snapshot("")
	assert.Empty(t, anonymous.Keyword)

	room.Phase = PhaseRoundEnd
	assert.Equal(t, "cat", room.Snapshot("p2").Keyword)
}

// awaitingJudgment returns Ada drawing "cat" with Bob guessing "cat" and Cy
// guessing "dog".
func awaitingJudgment(t *testing.T) *Room {
	t.Helper()
	room := roomWith(t, "Ada", "Bob", "Cy")
	_, err := room.SubmitDrawing("p1", "cat", "ref", time.Now())
	require.NoError(t, err)
	_, err = room.SubmitGuess("p2", "cat")
	require.NoError(t, err)
	done, err := room.SubmitGuess("p3", "dog")
	require.NoError(t, err)
	require.True(t, done)
	return room
}
