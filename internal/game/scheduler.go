package game

import "time"

type AdvanceResult struct {
	GameOver       bool
	RoundAdvanced  bool
	PreviousDrawer *Player
	NewDrawer      *Player
}

// Advance runs once every player acknowledged the end of a turn. A full
// pass of the drawer role through the room bumps CurrentRound; exceeding
// TotalRounds ends the game.
func (room *Room) Advance(now time.Time) AdvanceResult {
	result := AdvanceResult{PreviousDrawer: room.drawer()}

	room.DrawnThisCycle++
	if room.DrawnThisCycle >= len(room.Players) {
		room.CurrentRound++
		room.DrawnThisCycle = 0
		result.RoundAdvanced = true
	}
	if room.CurrentRound > room.TotalRounds {
		room.setPhase(PhaseGameOver, now)
		room.Ready.Clear()
		result.GameOver = true
		return result
	}

	next := room.nextDrawer()
	for _, p := range room.Players {
		p.Role = RoleGuesser
	}
	if next != nil {
		next.Role = RoleDrawer
		room.DrawerID = next.ID
	}
	result.NewDrawer = next
	room.keepDrawer = false
	room.resetRoundFields()
	room.Turn++
	room.setPhase(PhaseDrawing, now)
	return result
}

func (room *Room) nextDrawer() *Player {
	if len(room.Players) == 0 {
		return nil
	}
	index := room.playerIndex(room.DrawerID)
	if index < 0 {
		return room.Players[0]
	}
	if room.keepDrawer {
		return room.Players[index]
	}
	return room.Players[(index+1)%len(room.Players)]
}
