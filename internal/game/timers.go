package game

import (
	"time"

	"go.uber.org/zap"
)

func (s *Service) scheduleGrace(binding Binding) {
	s.timersMu.Lock()
	if existing, ok := s.timers[binding]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.grace, func() {
		s.expireGrace(binding, timer)
	})
	s.timers[binding] = timer
	s.timersMu.Unlock()
}

func (s *Service) cancelGrace(binding Binding) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[binding]; ok {
		timer.Stop()
		delete(s.timers, binding)
	}
}

// expireGrace removes a player whose connection never came back. A player
// who reconnected in the meantime is left alone.
func (s *Service) expireGrace(binding Binding, timer *time.Timer) {
	s.timersMu.Lock()
	if s.timers[binding] != timer {
		s.timersMu.Unlock()
		return
	}
	delete(s.timers, binding)
	s.timersMu.Unlock()

	var history departure
	err := s.registry.Update(binding.RoomID, func(room *Room) error {
		player := room.player(binding.PlayerID)
		if player == nil || player.Connected {
			return nil
		}
		var err error
		history, err = s.removeLocked(room, binding.PlayerID)
		return err
	})
	if err != nil {
		s.logger.Debug("grace expired after room closed",
			zap.String("room_id", binding.RoomID),
			zap.String("player_id", binding.PlayerID),
			zap.Error(err),
		)
		return
	}
	s.recordDeparture(history)
}
