package services

import (
	"time"

	"go.uber.org/zap"
)

// Housekeeper periodically reclaims idle sessions and force-settles stale
// rounds. It runs as its own goroutine, independent of client traffic.
type Housekeeper struct {
	sessions *SessionStore
	engine   *RoundEngine

	interval   time.Duration
	staleRound time.Duration

	logger *zap.Logger
	stop   chan struct{}
	done   chan struct{}
}

func NewHousekeeper(sessions *SessionStore, engine *RoundEngine, interval, staleRound time.Duration, logger *zap.Logger) *Housekeeper {
	return &Housekeeper{
		sessions:   sessions,
		engine:     engine,
		interval:   interval,
		staleRound: staleRound,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (h *Housekeeper) Start() {
	go h.run()
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (h *Housekeeper) Stop() {
	close(h.stop)
	<-h.done
}

func (h *Housekeeper) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-h.stop:
			return
		}
	}
}

// Sweep runs one housekeeping pass. Exposed for tests and shutdown.
func (h *Housekeeper) Sweep() {
	expired := h.sessions.SweepExpired()
	settled := h.engine.SweepStaleRounds(h.staleRound)

	if expired > 0 || settled > 0 {
		h.logger.Info("housekeeping sweep",
			zap.Int("sessions_expired", expired),
			zap.Int("rounds_settled", settled),
		)
	}
}
