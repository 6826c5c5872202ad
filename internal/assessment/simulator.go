package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightmind-health/chartwatch/internal/events"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

type outboundCreator interface {
	CreateOutbound(ctx context.Context, patientName, kind string, rawData any) (uuid.UUID, error)
}

// Simulator stands in for the assessment service in development. Each intake
// is accepted immediately, and a scored result event arrives a fixed delay
// later, the way the real service behaves.
type Simulator struct {
	store  outboundCreator
	logger *logging.Logger
	delay  time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
}

func NewSimulator(store outboundCreator, logger *logging.Logger) *Simulator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Simulator{
		store:  store,
		logger: logger,
		delay:  30 * time.Second,
		done:   make(chan struct{}),
	}
}

func (s *Simulator) WithDelay(d time.Duration) *Simulator {
	if d > 0 {
		s.delay = d
	}
	return s
}

// SubmitIntake accepts the payload and schedules a simulated result.
func (s *Simulator) SubmitIntake(ctx context.Context, patientName string, payload map[string]any) (json.RawMessage, error) {
	requestID := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("assessment: simulator closed")
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-s.done:
			return
		case <-timer.C:
		}
		result := simulatedResult(requestID)
		id, err := s.store.CreateOutbound(context.Background(), patientName, events.KindAssessmentResult, result)
		if err != nil {
			s.logger.Error("simulated result write failed", "patient", patientName, "error", err)
			return
		}
		s.logger.Info("simulated result delivered", "patient", patientName, "event_id", id)
	}()

	resp, _ := json.Marshal(map[string]string{
		"status":     "accepted",
		"request_id": requestID,
	})
	s.logger.Info("simulated intake accepted", "patient", patientName, "request_id", requestID)
	return resp, nil
}

// Close stops pending deliveries and waits for in-flight goroutines.
func (s *Simulator) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func simulatedResult(requestID string) map[string]any {
	return map[string]any{
		"request_id":   requestID,
		"completed_at": time.Now().Format(time.RFC3339),
		"scores": map[string]int{
			"phq9": rand.Intn(28),
			"gad7": rand.Intn(22),
		},
		"risk_level": []string{"low", "moderate", "high"}[rand.Intn(3)],
	}
}
