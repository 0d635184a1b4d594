package app

import "time"

// SetCodeSource replaces the random code generator.
func (s *SessionService) SetCodeSource(f func(n int) (string, error)) {
	s.newCode = f
}

// SetClock pins the evaluator clock.
func (e *AnswerEvaluator) SetClock(now func() time.Time) {
	e.now = now
}
