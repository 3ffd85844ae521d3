package strategy

import "context"

// immediate requires no coordination: every question answers yes.
type immediate struct{}

func (s *immediate) Name() string {
	return "immediate"
}

func (s *immediate) ReportSteady(ctx context.Context) bool {
	return true
}

func (s *immediate) HasGreenLight(ctx context.Context) bool {
	return true
}
