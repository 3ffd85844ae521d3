package strategy

import "context"

// never withholds the green light unconditionally, for nodes that only
// finalize under manual intervention. Whether such a node still reports
// steady state is deployment policy.
type never struct {
	reportsSteady bool
}

func (s *never) Name() string {
	return "never"
}

func (s *never) ReportSteady(ctx context.Context) bool {
	return s.reportsSteady
}

func (s *never) HasGreenLight(ctx context.Context) bool {
	return false
}
