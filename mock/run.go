package mock

import (
	"context"

	"github.com/fwojciec/dumpit"
)

var _ dumpit.RunWriter = (*RunWriter)(nil)

// RunWriter is a mock implementation of dumpit.RunWriter.
type RunWriter struct {
	WriteRunFn func(ctx context.Context, run *dumpit.Run) error
}

func (w *RunWriter) WriteRun(ctx context.Context, run *dumpit.Run) error {
	return w.WriteRunFn(ctx, run)
}

var _ dumpit.RunService = (*RunService)(nil)

// RunService is a mock implementation of dumpit.RunService.
type RunService struct {
	FindRunByIDFn func(ctx context.Context, id string) (*dumpit.Run, error)
	FindRunsFn    func(ctx context.Context, filter dumpit.RunFilter) ([]*dumpit.Run, error)
	FindPagesFn   func(ctx context.Context, runID string) ([]*dumpit.Page, error)
	DeleteRunFn   func(ctx context.Context, id string) error
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*dumpit.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter dumpit.RunFilter) ([]*dumpit.Run, error) {
	return s.FindRunsFn(ctx, filter)
}

func (s *RunService) FindPages(ctx context.Context, runID string) ([]*dumpit.Page, error) {
	return s.FindPagesFn(ctx, runID)
}

func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	return s.DeleteRunFn(ctx, id)
}
