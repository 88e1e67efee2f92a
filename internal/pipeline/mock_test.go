package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/model"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, inv *model.Invoice) integration.Report {
	args := m.Called(ctx, inv)
	return args.Get(0).(integration.Report)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Append(filename string, inv *model.Invoice) ([]string, error) {
	args := m.Called(filename, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
