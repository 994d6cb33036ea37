package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/goevolve/internal/controller"
	controllermocks "github.com/mouse-blink/goevolve/internal/controller/mocks"
	"github.com/mouse-blink/goevolve/internal/domain"
	domainmocks "github.com/mouse-blink/goevolve/internal/domain/mocks"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// Example of testing Workflow mock
func TestWorkflowMock_Run(t *testing.T) {
	t.Run("returns configured error", func(t *testing.T) {
		mockWorkflow := domainmocks.NewMockWorkflow(t)
		boom := errors.New("boom")

		mockWorkflow.EXPECT().
			Run(mock.Anything, domain.RunArgs{Paths: []m.Path{"hill.yaml"}}).
			Return(boom)

		err := mockWorkflow.Run(context.Background(), domain.RunArgs{Paths: []m.Path{"hill.yaml"}})
		if !errors.Is(err, boom) {
			t.Errorf("Run() error = %v, want %v", err, boom)
		}
	})

	t.Run("runs callback with arguments", func(t *testing.T) {
		mockWorkflow := domainmocks.NewMockWorkflow(t)

		var got domain.ListArgs

		mockWorkflow.EXPECT().
			List(mock.Anything).
			Run(func(args domain.ListArgs) { got = args }).
			Return(nil)

		if err := mockWorkflow.List(domain.ListArgs{Paths: []m.Path{"./..."}}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if len(got.Paths) != 1 || got.Paths[0] != "./..." {
			t.Errorf("List() args = %+v", got)
		}
	})
}

// Example of testing UI mock
func TestUIMock_DisplayTargets(t *testing.T) {
	t.Run("displays targets successfully", func(t *testing.T) {
		mockUI := controllermocks.NewMockUI(t)

		targets := []controller.TargetInfo{{Workflow: "hill.yaml", ID: "hill.climb", Steps: 5}}

		mockUI.EXPECT().Start(mock.Anything).Return(nil)
		mockUI.EXPECT().DisplayTargets(targets, nil).Return(nil)
		mockUI.EXPECT().Close().Return()

		if err := mockUI.Start(controller.WithListMode()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if err := mockUI.DisplayTargets(targets, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		mockUI.Close()
	})

	t.Run("passes the list error through", func(t *testing.T) {
		mockUI := controllermocks.NewMockUI(t)
		boom := errors.New("boom")

		mockUI.EXPECT().
			DisplayTargets(mock.Anything, boom).
			RunAndReturn(func(_ []controller.TargetInfo, err error) error { return err })

		if err := mockUI.DisplayTargets(nil, boom); !errors.Is(err, boom) {
			t.Errorf("DisplayTargets() error = %v, want %v", err, boom)
		}
	})
}
