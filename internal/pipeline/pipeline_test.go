package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/infostats/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *model.Run) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, run *model.Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if !New(WithContinueOnError(true)).continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "one"})
	p.AddSteps(&mockStep{name: "two"}, &mockStep{name: "three"})

	names := p.StepNames()
	if len(names) != 3 || names[0] != "one" || names[2] != "three" {
		t.Errorf("unexpected step names %v", names)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order and records them", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.Run) error {
				order = append(order, name)
				return nil
			}}
		}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(step("a"), step("b"), step("c"))

		run := model.NewRun("r", testWindow())
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("unexpected order %v", order)
		}
		if len(run.CompletedSteps) != 3 {
			t.Errorf("expected 3 completed steps, got %v", run.CompletedSteps)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Run) error { return errBoom }}
		after := &mockStep{name: "after"}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		run := model.NewRun("r", testWindow())
		if err := p.Execute(context.Background(), run); !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step to be skipped")
		}
		if run.ErrorMessage != "boom" || !errors.Is(run.Error, errBoom) {
			t.Errorf("expected error recorded in run, got %q", run.ErrorMessage)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Run) error { return errBoom }}
		after := &mockStep{name: "after"}
		p := New(WithLogger(quietLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		run := model.NewRun("r", testWindow())
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later step to run")
		}
		if run.ErrorMessage != "boom" {
			t.Error("expected error recorded in run")
		}
	})

	t.Run("marks cancelled runs", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(context.Context, *model.Run) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(first, second)

		run := model.NewRun("r", testWindow())
		if err := p.Execute(ctx, run); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !run.Cancelled {
			t.Error("expected run to be marked cancelled")
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if len(run.CompletedSteps) != 1 {
			t.Errorf("expected 1 completed step, got %v", run.CompletedSteps)
		}
	})
}
