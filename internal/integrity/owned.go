package integrity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/planner/internal/model"
)

// AddTask creates a task under its event and records it on the event's
// task list. Empty priority and status default to Medium and Not Started.
func (m *Manager) AddTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.TaskNotStarted
	}
	if t.Title == "" {
		return model.Task{}, validationError(errors.New("task title is required"))
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	tb := m.stores.Tasks.Begin(ctx)
	defer tb.Release()

	if _, ok := eb.Find(t.EventID); !ok {
		return model.Task{}, fmt.Errorf("add task: %w", ErrEventNotFound)
	}
	created, err := tb.Insert(t, 0)
	if err != nil {
		return model.Task{}, fmt.Errorf("add task: %w", err)
	}
	eb.Update(t.EventID, func(e *model.Event) {
		e.Tasks, _ = model.AppendID(e.Tasks, created.ID)
	})

	if err := tb.Commit(ctx); err != nil {
		return model.Task{}, err
	}
	if err := eb.Commit(ctx); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// SetTaskStatus moves a task through Not Started, In Progress and Completed.
func (m *Manager) SetTaskStatus(ctx context.Context, taskID int64, s model.TaskStatus) error {
	if !s.Valid() {
		return validationError(fmt.Errorf("unknown task status %q", s))
	}
	ok, err := m.stores.Tasks.Update(ctx, taskID, func(t *model.Task) { t.Status = s })
	if err != nil {
		return fmt.Errorf("set task %d status: %w", taskID, err)
	}
	if !ok {
		return fmt.Errorf("set task %d status: %w", taskID, ErrTaskNotFound)
	}
	return nil
}

// DeleteTask removes the task and drops it from its event's task list.
// A missing task is a logged no-op.
func (m *Manager) DeleteTask(ctx context.Context, taskID int64) error {
	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	tb := m.stores.Tasks.Begin(ctx)
	defer tb.Release()

	t, ok := tb.Find(taskID)
	if !ok {
		m.logger.Info("delete task skipped, not found", "task_id", taskID)
		return nil
	}
	tb.Delete(taskID)
	if e, ok := eb.Find(t.EventID); ok && model.ContainsID(e.Tasks, taskID) {
		eb.Update(e.ID, func(e *model.Event) {
			e.Tasks, _ = model.RemoveID(e.Tasks, taskID)
		})
	}

	if err := tb.Commit(ctx); err != nil {
		return err
	}
	return eb.Commit(ctx)
}

// AddExpense creates an expense under its event and records it on the
// event's expense list.
func (m *Manager) AddExpense(ctx context.Context, x model.Expense) (model.Expense, error) {
	if x.Name == "" {
		return model.Expense{}, validationError(errors.New("expense name is required"))
	}
	if err := x.Validate(); err != nil {
		return model.Expense{}, err
	}
	if x.Date.IsZero() {
		x.Date = m.now()
	}

	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	xb := m.stores.Expenses.Begin(ctx)
	defer xb.Release()

	if _, ok := eb.Find(x.EventID); !ok {
		return model.Expense{}, fmt.Errorf("add expense: %w", ErrEventNotFound)
	}
	created, err := xb.Insert(x, 0)
	if err != nil {
		return model.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	eb.Update(x.EventID, func(e *model.Event) {
		e.Expenses, _ = model.AppendID(e.Expenses, created.ID)
	})

	if err := xb.Commit(ctx); err != nil {
		return model.Expense{}, err
	}
	if err := eb.Commit(ctx); err != nil {
		return model.Expense{}, err
	}
	return created, nil
}

// DeleteExpense removes the expense and drops it from its event's expense
// list. A missing expense is a logged no-op.
func (m *Manager) DeleteExpense(ctx context.Context, expenseID int64) error {
	eb := m.stores.Events.Begin(ctx)
	defer eb.Release()
	xb := m.stores.Expenses.Begin(ctx)
	defer xb.Release()

	x, ok := xb.Find(expenseID)
	if !ok {
		m.logger.Info("delete expense skipped, not found", "expense_id", expenseID)
		return nil
	}
	xb.Delete(expenseID)
	if e, ok := eb.Find(x.EventID); ok && model.ContainsID(e.Expenses, expenseID) {
		eb.Update(e.ID, func(e *model.Event) {
			e.Expenses, _ = model.RemoveID(e.Expenses, expenseID)
		})
	}

	if err := xb.Commit(ctx); err != nil {
		return err
	}
	return eb.Commit(ctx)
}
