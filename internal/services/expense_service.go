package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/ports"
	"smartexpense/internal/storage"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error
}

// ExpenseService validates expenses against users and categories, saves them
// and announces them on the event bus.
type ExpenseService struct {
	users      ports.UserStore
	categories ports.CategoryStore
	expenses   ports.ExpenseStore
	publisher  EventPublisher // nil disables publishing
}

func NewExpenseService(users ports.UserStore, categories ports.CategoryStore, expenses ports.ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		users:      users,
		categories: categories,
		expenses:   expenses,
		publisher:  publisher,
	}
}

// CreateExpense returns a core.ValidationError when the input is invalid or
// references an unknown user or category.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.checkReferences(ctx, e); err != nil {
		return core.Expense{}, err
	}

	created, err := s.expenses.CreateExpense(ctx, e)
	switch {
	case errors.Is(err, storage.ErrForeignKey):
		// user or category removed since checkReferences
		if verr := s.checkReferences(ctx, e); verr != nil {
			return core.Expense{}, verr
		}
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	case errors.Is(err, storage.ErrCheckViolation):
		return core.Expense{}, core.NewFieldError("amount", "Ensure this value is greater than or equal to 0.01.")
	case err != nil:
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishCreated(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created message", "id", created.ID, "error", err)
		// Don't fail the request - the expense is committed
	}

	return created, nil
}

func (s *ExpenseService) checkReferences(ctx context.Context, e core.Expense) error {
	verr := core.ValidationError{}

	if _, err := s.users.GetUser(ctx, e.UserID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
		verr.Add("user_id", "User not found.")
	}
	if _, err := s.categories.GetCategory(ctx, e.CategoryID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("lookup category: %w", err)
		}
		verr.Add("category_id", "Category not found.")
	}

	return verr.Err()
}

func (s *ExpenseService) publishCreated(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping expense created message")
		return nil
	}
	return s.publisher.PublishExpenseCreated(ctx, amqp.NewExpenseCreatedMessage(e))
}
