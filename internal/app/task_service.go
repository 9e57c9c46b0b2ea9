package app

import (
	"context"
	"fmt"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/tasks"
	"github.com/mmrzaf/sdcatalog/internal/logging"
	"github.com/mmrzaf/sdcatalog/internal/validation"
)

type TaskPolicy struct {
	// DefaultStatus is assigned on registration.
	DefaultStatus domain.TaskStatus
	// StrictTransitions rejects moves that break
	// pending -> running -> {success, failed, cancelled}. Off by default:
	// the orchestrator driving a task is trusted to order its updates.
	StrictTransitions bool
}

func DefaultTaskPolicy() TaskPolicy {
	return TaskPolicy{DefaultStatus: domain.TaskStatusRunning}
}

// TaskService tracks synthetic-generation requests. It only records that a
// task exists and what its status is; the work happens elsewhere.
type TaskService struct {
	repo   tasks.Repository
	policy TaskPolicy
	logger *logging.Logger
}

func NewTaskService(repo tasks.Repository, policy TaskPolicy, logger *logging.Logger) *TaskService {
	if !policy.DefaultStatus.IsValid() {
		policy.DefaultStatus = domain.TaskStatusRunning
	}
	return &TaskService{
		repo:   repo,
		policy: policy,
		logger: logger.WithComponent("tasks"),
	}
}

func (s *TaskService) RegisterTask(ctx context.Context, req *domain.TaskRequest) (*domain.Task, error) {
	if err := validation.ValidateTaskRequest(req); err != nil {
		return nil, err
	}
	task := &domain.Task{
		Username:  req.Username,
		Model:     req.Model,
		NSample:   req.NSample,
		Disease:   req.Disease,
		Condition: req.Condition,
		Status:    s.policy.DefaultStatus,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		s.logger.Errorw("task.register_failed", map[string]any{"username": req.Username, "error": err.Error()})
		return nil, fmt.Errorf("register task: %w", err)
	}
	s.logger.Infow("task.registered", map[string]any{
		"task_id":  task.ID,
		"username": task.Username,
		"model":    task.Model,
		"n_sample": task.NSample,
		"disease":  task.Disease,
		"status":   task.Status,
	})
	return task, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	if err := validation.ValidateTaskID(id); err != nil {
		return err
	}
	if !status.IsValid() {
		return domain.NewValidationError("status", fmt.Sprintf("%q is not a task status", status))
	}

	if !s.policy.StrictTransitions {
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}
		s.logger.Infow("task.status_updated", map[string]any{"task_id": id, "status": status})
		return nil
	}

	from, err := s.repo.Transition(ctx, id, status, func(from domain.TaskStatus) error {
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, status)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	s.logger.Infow("task.status_updated", map[string]any{"task_id": id, "from": from, "status": status})
	return nil
}

func (s *TaskService) GetStatus(ctx context.Context, id string) (domain.TaskStatus, error) {
	if err := validation.ValidateTaskID(id); err != nil {
		return "", err
	}
	status, err := s.repo.GetStatus(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get task status: %w", err)
	}
	return status, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if err := validation.ValidateTaskID(id); err != nil {
		return nil, err
	}
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("%q is not a task status", filter.Status))
	}
	if filter.Limit < 0 {
		return nil, domain.NewValidationError("limit", "must be positive")
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}
