package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maternar/internal/events"
	"maternar/models"
	"maternar/store"
)

type ProjectInput struct {
	Name        string     `json:"name" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	DueDate     *time.Time `json:"dueDate"`
}

type TaskInput struct {
	ProjectID   uint       `json:"projectId" validate:"required"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssigneeID  *uint      `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

type projectUpdateInput struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=200"`
	Status *string `json:"status" validate:"omitempty,oneof=active completed archived"`
}

type taskUpdateInput struct {
	Title    *string `json:"title" validate:"omitempty,notblank,max=200"`
	Status   *string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type ProjectService struct {
	store         store.Store
	bus           events.Bus
	notifications *NotificationService
	logger        *slog.Logger
}

func NewProjectService(s store.Store, bus events.Bus, ns *NotificationService, logger *slog.Logger) *ProjectService {
	return &ProjectService{store: s, bus: bus, notifications: ns, logger: logger}
}

// List returns the projects the user owns or has tasks in. Admins see all.
func (ps *ProjectService) List(ctx context.Context, actor *models.User) ([]models.Project, error) {
	if actor.IsAdmin() {
		return ps.store.ListProjects(ctx, 0)
	}
	return ps.store.ListProjects(ctx, actor.ID)
}

func (ps *ProjectService) Tasks(ctx context.Context, actor *models.User, projectID uint) ([]models.Task, error) {
	if _, err := ps.visible(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return ps.store.ListTasks(ctx, projectID)
}

// visible loads a project the actor owns, is assigned in, or may administer.
func (ps *ProjectService) visible(ctx context.Context, actor *models.User, projectID uint) (*models.Project, error) {
	p, err := ps.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	if p.OwnerID == actor.ID || actor.IsAdmin() {
		return p, nil
	}
	tasks, err := ps.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.AssigneeID != nil && *t.AssigneeID == actor.ID {
			return p, nil
		}
	}
	return nil, ErrForbidden
}

func (ps *ProjectService) owned(ctx context.Context, actor *models.User, projectID uint) (*models.Project, error) {
	p, err := ps.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	if p.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return p, nil
}

func (ps *ProjectService) Create(ctx context.Context, actor *models.User, in ProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	p := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      models.ProjectActive,
		OwnerID:     actor.ID,
		DueDate:     in.DueDate,
	}
	if err := ps.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (ps *ProjectService) Update(ctx context.Context, actor *models.User, id uint, in models.ProjectUpdate) (*models.Project, error) {
	if err := validateStruct(projectUpdateInput{Name: in.Name, Status: in.Status}); err != nil {
		return nil, err
	}
	p, err := ps.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.DueDate != nil {
		p.DueDate = in.DueDate
	}
	if err := ps.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the project together with its tasks.
func (ps *ProjectService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if _, err := ps.owned(ctx, actor, id); err != nil {
		return err
	}
	return notFound(ps.store.DeleteProject(ctx, id), ErrNotFound)
}

func (ps *ProjectService) CreateTask(ctx context.Context, actor *models.User, in TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := ps.owned(ctx, actor, in.ProjectID); err != nil {
		return nil, err
	}
	if err := ps.checkAssignee(ctx, in.AssigneeID); err != nil {
		return nil, err
	}

	t := &models.Task{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if err := ps.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	ps.publish(ctx, models.TaskCreated, t)
	ps.notifyAssignee(ctx, actor, t)
	return t, nil
}

// UpdateTask is allowed to the project owner, the assignee and admins.
func (ps *ProjectService) UpdateTask(ctx context.Context, actor *models.User, id uint, in models.TaskUpdate) (*models.Task, error) {
	if err := validateStruct(taskUpdateInput{Title: in.Title, Status: in.Status, Priority: in.Priority}); err != nil {
		return nil, err
	}
	t, err := ps.store.GetTask(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	assignee := t.AssigneeID != nil && *t.AssigneeID == actor.ID
	if !assignee {
		if _, err := ps.owned(ctx, actor, t.ProjectID); err != nil {
			return nil, err
		}
	}
	if err := ps.checkAssignee(ctx, in.AssigneeID); err != nil {
		return nil, err
	}

	reassigned := in.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *in.AssigneeID)
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssigneeID != nil {
		t.AssigneeID = in.AssigneeID
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if err := ps.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}

	ps.publish(ctx, models.TaskUpdated, t)
	if reassigned {
		ps.notifyAssignee(ctx, actor, t)
	}
	return t, nil
}

func (ps *ProjectService) DeleteTask(ctx context.Context, actor *models.User, id uint) error {
	t, err := ps.store.GetTask(ctx, id)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	if _, err := ps.owned(ctx, actor, t.ProjectID); err != nil {
		return err
	}
	if err := ps.store.DeleteTask(ctx, id); err != nil {
		return notFound(err, ErrNotFound)
	}
	ps.publish(ctx, models.TaskDeleted, t)
	return nil
}

func (ps *ProjectService) checkAssignee(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := ps.store.GetUserByID(ctx, *id); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	return nil
}

func (ps *ProjectService) publish(ctx context.Context, action string, t *models.Task) {
	ev := models.TaskEvent{Action: action, Task: *t}
	if err := ps.bus.Publish(ctx, events.TaskTopic(t.ProjectID), ev); err != nil {
		ps.logger.Warn("failed to publish task event", "task_id", t.ID, "error", err)
	}
}

func (ps *ProjectService) notifyAssignee(ctx context.Context, actor *models.User, t *models.Task) {
	if t.AssigneeID == nil || *t.AssigneeID == actor.ID {
		return
	}
	err := ps.notifications.Notify(ctx, &models.Notification{
		UserID: *t.AssigneeID,
		Type:   models.NotificationTask,
		Title:  "New task assigned: " + t.Title,
		Body:   fmt.Sprintf("%s assigned you a task.", actor.DisplayName()),
		Link:   fmt.Sprintf("/projects/%d", t.ProjectID),
	})
	if err != nil {
		ps.logger.Error("failed to notify assignee", "task_id", t.ID, "error", err)
	}
}
