package services

import (
	"context"
	"strings"
	"time"

	"maternar/models"
	"maternar/store"
)

type EventInput struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Location    string    `json:"location" validate:"max=200"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	AllDay      bool      `json:"allDay"`
}

var errEndBeforeStart = NewValidationError("endDate must not be before startDate",
	FieldError{Field: "endDate", Error: "must not be before startDate"})

type CalendarService struct {
	store store.Store
	authz *Authorizer
}

func NewCalendarService(s store.Store, authz *Authorizer) *CalendarService {
	return &CalendarService{store: s, authz: authz}
}

// Events returns the events overlapping [start, end].
func (cs *CalendarService) Events(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	if end.Before(start) {
		return nil, errEndBeforeStart
	}
	return cs.store.ListEvents(ctx, start, end)
}

func (cs *CalendarService) Create(ctx context.Context, actor *models.User, in EventInput) (*models.Event, error) {
	if err := cs.authz.Require(actor, "event", "write"); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, errEndBeforeStart
	}

	e := &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		AllDay:      in.AllDay,
		CreatedBy:   actor.ID,
	}
	if err := cs.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// editable loads an event the actor created. Admins may edit any event.
func (cs *CalendarService) editable(ctx context.Context, actor *models.User, id uint) (*models.Event, error) {
	if err := cs.authz.Require(actor, "event", "write"); err != nil {
		return nil, err
	}
	e, err := cs.store.GetEvent(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	if e.CreatedBy != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return e, nil
}

func (cs *CalendarService) Update(ctx context.Context, actor *models.User, id uint, in models.EventUpdate) (*models.Event, error) {
	e, err := cs.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if blank(*in.Title) {
			return nil, NewValidationError("title is required", FieldError{Field: "title", Error: "is required"})
		}
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.StartDate != nil {
		e.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		e.EndDate = *in.EndDate
	}
	if in.AllDay != nil {
		e.AllDay = *in.AllDay
	}
	if e.EndDate.Before(e.StartDate) {
		return nil, errEndBeforeStart
	}
	if err := cs.store.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (cs *CalendarService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if _, err := cs.editable(ctx, actor, id); err != nil {
		return err
	}
	return notFound(cs.store.DeleteEvent(ctx, id), ErrNotFound)
}
