package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maternar/models"
	"maternar/store"
)

// CourseView is a course with the viewer's enrollment, if any.
type CourseView struct {
	models.Course
	Enrollment *models.Enrollment
}

type CourseInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	Duration    int    `json:"duration" validate:"min=0"`
	XPReward    int    `json:"xpReward" validate:"min=0"`
}

type CourseService struct {
	store        store.Store
	gamification *GamificationService
	authz        *Authorizer
	now          func() time.Time
}

func NewCourseService(s store.Store, gs *GamificationService, authz *Authorizer) *CourseService {
	return &CourseService{store: s, gamification: gs, authz: authz, now: time.Now}
}

func (cs *CourseService) List(ctx context.Context, userID uint) ([]CourseView, error) {
	courses, err := cs.store.ListCourses(ctx, true)
	if err != nil {
		return nil, err
	}
	enrollments, err := cs.store.ListEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[uint]models.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byCourse[e.CourseID] = e
	}

	out := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		v := CourseView{Course: c}
		if e, ok := byCourse[c.ID]; ok {
			v.Enrollment = &e
		}
		out = append(out, v)
	}
	return out, nil
}

func (cs *CourseService) Create(ctx context.Context, actor *models.User, in CourseInput) (*models.Course, error) {
	if err := cs.authz.Require(actor, "course", "write"); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	c := &models.Course{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Duration:    in.Duration,
		XPReward:    in.XPReward,
		IsActive:    true,
	}
	if err := cs.store.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (cs *CourseService) activeCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	c, err := cs.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	if !c.IsActive {
		return nil, ErrNotFound
	}
	return c, nil
}

// Enroll starts a course. Enrolling twice returns the existing enrollment.
func (cs *CourseService) Enroll(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	if _, err := cs.activeCourse(ctx, courseID); err != nil {
		return nil, err
	}
	e, err := cs.store.GetEnrollment(ctx, userID, courseID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	e = &models.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    models.EnrollmentInProgress,
		StartedAt: cs.now(),
	}
	if err := cs.store.SaveEnrollment(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateProgress records progress in percent. Reaching 100 completes the
// course. The write happens under the user's row lock so it cannot undo a
// concurrent completion.
func (cs *CourseService) UpdateProgress(ctx context.Context, userID, courseID uint, progress int) (*models.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, NewValidationError("progress must be between 0 and 100", FieldError{Field: "progress", Error: "must be between 0 and 100"})
	}
	if progress == 100 {
		return cs.Complete(ctx, userID, courseID)
	}
	if _, err := cs.activeCourse(ctx, courseID); err != nil {
		return nil, err
	}

	var e *models.Enrollment
	_, err := cs.gamification.GrantXPWith(ctx, userID, "", func(tx store.Store) (int, error) {
		cur, err := cs.enrollmentTx(ctx, tx, userID, courseID)
		if err != nil || cur.Completed() {
			e = cur
			return 0, err
		}
		cur.Progress = progress
		if err := tx.SaveEnrollment(ctx, cur); err != nil {
			return 0, err
		}
		e = cur
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Complete finishes a course and grants its XP reward the first time only.
// The enrollment is marked completed in the same transaction as the grant,
// under the user's row lock, so a failed grant can be retried and concurrent
// completions reward once.
func (cs *CourseService) Complete(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	c, err := cs.activeCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var e *models.Enrollment
	now := cs.now()
	_, err = cs.gamification.GrantXPWith(ctx, userID, fmt.Sprintf("Completed course: %s", c.Title), func(tx store.Store) (int, error) {
		cur, err := cs.enrollmentTx(ctx, tx, userID, courseID)
		if err != nil || cur.Completed() {
			e = cur
			return 0, err
		}
		cur.Status = models.EnrollmentCompleted
		cur.Progress = 100
		cur.CompletedAt = &now
		if err := tx.SaveEnrollment(ctx, cur); err != nil {
			return 0, err
		}
		e = cur
		return c.XPReward, nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// enrollmentTx loads the enrollment through tx, or returns a new unsaved
// in-progress one.
func (cs *CourseService) enrollmentTx(ctx context.Context, tx store.Store, userID, courseID uint) (*models.Enrollment, error) {
	e, err := tx.GetEnrollment(ctx, userID, courseID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &models.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    models.EnrollmentInProgress,
		StartedAt: cs.now(),
	}, nil
}
