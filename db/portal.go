package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maternar/models"
	"maternar/store"
)

// Courses

func (r *Repository) ListCourses(ctx context.Context, activeOnly bool) ([]models.Course, error) {
	q := r.conn(ctx).Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Course
	err := q.Find(&out).Error
	return out, translate(err, "list courses")
}

func (r *Repository) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	if err := r.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "get course")
	}
	return &c, nil
}

func (r *Repository) CreateCourse(ctx context.Context, c *models.Course) error {
	return r.Insert(ctx, c)
}

func (r *Repository) GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.conn(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, translate(err, "get enrollment")
	}
	return &e, nil
}

func (r *Repository) SaveEnrollment(ctx context.Context, e *models.Enrollment) error {
	if e.ID == 0 {
		return r.Insert(ctx, e)
	}
	return r.Update(ctx, e)
}

func (r *Repository) ListEnrollments(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := r.conn(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error
	return out, translate(err, "list enrollments")
}

func (r *Repository) CountCourses(ctx context.Context, activeOnly bool) (int64, error) {
	q := r.conn(ctx).Model(&models.Course{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err, "count courses")
}

func (r *Repository) CountCompletedEnrollments(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentCompleted).
		Count(&n).Error
	return n, translate(err, "count enrollments")
}

// Chat

func (r *Repository) ListChannelsForUser(ctx context.Context, userID uint) ([]models.Channel, error) {
	var out []models.Channel
	err := r.conn(ctx).
		Joins("JOIN channel_members cm ON cm.channel_id = channels.id").
		Where("cm.user_id = ?", userID).
		Order("channels.id ASC").
		Find(&out).Error
	return out, translate(err, "list channels")
}

func (r *Repository) GetChannel(ctx context.Context, id uint) (*models.Channel, error) {
	var ch models.Channel
	if err := r.conn(ctx).First(&ch, id).Error; err != nil {
		return nil, translate(err, "get channel")
	}
	return &ch, nil
}

func (r *Repository) CreateChannel(ctx context.Context, ch *models.Channel) error {
	return r.Insert(ctx, ch)
}

func (r *Repository) AddChannelMember(ctx context.Context, m *models.ChannelMember) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	err := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
	return translate(err, "add channel member")
}

func (r *Repository) IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&n).Error
	return n > 0, translate(err, "check membership")
}

func (r *Repository) ListChannelMembers(ctx context.Context, channelID uint) ([]uint, error) {
	var ids []uint
	err := r.conn(ctx).Model(&models.ChannelMember{}).
		Where("channel_id = ?", channelID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, translate(err, "list channel members")
}

func (r *Repository) ListMessages(ctx context.Context, channelID uint, limit, offset int) ([]models.Message, error) {
	q := r.conn(ctx).Where("channel_id = ?", channelID).Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Message
	err := q.Find(&out).Error
	return out, translate(err, "list messages")
}

func (r *Repository) CreateMessage(ctx context.Context, m *models.Message) error {
	return r.Insert(ctx, m)
}

// Calendar

func (r *Repository) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	var out []models.Event
	err := r.overlapping(ctx, start, end).Order("start_date ASC").Find(&out).Error
	return out, translate(err, "list events")
}

func (r *Repository) overlapping(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.conn(ctx).Model(&models.Event{}).Where("end_date >= ? AND start_date <= ?", start, end)
}

func (r *Repository) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	if err := r.conn(ctx).First(&e, id).Error; err != nil {
		return nil, translate(err, "get event")
	}
	return &e, nil
}

func (r *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	return r.Insert(ctx, e)
}

func (r *Repository) UpdateEvent(ctx context.Context, e *models.Event) error {
	return r.Update(ctx, e)
}

func (r *Repository) DeleteEvent(ctx context.Context, id uint) error {
	return r.Delete(ctx, &models.Event{}, id)
}

func (r *Repository) CountEventsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.overlapping(ctx, start, end).Count(&n).Error
	return n, translate(err, "count events")
}

// Projects

func (r *Repository) ListProjects(ctx context.Context, userID uint) ([]models.Project, error) {
	q := r.conn(ctx).Order("id ASC")
	if userID != 0 {
		q = q.Where("owner_id = ? OR id IN (?)", userID,
			r.conn(ctx).Model(&models.Task{}).Select("project_id").Where("assignee_id = ?", userID))
	}
	var out []models.Project
	err := q.Find(&out).Error
	return out, translate(err, "list projects")
}

func (r *Repository) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "get project")
	}
	return &p, nil
}

func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	return r.Insert(ctx, p)
}

func (r *Repository) UpdateProject(ctx context.Context, p *models.Project) error {
	return r.Update(ctx, p)
}

func (r *Repository) DeleteProject(ctx context.Context, id uint) error {
	return r.WithTx(ctx, func(tx store.Store) error {
		repo := tx.(*Repository)
		if err := repo.conn(ctx).Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return translate(err, "delete project tasks")
		}
		return repo.Delete(ctx, &models.Project{}, id)
	})
}

func (r *Repository) ListTasks(ctx context.Context, projectID uint) ([]models.Task, error) {
	var out []models.Task
	err := r.conn(ctx).Where("project_id = ?", projectID).Order("id ASC").Find(&out).Error
	return out, translate(err, "list tasks")
}

func (r *Repository) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := r.conn(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err, "get task")
	}
	return &t, nil
}

func (r *Repository) CreateTask(ctx context.Context, t *models.Task) error {
	return r.Insert(ctx, t)
}

func (r *Repository) UpdateTask(ctx context.Context, t *models.Task) error {
	return r.Update(ctx, t)
}

func (r *Repository) DeleteTask(ctx context.Context, id uint) error {
	return r.Delete(ctx, &models.Task{}, id)
}

func (r *Repository) CountOpenTasks(ctx context.Context, assigneeID uint) (int64, error) {
	q := r.conn(ctx).Model(&models.Task{}).Where("status <> ?", models.TaskDone)
	if assigneeID != 0 {
		q = q.Where("assignee_id = ?", assigneeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err, "count open tasks")
}

// Policies

func (r *Repository) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	var out []models.Policy
	err := r.conn(ctx).Order("id ASC").Find(&out).Error
	return out, translate(err, "list policies")
}

func (r *Repository) GetPolicy(ctx context.Context, id uint) (*models.Policy, error) {
	var p models.Policy
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "get policy")
	}
	return &p, nil
}

func (r *Repository) CreatePolicy(ctx context.Context, p *models.Policy) error {
	return r.Insert(ctx, p)
}

func (r *Repository) AcknowledgePolicy(ctx context.Context, ack *models.PolicyAcknowledgment) (bool, error) {
	if ack.AcknowledgedAt.IsZero() {
		ack.AcknowledgedAt = time.Now()
	}
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ack)
	if res.Error != nil {
		return false, translate(res.Error, "acknowledge policy")
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	err := r.conn(ctx).Where("policy_id = ? AND user_id = ?", ack.PolicyID, ack.UserID).First(ack).Error
	return false, translate(err, "load acknowledgment")
}

func (r *Repository) ListAcknowledgments(ctx context.Context, userID uint) ([]models.PolicyAcknowledgment, error) {
	var out []models.PolicyAcknowledgment
	err := r.conn(ctx).Where("user_id = ?", userID).Order("acknowledged_at ASC").Find(&out).Error
	return out, translate(err, "list acknowledgments")
}

func (r *Repository) CountPendingPolicies(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Policy{}).
		Where("is_mandatory = ?", true).
		Where("id NOT IN (?)", r.conn(ctx).Model(&models.PolicyAcknowledgment{}).Select("policy_id").Where("user_id = ?", userID)).
		Count(&n).Error
	return n, translate(err, "count pending policies")
}

// Links

func (r *Repository) ListLinks(ctx context.Context) ([]models.Link, error) {
	var out []models.Link
	err := r.conn(ctx).Order("category ASC, id ASC").Find(&out).Error
	return out, translate(err, "list links")
}

func (r *Repository) CreateLink(ctx context.Context, l *models.Link) error {
	return r.Insert(ctx, l)
}

func (r *Repository) DeleteLink(ctx context.Context, id uint) error {
	return r.Delete(ctx, &models.Link{}, id)
}

// Notifications

func (r *Repository) ListNotifications(ctx context.Context, userID uint, limit int, unreadOnly bool) ([]models.Notification, error) {
	q := r.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Notification
	err := q.Find(&out).Error
	return out, translate(err, "list notifications")
}

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.Insert(ctx, n)
}

func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id uint, at time.Time) error {
	res := r.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	if res.Error != nil {
		return translate(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	return res.RowsAffected, translate(res.Error, "mark all notifications read")
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, translate(err, "count unread notifications")
}
