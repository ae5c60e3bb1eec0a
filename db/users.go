package db

import (
	"context"

	"gorm.io/gorm/clause"

	"maternar/models"
	"maternar/store"
)

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	return r.Insert(ctx, u)
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err, "get user by email")
	}
	return &u, nil
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, translate(err, "count usernames")
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.conn(ctx).Order("id ASC").Find(&users).Error
	return users, translate(err, "list users")
}

func (r *Repository) UpdateUser(ctx context.Context, u *models.User) error {
	return r.Update(ctx, u)
}

// LockUser selects the user row FOR UPDATE.
func (r *Repository) LockUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
	if err != nil {
		return nil, translate(err, "lock user")
	}
	return &u, nil
}

func (r *Repository) TopUsers(ctx context.Context, metric string, limit int) ([]models.User, error) {
	column := "total_xp"
	if metric == models.MetricWeekly {
		column = "weekly_xp"
	}
	q := r.conn(ctx).
		Where("is_active = ?", true).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var users []models.User
	err := q.Find(&users).Error
	return users, translate(err, "top users")
}

func (r *Repository) ResetWeeklyXP(ctx context.Context) (int64, error) {
	res := r.conn(ctx).Model(&models.User{}).Where("weekly_xp <> ?", 0).Update("weekly_xp", 0)
	return res.RowsAffected, translate(res.Error, "reset weekly xp")
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.User{}).Count(&n).Error
	return n, translate(err, "count users")
}

// Sessions

func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	return r.Insert(ctx, s)
}

func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.conn(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err, "get session")
	}
	return &s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	err := r.conn(ctx).Where("id = ?", id).Delete(&models.Session{}).Error
	return translate(err, "delete session")
}

func (r *Repository) DeleteUserSessions(ctx context.Context, userID uint) error {
	err := r.conn(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error
	return translate(err, "delete user sessions")
}

// Activities

func (r *Repository) AppendActivity(ctx context.Context, a *models.ActivityLog) error {
	return r.Insert(ctx, a)
}

func (r *Repository) ListActivities(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	q := r.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.ActivityLog
	err := q.Find(&out).Error
	return out, translate(err, "list activities")
}

// Achievements

func (r *Repository) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	err := r.conn(ctx).Order("threshold ASC, id ASC").Find(&out).Error
	return out, translate(err, "list achievements")
}

func (r *Repository) ListUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	err := r.conn(ctx).Where("user_id = ?", userID).Order("earned_at ASC").Find(&out).Error
	return out, translate(err, "list user achievements")
}

func (r *Repository) AwardAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error) {
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ua)
	if res.Error != nil {
		return false, translate(res.Error, "award achievement")
	}
	return res.RowsAffected > 0, nil
}

var _ store.Users = (*Repository)(nil)
