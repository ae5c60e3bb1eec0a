package services

import (
	"context"
	"strings"

	"maternar/models"
	"maternar/store"
)

type UserService struct {
	store store.Store
	authz *Authorizer
}

func NewUserService(s store.Store, authz *Authorizer) *UserService {
	return &UserService{store: s, authz: authz}
}

func (us *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := us.store.GetUserByID(ctx, id)
	return u, notFound(err, ErrUserNotFound)
}

// List returns the user directory. Every authenticated user may read it.
func (us *UserService) List(ctx context.Context) ([]models.User, error) {
	return us.store.ListUsers(ctx)
}

type profileInput struct {
	FirstName  *string `json:"firstName" validate:"omitempty,notblank,max=100"`
	LastName   *string `json:"lastName" validate:"omitempty,notblank,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	AvatarURL  *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
}

// UpdateProfile changes the caller's own profile fields.
func (us *UserService) UpdateProfile(ctx context.Context, userID uint, in models.ProfileUpdate) (*models.User, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in = models.ProfileUpdate{
		FirstName:  trim(in.FirstName),
		LastName:   trim(in.LastName),
		Department: trim(in.Department),
		Position:   trim(in.Position),
		AvatarURL:  trim(in.AvatarURL),
	}
	if err := validateStruct(profileInput(in)); err != nil {
		return nil, err
	}

	u, err := us.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Department != nil {
		u.Department = *in.Department
	}
	if in.Position != nil {
		u.Position = *in.Position
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	if err := us.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetActive enables or disables an account. Admin only.
func (us *UserService) SetActive(ctx context.Context, actor *models.User, userID uint, active bool) (*models.User, error) {
	if err := us.authz.Require(actor, "user", "write"); err != nil {
		return nil, err
	}
	u, err := us.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	u.IsActive = active
	if err := us.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	if !active {
		if err := us.store.DeleteUserSessions(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}
