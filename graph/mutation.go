package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"maternar/models"
	"maternar/services"
)

func (r *Resolver) Login(ctx context.Context, args struct {
	Email    string
	Password string
}) (*authPayloadResolver, error) {
	p, err := r.svc.Auth.Login(ctx, args.Email, args.Password, services.ClientMetaFrom(ctx))
	if err != nil {
		return nil, r.fail(ctx, "login", err)
	}
	return &authPayloadResolver{p: p}, nil
}

type registerInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Department *string
	Position   *string
}

func (r *Resolver) Register(ctx context.Context, args struct{ Input registerInput }) (*authPayloadResolver, error) {
	in := args.Input
	u, err := r.svc.Auth.Register(ctx, services.RegisterInput{
		Email:      in.Email,
		Password:   in.Password,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Department: deref(in.Department),
		Position:   deref(in.Position),
	})
	if err != nil {
		return nil, r.fail(ctx, "register", err)
	}
	p, err := r.svc.Auth.IssueSession(ctx, u, services.ClientMetaFrom(ctx))
	if err != nil {
		return nil, r.fail(ctx, "register", err)
	}
	return &authPayloadResolver{p: p}, nil
}

func (r *Resolver) Logout(ctx context.Context) (bool, error) {
	v := services.ViewerFrom(ctx)
	if v == nil || v.User == nil {
		return false, r.fail(ctx, "logout", services.ErrUnauthenticated)
	}
	if err := r.svc.Auth.Logout(ctx, v.SessionID); err != nil {
		return false, r.fail(ctx, "logout", err)
	}
	return true, nil
}

func (r *Resolver) ChangePassword(ctx context.Context, args struct {
	CurrentPassword string
	NewPassword     string
}) (bool, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return false, err
	}
	if err := r.svc.Auth.ChangePassword(ctx, u.ID, args.CurrentPassword, args.NewPassword); err != nil {
		return false, r.fail(ctx, "changePassword", err)
	}
	return true, nil
}

type profileInput struct {
	FirstName  *string
	LastName   *string
	Department *string
	Position   *string
	Avatar     *string
}

func (r *Resolver) UpdateProfile(ctx context.Context, args struct{ Input profileInput }) (*userResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	updated, err := r.svc.Users.UpdateProfile(ctx, u.ID, models.ProfileUpdate{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Department: in.Department,
		Position:   in.Position,
		AvatarURL:  in.Avatar,
	})
	if err != nil {
		return nil, r.fail(ctx, "updateProfile", err)
	}
	return &userResolver{u: updated}, nil
}

func (r *Resolver) SetUserActive(ctx context.Context, args struct {
	UserID graphql.ID
	Active bool
}) (*userResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.UserID)
	if err != nil {
		return nil, r.fail(ctx, "setUserActive", err)
	}
	updated, err := r.svc.Users.SetActive(ctx, u, id, args.Active)
	if err != nil {
		return nil, r.fail(ctx, "setUserActive", err)
	}
	return &userResolver{u: updated}, nil
}

type courseInput struct {
	Title       string
	Description *string
	Category    *string
	Duration    *int32
	XPReward    *int32
}

func (r *Resolver) CreateCourse(ctx context.Context, args struct{ Input courseInput }) (*courseResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	c, err := r.svc.Courses.Create(ctx, u, services.CourseInput{
		Title:       in.Title,
		Description: deref(in.Description),
		Category:    deref(in.Category),
		Duration:    intOr(in.Duration, 0),
		XPReward:    intOr(in.XPReward, 0),
	})
	if err != nil {
		return nil, r.fail(ctx, "createCourse", err)
	}
	return &courseResolver{v: services.CourseView{Course: *c}}, nil
}

func (r *Resolver) EnrollCourse(ctx context.Context, args struct{ CourseID graphql.ID }) (*enrollmentResolver, error) {
	return r.enrollment(ctx, "enrollCourse", args.CourseID, r.svc.Courses.Enroll)
}

func (r *Resolver) CompleteCourse(ctx context.Context, args struct{ CourseID graphql.ID }) (*enrollmentResolver, error) {
	return r.enrollment(ctx, "completeCourse", args.CourseID, r.svc.Courses.Complete)
}

func (r *Resolver) UpdateCourseProgress(ctx context.Context, args struct {
	CourseID graphql.ID
	Progress int32
}) (*enrollmentResolver, error) {
	return r.enrollment(ctx, "updateCourseProgress", args.CourseID, func(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
		return r.svc.Courses.UpdateProgress(ctx, userID, courseID, int(args.Progress))
	})
}

func (r *Resolver) enrollment(ctx context.Context, op string, courseID graphql.ID,
	fn func(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)) (*enrollmentResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(courseID)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	e, err := fn(ctx, u.ID, id)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	return &enrollmentResolver{e: e}, nil
}

func (r *Resolver) SendMessage(ctx context.Context, args struct {
	ChannelID graphql.ID
	Content   string
}) (*messageResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	channelID, err := parseID(args.ChannelID)
	if err != nil {
		return nil, r.fail(ctx, "sendMessage", err)
	}
	m, err := r.svc.Chat.Send(ctx, u.ID, channelID, args.Content)
	if err != nil {
		return nil, r.fail(ctx, "sendMessage", err)
	}
	return &messageResolver{root: r, m: m}, nil
}

type channelInput struct {
	Name        string
	Description *string
	Type        *string
	MemberIDs   *[]graphql.ID
}

func (r *Resolver) CreateChannel(ctx context.Context, args struct{ Input channelInput }) (*channelResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := services.ChannelInput{
		Name:        args.Input.Name,
		Description: deref(args.Input.Description),
		Type:        deref(args.Input.Type),
	}
	if args.Input.MemberIDs != nil {
		for _, raw := range *args.Input.MemberIDs {
			id, err := parseID(raw)
			if err != nil {
				return nil, r.fail(ctx, "createChannel", err)
			}
			in.MemberIDs = append(in.MemberIDs, id)
		}
	}
	c, err := r.svc.Chat.CreateChannel(ctx, u.ID, in)
	if err != nil {
		return nil, r.fail(ctx, "createChannel", err)
	}
	return &channelResolver{c: c}, nil
}

func (r *Resolver) JoinChannel(ctx context.Context, args struct{ ChannelID graphql.ID }) (*channelResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.ChannelID)
	if err != nil {
		return nil, r.fail(ctx, "joinChannel", err)
	}
	c, err := r.svc.Chat.Join(ctx, u.ID, id)
	if err != nil {
		return nil, r.fail(ctx, "joinChannel", err)
	}
	return &channelResolver{c: c}, nil
}

type eventInput struct {
	Title       string
	Description *string
	Location    *string
	StartDate   graphql.Time
	EndDate     graphql.Time
	AllDay      *bool
}

func (r *Resolver) CreateEvent(ctx context.Context, args struct{ Input eventInput }) (*eventResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	e, err := r.svc.Calendar.Create(ctx, u, services.EventInput{
		Title:       in.Title,
		Description: deref(in.Description),
		Location:    deref(in.Location),
		StartDate:   in.StartDate.Time,
		EndDate:     in.EndDate.Time,
		AllDay:      in.AllDay != nil && *in.AllDay,
	})
	if err != nil {
		return nil, r.fail(ctx, "createEvent", err)
	}
	return &eventResolver{e: e}, nil
}

type eventUpdateInput struct {
	Title       *string
	Description *string
	Location    *string
	StartDate   *graphql.Time
	EndDate     *graphql.Time
	AllDay      *bool
}

func (r *Resolver) UpdateEvent(ctx context.Context, args struct {
	ID    graphql.ID
	Input eventUpdateInput
}) (*eventResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateEvent", err)
	}
	in := args.Input
	e, err := r.svc.Calendar.Update(ctx, u, id, models.EventUpdate{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartDate:   fromOptTime(in.StartDate),
		EndDate:     fromOptTime(in.EndDate),
		AllDay:      in.AllDay,
	})
	if err != nil {
		return nil, r.fail(ctx, "updateEvent", err)
	}
	return &eventResolver{e: e}, nil
}

func (r *Resolver) DeleteEvent(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.remove(ctx, "deleteEvent", args.ID, r.svc.Calendar.Delete)
}

type projectInput struct {
	Name        string
	Description *string
	DueDate     *graphql.Time
}

func (r *Resolver) CreateProject(ctx context.Context, args struct{ Input projectInput }) (*projectResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	p, err := r.svc.Projects.Create(ctx, u, services.ProjectInput{
		Name:        args.Input.Name,
		Description: deref(args.Input.Description),
		DueDate:     fromOptTime(args.Input.DueDate),
	})
	if err != nil {
		return nil, r.fail(ctx, "createProject", err)
	}
	return &projectResolver{root: r, p: p}, nil
}

type projectUpdateInput struct {
	Name        *string
	Description *string
	Status      *string
	DueDate     *graphql.Time
}

func (r *Resolver) UpdateProject(ctx context.Context, args struct {
	ID    graphql.ID
	Input projectUpdateInput
}) (*projectResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateProject", err)
	}
	p, err := r.svc.Projects.Update(ctx, u, id, models.ProjectUpdate{
		Name:        args.Input.Name,
		Description: args.Input.Description,
		Status:      args.Input.Status,
		DueDate:     fromOptTime(args.Input.DueDate),
	})
	if err != nil {
		return nil, r.fail(ctx, "updateProject", err)
	}
	return &projectResolver{root: r, p: p}, nil
}

func (r *Resolver) DeleteProject(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.remove(ctx, "deleteProject", args.ID, r.svc.Projects.Delete)
}

type taskInput struct {
	ProjectID   graphql.ID
	Title       string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *graphql.ID
	DueDate     *graphql.Time
}

func (r *Resolver) CreateTask(ctx context.Context, args struct{ Input taskInput }) (*taskResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	projectID, err := parseID(in.ProjectID)
	if err != nil {
		return nil, r.fail(ctx, "createTask", err)
	}
	assignee, err := optID(in.AssigneeID)
	if err != nil {
		return nil, r.fail(ctx, "createTask", err)
	}
	t, err := r.svc.Projects.CreateTask(ctx, u, services.TaskInput{
		ProjectID:   projectID,
		Title:       in.Title,
		Description: deref(in.Description),
		Status:      deref(in.Status),
		Priority:    deref(in.Priority),
		AssigneeID:  assignee,
		DueDate:     fromOptTime(in.DueDate),
	})
	if err != nil {
		return nil, r.fail(ctx, "createTask", err)
	}
	return &taskResolver{root: r, t: t}, nil
}

type taskUpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *graphql.ID
	DueDate     *graphql.Time
}

func (r *Resolver) UpdateTask(ctx context.Context, args struct {
	ID    graphql.ID
	Input taskUpdateInput
}) (*taskResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateTask", err)
	}
	in := args.Input
	assignee, err := optID(in.AssigneeID)
	if err != nil {
		return nil, r.fail(ctx, "updateTask", err)
	}
	t, err := r.svc.Projects.UpdateTask(ctx, u, id, models.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  assignee,
		DueDate:     fromOptTime(in.DueDate),
	})
	if err != nil {
		return nil, r.fail(ctx, "updateTask", err)
	}
	return &taskResolver{root: r, t: t}, nil
}

func (r *Resolver) DeleteTask(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.remove(ctx, "deleteTask", args.ID, r.svc.Projects.DeleteTask)
}

func (r *Resolver) AcknowledgePolicy(ctx context.Context, args struct{ PolicyID graphql.ID }) (*policyResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(args.PolicyID)
	if err != nil {
		return nil, r.fail(ctx, "acknowledgePolicy", err)
	}
	v, err := r.svc.Policies.Acknowledge(ctx, u.ID, id)
	if err != nil {
		return nil, r.fail(ctx, "acknowledgePolicy", err)
	}
	return &policyResolver{v: *v}, nil
}

type policyInput struct {
	Title       string
	Content     string
	Version     *string
	IsMandatory *bool
}

func (r *Resolver) CreatePolicy(ctx context.Context, args struct{ Input policyInput }) (*policyResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	p, err := r.svc.Policies.Create(ctx, u, services.PolicyInput{
		Title:       in.Title,
		Content:     in.Content,
		Version:     deref(in.Version),
		IsMandatory: in.IsMandatory != nil && *in.IsMandatory,
	})
	if err != nil {
		return nil, r.fail(ctx, "createPolicy", err)
	}
	return &policyResolver{v: services.PolicyView{Policy: *p}}, nil
}

type linkInput struct {
	Title    string
	URL      string
	Category *string
	Icon     *string
}

func (r *Resolver) CreateLink(ctx context.Context, args struct{ Input linkInput }) (*linkResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	l, err := r.svc.Links.Create(ctx, u, services.LinkInput{
		Title:    args.Input.Title,
		URL:      args.Input.URL,
		Category: deref(args.Input.Category),
		Icon:     deref(args.Input.Icon),
	})
	if err != nil {
		return nil, r.fail(ctx, "createLink", err)
	}
	return &linkResolver{l: l}, nil
}

func (r *Resolver) DeleteLink(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.remove(ctx, "deleteLink", args.ID, r.svc.Links.Delete)
}

func (r *Resolver) remove(ctx context.Context, op string, rawID graphql.ID,
	fn func(ctx context.Context, actor *models.User, id uint) error) (bool, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return false, err
	}
	id, err := parseID(rawID)
	if err != nil {
		return false, r.fail(ctx, op, err)
	}
	if err := fn(ctx, u, id); err != nil {
		return false, r.fail(ctx, op, err)
	}
	return true, nil
}

func (r *Resolver) MarkNotificationRead(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return false, err
	}
	id, err := parseID(args.ID)
	if err != nil {
		return false, r.fail(ctx, "markNotificationRead", err)
	}
	if err := r.svc.Notifications.MarkRead(ctx, u.ID, id); err != nil {
		return false, r.fail(ctx, "markNotificationRead", err)
	}
	return true, nil
}

func (r *Resolver) MarkAllNotificationsRead(ctx context.Context) (int32, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.svc.Notifications.MarkAllRead(ctx, u.ID)
	if err != nil {
		return 0, r.fail(ctx, "markAllNotificationsRead", err)
	}
	return int32(n), nil
}

func (r *Resolver) GrantXP(ctx context.Context, args struct {
	UserID graphql.ID
	Amount int32
	Reason *string
}) (*userResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Authz.Require(u, "gamification", "write"); err != nil {
		return nil, r.fail(ctx, "grantXP", err)
	}
	id, err := parseID(args.UserID)
	if err != nil {
		return nil, r.fail(ctx, "grantXP", err)
	}
	change, err := r.svc.Gamification.GrantXP(ctx, id, int(args.Amount), deref(args.Reason))
	if err != nil {
		return nil, r.fail(ctx, "grantXP", err)
	}
	return &userResolver{u: change.User}, nil
}

func (r *Resolver) ResetWeeklyXP(ctx context.Context) (int32, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.svc.Authz.Require(u, "gamification", "write"); err != nil {
		return 0, r.fail(ctx, "resetWeeklyXP", err)
	}
	n, err := r.svc.Gamification.ResetWeeklyXP(ctx)
	if err != nil {
		return 0, r.fail(ctx, "resetWeeklyXP", err)
	}
	return int32(n), nil
}
