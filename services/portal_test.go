package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternar/internal/events"
	"maternar/memstore"
	"maternar/models"
	"maternar/store"
)

func strPtr(s string) *string { return &s }

func TestCourseCompletionGrantsXPOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "admin@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)

	_, err := env.svc.Courses.Create(ctx, u, CourseInput{Title: "LGPD"})
	assert.ErrorIs(t, err, ErrForbidden)

	c, err := env.svc.Courses.Create(ctx, admin, CourseInput{Title: "LGPD", XPReward: 150})
	require.NoError(t, err)

	e, err := env.svc.Courses.Enroll(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, e.Status)

	again, err := env.svc.Courses.Enroll(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID)

	e, err = env.svc.Courses.UpdateProgress(ctx, u.ID, c.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, e.Progress)

	for i := 0; i < 2; i++ {
		e, err = env.svc.Courses.Complete(ctx, u.ID, c.ID)
		require.NoError(t, err)
	}
	assert.True(t, e.Completed())
	assert.Equal(t, 100, e.Progress)
	assert.Equal(t, 150, env.reload(t, u.ID).TotalXP)

	views, err := env.svc.Courses.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Enrollment)
	assert.True(t, views[0].Enrollment.Completed())

	_, err = env.svc.Courses.Enroll(ctx, u.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.Courses.UpdateProgress(ctx, u.ID, c.ID, 120)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCourseCompletionRetriesAfterFailedGrant(t *testing.T) {
	var flaky *flakyStore
	env := newTestEnvWith(t, func(st *memstore.Store) store.Store {
		flaky = &flakyStore{Store: st}
		return flaky
	})
	ctx := context.Background()
	admin := env.addUser(t, "admin@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)
	c, err := env.svc.Courses.Create(ctx, admin, CourseInput{Title: "LGPD", XPReward: 150})
	require.NoError(t, err)

	flaky.failActivity = true
	_, err = env.svc.Courses.Complete(ctx, u.ID, c.ID)
	assert.ErrorIs(t, err, errActivityDown)
	_, err = env.store.GetEnrollment(ctx, u.ID, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "completion must roll back with the grant")
	assert.Zero(t, env.reload(t, u.ID).TotalXP)

	flaky.failActivity = false
	e, err := env.svc.Courses.Complete(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, e.Completed())
	assert.Equal(t, 150, env.reload(t, u.ID).TotalXP)

	// in-progress enrollments are kept when the grant fails
	c2, err := env.svc.Courses.Create(ctx, admin, CourseInput{Title: "Ergonomia", XPReward: 40})
	require.NoError(t, err)
	_, err = env.svc.Courses.UpdateProgress(ctx, u.ID, c2.ID, 60)
	require.NoError(t, err)
	flaky.failActivity = true
	_, err = env.svc.Courses.Complete(ctx, u.ID, c2.ID)
	require.Error(t, err)
	kept, err := env.store.GetEnrollment(ctx, u.ID, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, kept.Status)
	assert.Equal(t, 60, kept.Progress)
}

func TestCourseCompletionConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "admin@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "maria@maternar.com", models.RoleUser)
	c, err := env.svc.Courses.Create(ctx, admin, CourseInput{Title: "LGPD", XPReward: 150})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Courses.Complete(ctx, u.ID, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 150, env.reload(t, u.ID).TotalXP)
}

func TestChatMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.addUser(t, "ana@maternar.com", models.RoleUser)
	bia := env.addUser(t, "bia@maternar.com", models.RoleUser)
	caio := env.addUser(t, "caio@maternar.com", models.RoleUser)

	private, err := env.svc.Chat.CreateChannel(ctx, ana.ID, ChannelInput{Name: "rh", Type: models.ChannelPrivate, MemberIDs: []uint{bia.ID}})
	require.NoError(t, err)

	_, err = env.svc.Chat.Send(ctx, caio.ID, private.ID, "hello")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Chat.Messages(ctx, caio.ID, private.ID, 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Chat.Join(ctx, caio.ID, private.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Chat.Send(ctx, bia.ID, private.ID, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	for _, text := range []string{"first", "second", "third"} {
		_, err := env.svc.Chat.Send(ctx, bia.ID, private.ID, text)
		require.NoError(t, err)
	}
	msgs, err := env.svc.Chat.Messages(ctx, ana.ID, private.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Content)

	public, err := env.svc.Chat.CreateChannel(ctx, ana.ID, ChannelInput{Name: "geral"})
	require.NoError(t, err)
	assert.Equal(t, models.ChannelPublic, public.Type)
	_, err = env.svc.Chat.Join(ctx, caio.ID, public.ID)
	require.NoError(t, err)
	channels, err := env.svc.Chat.Channels(ctx, caio.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, public.ID, channels[0].ID)
}

func TestChatSendPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ana := env.addUser(t, "ana@maternar.com", models.RoleUser)
	ch, err := env.svc.Chat.CreateChannel(ctx, ana.ID, ChannelInput{Name: "geral"})
	require.NoError(t, err)

	sub, err := env.bus.Subscribe(ctx, events.MessageTopic(ch.ID))
	require.NoError(t, err)
	_, err = env.svc.Chat.Send(ctx, ana.ID, ch.ID, "hi all")
	require.NoError(t, err)

	select {
	case data := <-sub:
		var m models.Message
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, "hi all", m.Content)
	case <-time.After(time.Second):
		t.Fatal("message not published")
	}
}

func TestCalendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.addUser(t, "ana@maternar.com", models.RoleUser)
	bia := env.addUser(t, "bia@maternar.com", models.RoleUser)
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)

	start := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	_, err := env.svc.Calendar.Create(ctx, ana, EventInput{Title: "Retro", StartDate: start, EndDate: start.Add(-time.Hour)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate must not be before startDate", verr.Message)

	ev, err := env.svc.Calendar.Create(ctx, ana, EventInput{Title: "Retro", StartDate: start, EndDate: start.Add(time.Hour)})
	require.NoError(t, err)

	_, err = env.svc.Calendar.Update(ctx, bia, ev.ID, models.EventUpdate{Title: strPtr("Mine")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := env.svc.Calendar.Update(ctx, admin, ev.ID, models.EventUpdate{Location: strPtr("Sala 2")})
	require.NoError(t, err)
	assert.Equal(t, "Sala 2", updated.Location)

	list, err := env.svc.Calendar.Events(ctx, start.Add(-24*time.Hour), start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.svc.Calendar.Events(ctx, start, start.Add(-time.Minute))
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, env.svc.Calendar.Delete(ctx, ana, ev.ID))
	assert.ErrorIs(t, env.svc.Calendar.Delete(ctx, ana, ev.ID), ErrNotFound)
}

func TestProjectsAndTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	owner := env.addUser(t, "ana@maternar.com", models.RoleUser)
	dev := env.addUser(t, "bia@maternar.com", models.RoleUser)
	outsider := env.addUser(t, "caio@maternar.com", models.RoleUser)

	p, err := env.svc.Projects.Create(ctx, owner, ProjectInput{Name: "Intranet"})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)

	sub, err := env.bus.Subscribe(ctx, events.TaskTopic(p.ID))
	require.NoError(t, err)

	task, err := env.svc.Projects.CreateTask(ctx, owner, TaskInput{ProjectID: p.ID, Title: "Login page", AssigneeID: &dev.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	select {
	case data := <-sub:
		var ev models.TaskEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, models.TaskCreated, ev.Action)
		assert.Equal(t, task.ID, ev.Task.ID)
	case <-time.After(time.Second):
		t.Fatal("task event not published")
	}

	notes, err := env.svc.Notifications.List(ctx, dev.ID, 10, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTask, notes[0].Type)

	_, err = env.svc.Projects.CreateTask(ctx, dev, TaskInput{ProjectID: p.ID, Title: "Sneaky"})
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := env.svc.Projects.UpdateTask(ctx, dev, task.ID, models.TaskUpdate{Status: strPtr(models.TaskDone)})
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, done.Status)

	_, err = env.svc.Projects.UpdateTask(ctx, outsider, task.ID, models.TaskUpdate{Status: strPtr(models.TaskTodo)})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Projects.UpdateTask(ctx, owner, task.ID, models.TaskUpdate{Status: strPtr("blocked")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	mine, err := env.svc.Projects.List(ctx, dev)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := env.svc.Projects.List(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, theirs)
	_, err = env.svc.Projects.Tasks(ctx, outsider, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, env.svc.Projects.Delete(ctx, dev, p.ID), ErrForbidden)
	require.NoError(t, env.svc.Projects.Delete(ctx, owner, p.ID))
	_, err = env.store.GetTask(ctx, task.ID)
	assert.Error(t, err)
}

func TestPolicyAcknowledgment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)

	_, err := env.svc.Policies.Create(ctx, u, PolicyInput{Title: "Conduta", Content: "..."})
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := env.svc.Policies.Create(ctx, admin, PolicyInput{Title: "Conduta", Content: "Seja gentil.", IsMandatory: true})
	require.NoError(t, err)
	assert.Equal(t, "1.0", p.Version)

	pending, err := env.store.CountPendingPolicies(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	for i := 0; i < 2; i++ {
		v, err := env.svc.Policies.Acknowledge(ctx, u.ID, p.ID)
		require.NoError(t, err)
		require.NotNil(t, v.AcknowledgedAt)
	}
	assert.Equal(t, 50, env.reload(t, u.ID).TotalXP)

	views, err := env.svc.Policies.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.NotNil(t, views[0].AcknowledgedAt)

	_, err = env.svc.Policies.Acknowledge(ctx, u.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPolicyAcknowledgmentRetriesAfterFailedGrant(t *testing.T) {
	var flaky *flakyStore
	env := newTestEnvWith(t, func(st *memstore.Store) store.Store {
		flaky = &flakyStore{Store: st}
		return flaky
	})
	ctx := context.Background()
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)
	p, err := env.svc.Policies.Create(ctx, admin, PolicyInput{Title: "Conduta", Content: "Seja gentil."})
	require.NoError(t, err)

	flaky.failActivity = true
	_, err = env.svc.Policies.Acknowledge(ctx, u.ID, p.ID)
	assert.ErrorIs(t, err, errActivityDown)
	acks, err := env.store.ListAcknowledgments(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, acks)

	flaky.failActivity = false
	v, err := env.svc.Policies.Acknowledge(ctx, u.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, v.AcknowledgedAt)
	assert.Equal(t, 50, env.reload(t, u.ID).TotalXP)
}

func TestLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)

	_, err := env.svc.Links.Create(ctx, admin, LinkInput{Title: "RH", URL: "not a url"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	l, err := env.svc.Links.Create(ctx, admin, LinkInput{Title: "RH", URL: "https://rh.maternar.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.Links.Delete(ctx, u, l.ID), ErrForbidden)
	require.NoError(t, env.svc.Links.Delete(ctx, admin, l.ID))
	assert.ErrorIs(t, env.svc.Links.Delete(ctx, admin, l.ID), ErrNotFound)
}

func TestNotificationsReadState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)
	other := env.addUser(t, "bia@maternar.com", models.RoleUser)

	var ids []uint
	for _, title := range []string{"one", "two", "three"} {
		n := &models.Notification{UserID: u.ID, Title: title}
		require.NoError(t, env.svc.Notifications.Notify(ctx, n))
		ids = append(ids, n.ID)
	}

	assert.ErrorIs(t, env.svc.Notifications.MarkRead(ctx, other.ID, ids[0]), ErrNotFound)
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, u.ID, ids[0]))

	n, err := env.svc.Notifications.CountUnread(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	marked, err := env.svc.Notifications.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	unread, err := env.svc.Notifications.List(ctx, u.ID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestUserProfileAndDeactivation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)

	updated, err := env.svc.Users.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Department: strPtr("  RH "), FirstName: strPtr("Ana")})
	require.NoError(t, err)
	assert.Equal(t, "RH", updated.Department)

	_, err = env.svc.Users.UpdateProfile(ctx, u.ID, models.ProfileUpdate{FirstName: strPtr("  ")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	payload, err := env.svc.Auth.IssueSession(ctx, u, ClientMeta{})
	require.NoError(t, err)

	_, err = env.svc.Users.SetActive(ctx, u, admin.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Users.SetActive(ctx, admin, u.ID, false)
	require.NoError(t, err)
	_, _, err = env.svc.Auth.ValidateToken(ctx, payload.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDashboardMetrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "root@maternar.com", models.RoleAdmin)
	u := env.addUser(t, "ana@maternar.com", models.RoleUser)

	_, err := env.svc.Courses.Create(ctx, admin, CourseInput{Title: "Onboarding"})
	require.NoError(t, err)
	_, err = env.svc.Policies.Create(ctx, admin, PolicyInput{Title: "Conduta", Content: "..."})
	require.NoError(t, err)
	_, err = env.svc.Calendar.Create(ctx, admin, EventInput{Title: "All hands", StartDate: env.now.Add(time.Hour), EndDate: env.now.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, err = env.svc.Gamification.GrantXP(ctx, u.ID, 1500, "")
	require.NoError(t, err)

	m, err := env.svc.Dashboard.Metrics(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.TotalUsers)
	assert.EqualValues(t, 1, m.ActiveCourses)
	assert.EqualValues(t, 1, m.UpcomingEvents)
	assert.EqualValues(t, 1, m.PendingPolicies)
	assert.EqualValues(t, 1, m.UnreadNotifications, "level-up notification")
	assert.Equal(t, 2, m.Level)
	assert.Equal(t, 1500, m.TotalXP)

	_, err = env.svc.Dashboard.Metrics(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		msg  string
	}{
		{NewValidationError("title is required"), KindValidation, "title is required"},
		{ErrInvalidCredentials, KindUnauthenticated, "invalid email or password"},
		{ErrForbidden, KindForbidden, "access denied"},
		{ErrNotFound, KindNotFound, "not found"},
		{ErrTooManyAttempts, KindRateLimited, ErrTooManyAttempts.Error()},
		{assert.AnError, KindInternal, "something went wrong, please try again"},
	}
	for _, tt := range tests {
		kind, msg := Classify(tt.err)
		assert.Equal(t, tt.kind, kind)
		assert.Equal(t, tt.msg, msg)
	}
}
