// Package memstore is a map-backed store.Store used by tests and by the
// server's "memory" database driver for local development.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"maternar/models"
	"maternar/store"
)

// Store keeps every table in maps guarded by one mutex. Transactions are
// serialized; a failed one restores the tables as they were when it began,
// discarding writes made outside it in the meantime as well.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	nextID uint

	users         map[uint]models.User
	sessions      map[string]models.Session
	activities    []models.ActivityLog
	achievements  []models.Achievement
	userAchs      []models.UserAchievement
	courses       map[uint]models.Course
	enrollments   map[uint]models.Enrollment
	channels      map[uint]models.Channel
	members       map[uint]map[uint]time.Time
	messages      []models.Message
	events        map[uint]models.Event
	projects      map[uint]models.Project
	tasks         map[uint]models.Task
	policies      map[uint]models.Policy
	acks          []models.PolicyAcknowledgment
	links         map[uint]models.Link
	notifications map[uint]models.Notification

	// Err, when set, is returned by every write. Tests use it to simulate a
	// failing database.
	Err error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         make(map[uint]models.User),
		sessions:      make(map[string]models.Session),
		courses:       make(map[uint]models.Course),
		enrollments:   make(map[uint]models.Enrollment),
		channels:      make(map[uint]models.Channel),
		members:       make(map[uint]map[uint]time.Time),
		events:        make(map[uint]models.Event),
		projects:      make(map[uint]models.Project),
		tasks:         make(map[uint]models.Task),
		policies:      make(map[uint]models.Policy),
		links:         make(map[uint]models.Link),
		notifications: make(map[uint]models.Notification),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type tables struct {
	nextID        uint
	users         map[uint]models.User
	sessions      map[string]models.Session
	activities    []models.ActivityLog
	achievements  []models.Achievement
	userAchs      []models.UserAchievement
	courses       map[uint]models.Course
	enrollments   map[uint]models.Enrollment
	channels      map[uint]models.Channel
	members       map[uint]map[uint]time.Time
	messages      []models.Message
	events        map[uint]models.Event
	projects      map[uint]models.Project
	tasks         map[uint]models.Task
	policies      map[uint]models.Policy
	acks          []models.PolicyAcknowledgment
	links         map[uint]models.Link
	notifications map[uint]models.Notification
}

// snapshot copies every table. Rows are values, so a shallow copy of each
// map and slice is enough.
func (s *Store) snapshot() tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make(map[uint]map[uint]time.Time, len(s.members))
	for ch, m := range s.members {
		members[ch] = maps.Clone(m)
	}
	return tables{
		nextID:        s.nextID,
		users:         maps.Clone(s.users),
		sessions:      maps.Clone(s.sessions),
		activities:    slices.Clone(s.activities),
		achievements:  slices.Clone(s.achievements),
		userAchs:      slices.Clone(s.userAchs),
		courses:       maps.Clone(s.courses),
		enrollments:   maps.Clone(s.enrollments),
		channels:      maps.Clone(s.channels),
		members:       members,
		messages:      slices.Clone(s.messages),
		events:        maps.Clone(s.events),
		projects:      maps.Clone(s.projects),
		tasks:         maps.Clone(s.tasks),
		policies:      maps.Clone(s.policies),
		acks:          slices.Clone(s.acks),
		links:         maps.Clone(s.links),
		notifications: maps.Clone(s.notifications),
	}
}

func (s *Store) restore(t tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = t.nextID
	s.users = t.users
	s.sessions = t.sessions
	s.activities = t.activities
	s.achievements = t.achievements
	s.userAchs = t.userAchs
	s.courses = t.courses
	s.enrollments = t.enrollments
	s.channels = t.channels
	s.members = t.members
	s.messages = t.messages
	s.events = t.events
	s.projects = t.projects
	s.tasks = t.tasks
	s.policies = t.policies
	s.acks = t.acks
	s.links = t.links
	s.notifications = t.notifications
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return store.ErrDuplicate
		}
	}
	now := time.Now()
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) LockUser(ctx context.Context, id uint) (*models.User, error) {
	return s.GetUserByID(ctx, id)
}

func (s *Store) TopUsers(ctx context.Context, metric string, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	score := func(u models.User) int {
		if metric == models.MetricWeekly {
			return u.WeeklyXP
		}
		return u.TotalXP
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := score(out[i]), score(out[j])
		if a != b {
			return a > b
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ResetWeeklyXP(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, u := range s.users {
		if u.WeeklyXP != 0 {
			u.WeeklyXP = 0
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	sess.CreatedAt = time.Now()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Activities

func (s *Store) AppendActivity(ctx context.Context, a *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.activities = append(s.activities, *a)
	return nil
}

func (s *Store) ListActivities(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ActivityLog
	for i := len(s.activities) - 1; i >= 0; i-- {
		if s.activities[i].UserID == userID {
			out = append(out, s.activities[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Achievements

// SeedAchievement adds an achievement definition.
func (s *Store) SeedAchievement(a models.Achievement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.achievements = append(s.achievements, a)
}

func (s *Store) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Achievement(nil), s.achievements...), nil
}

func (s *Store) ListUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UserAchievement
	for _, ua := range s.userAchs {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	return out, nil
}

func (s *Store) AwardAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, existing := range s.userAchs {
		if existing.UserID == ua.UserID && existing.AchievementID == ua.AchievementID {
			return false, nil
		}
	}
	ua.ID = s.id()
	if ua.EarnedAt.IsZero() {
		ua.EarnedAt = time.Now()
	}
	s.userAchs = append(s.userAchs, *ua)
	return true, nil
}

// Courses

func (s *Store) ListCourses(ctx context.Context, activeOnly bool) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Course
	for _, c := range s.courses {
		if !activeOnly || c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCourse(ctx context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	s.courses[c.ID] = *c
	return nil
}

func (s *Store) GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveEnrollment(ctx context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e.ID == 0 {
		e.ID = s.id()
	}
	s.enrollments[e.ID] = *e
	return nil
}

func (s *Store) ListEnrollments(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountCourses(ctx context.Context, activeOnly bool) (int64, error) {
	courses, _ := s.ListCourses(ctx, activeOnly)
	return int64(len(courses)), nil
}

func (s *Store) CountCompletedEnrollments(ctx context.Context, userID uint) (int64, error) {
	enrollments, _ := s.ListEnrollments(ctx, userID)
	var n int64
	for _, e := range enrollments {
		if e.Completed() {
			n++
		}
	}
	return n, nil
}

// Chat

func (s *Store) ListChannelsForUser(ctx context.Context, userID uint) ([]models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Channel
	for id, ch := range s.channels {
		if _, ok := s.members[id][userID]; ok {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetChannel(ctx context.Context, id uint) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ch, nil
}

func (s *Store) CreateChannel(ctx context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	ch.ID = s.id()
	ch.CreatedAt = time.Now()
	s.channels[ch.ID] = *ch
	return nil
}

func (s *Store) AddChannelMember(ctx context.Context, m *models.ChannelMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.members[m.ChannelID] == nil {
		s.members[m.ChannelID] = make(map[uint]time.Time)
	}
	if _, ok := s.members[m.ChannelID][m.UserID]; ok {
		return nil
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	s.members[m.ChannelID][m.UserID] = m.JoinedAt
	return nil
}

func (s *Store) IsChannelMember(ctx context.Context, channelID, userID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[channelID][userID]
	return ok, nil
}

func (s *Store) ListChannelMembers(ctx context.Context, channelID uint) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uint
	for id := range s.members[channelID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) ListMessages(ctx context.Context, channelID uint, limit, offset int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	skipped := 0
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.ChannelID != channelID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	m.ID = s.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *m)
	return nil
}

// Calendar

func (s *Store) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, e := range s.events {
		if e.EndDate.Before(start) || e.StartDate.After(end) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	e.ID = s.id()
	e.CreatedAt, e.UpdatedAt = time.Now(), time.Now()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.events[e.ID]; !ok {
		return store.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Store) CountEventsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	events, _ := s.ListEvents(ctx, start, end)
	return int64(len(events)), nil
}

// Projects

func (s *Store) ListProjects(ctx context.Context, userID uint) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Project
	for _, p := range s.projects {
		if userID == 0 || p.OwnerID == userID || s.assignedIn(p.ID, userID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) assignedIn(projectID, userID uint) bool {
	for _, t := range s.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			return true
		}
	}
	return false
}

func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.projects[p.ID]; !ok {
		return store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.projects, id)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, projectID uint) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	t.ID = s.id()
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.tasks[t.ID]; !ok {
		return store.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) CountOpenTasks(ctx context.Context, assigneeID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tasks {
		if t.Status == models.TaskDone {
			continue
		}
		if assigneeID == 0 || (t.AssigneeID != nil && *t.AssigneeID == assigneeID) {
			n++
		}
	}
	return n, nil
}

// Policies

func (s *Store) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPolicy(ctx context.Context, id uint) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreatePolicy(ctx context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.policies[p.ID] = *p
	return nil
}

func (s *Store) AcknowledgePolicy(ctx context.Context, ack *models.PolicyAcknowledgment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, a := range s.acks {
		if a.PolicyID == ack.PolicyID && a.UserID == ack.UserID {
			*ack = a
			return false, nil
		}
	}
	ack.ID = s.id()
	if ack.AcknowledgedAt.IsZero() {
		ack.AcknowledgedAt = time.Now()
	}
	s.acks = append(s.acks, *ack)
	return true, nil
}

func (s *Store) ListAcknowledgments(ctx context.Context, userID uint) ([]models.PolicyAcknowledgment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PolicyAcknowledgment
	for _, a := range s.acks {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) CountPendingPolicies(ctx context.Context, userID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acked := make(map[uint]bool)
	for _, a := range s.acks {
		if a.UserID == userID {
			acked[a.PolicyID] = true
		}
	}
	var n int64
	for id, p := range s.policies {
		if p.IsMandatory && !acked[id] {
			n++
		}
	}
	return n, nil
}

// Links

func (s *Store) ListLinks(ctx context.Context) ([]models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateLink(ctx context.Context, l *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	l.ID = s.id()
	l.CreatedAt = time.Now()
	s.links[l.ID] = *l
	return nil
}

func (s *Store) DeleteLink(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.links, id)
	return nil
}

// Notifications

func (s *Store) ListNotifications(ctx context.Context, userID uint, limit int, unreadOnly bool) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead()) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	n.ID = s.id()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		s.notifications[id] = n
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var count int64
	for id, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &at
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	list, _ := s.ListNotifications(ctx, userID, 0, true)
	return int64(len(list)), nil
}
