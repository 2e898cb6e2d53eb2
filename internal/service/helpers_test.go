package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
)

// fakeTx runs fn against the same context; there is no real transaction to
// join in tests.
type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeLessonStore keeps lessons in memory and mirrors the store contract:
// overlap queries only see blocking statuses and honor the exclude id.
type fakeLessonStore struct {
	lessons map[int64]*model.Lesson
	nextID  int64

	createErr error
	lockCalls int
	onLock    func() // runs when a lock is acquired, before the caller proceeds
}

func newFakeLessonStore() *fakeLessonStore {
	return &fakeLessonStore{lessons: make(map[int64]*model.Lesson)}
}

func (f *fakeLessonStore) add(l *model.Lesson) *model.Lesson {
	if l.ID == 0 {
		f.nextID++
		l.ID = f.nextID
	} else if l.ID > f.nextID {
		f.nextID = l.ID
	}
	f.lessons[l.ID] = l
	return l
}

func (f *fakeLessonStore) Create(_ context.Context, lesson *model.Lesson) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.add(lesson)
	return nil
}

func (f *fakeLessonStore) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	return f.lessons[id], nil
}

func (f *fakeLessonStore) GetByIDs(_ context.Context, ids []int64) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, id := range ids {
		if l, ok := f.lessons[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLessonStore) UpdateStatus(_ context.Context, id int64, from, to model.LessonStatus) error {
	l, ok := f.lessons[id]
	if !ok || l.Status != from {
		return model.NewError(model.ErrStateInvalid, "lesson %d is missing or no longer %s", id, from)
	}
	l.Status = to
	return nil
}

func (f *fakeLessonStore) UpdateCancellation(_ context.Context, id int64, cancelledAt time.Time, reason string, feeCents *int64) error {
	l, ok := f.lessons[id]
	if !ok || !model.IsBlocking(l.Status) {
		return model.NewError(model.ErrStateInvalid, "lesson %d is missing or not cancellable", id)
	}
	l.Status = model.LessonStatusCancelled
	l.CancelledAt = &cancelledAt
	l.CancellationReason = reason
	l.CancellationFeeCents = feeCents
	return nil
}

func (f *fakeLessonStore) UpdateSchedule(_ context.Context, id int64, scheduledAt time.Time, durationMinutes int) error {
	l, ok := f.lessons[id]
	if !ok {
		return model.NewError(model.ErrNotFound, "lesson %d not found", id)
	}
	l.ScheduledAt = scheduledAt
	l.DurationMinutes = durationMinutes
	return nil
}

func (f *fakeLessonStore) CountCancellations(_ context.Context, orgID, studentID int64, since time.Time) (int, error) {
	count := 0
	for _, l := range f.lessons {
		if l.OrganizationID != orgID || l.StudentID != studentID {
			continue
		}
		if l.Status != model.LessonStatusCancelled || l.CancelledAt == nil {
			continue
		}
		if l.CancelledAt.Before(since) {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeLessonStore) GetUpcoming(_ context.Context, from, to time.Time) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, l := range f.lessons {
		if !model.IsBlocking(l.Status) {
			continue
		}
		if l.ScheduledAt.Before(from) || !l.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLessonStore) LockScheduleResources(_ context.Context, _, _ int64) error {
	f.lockCalls++
	if f.onLock != nil {
		f.onLock()
	}
	return nil
}

func (f *fakeLessonStore) Delete(_ context.Context, id int64) error {
	l, ok := f.lessons[id]
	if !ok || l.Status == model.LessonStatusCompleted {
		return model.NewError(model.ErrStateInvalid, "lesson %d is completed or missing", id)
	}
	delete(f.lessons, id)
	return nil
}

func (f *fakeLessonStore) FindTeacherOverlaps(_ context.Context, orgID, teacherID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error) {
	return f.findOverlaps(orgID, iv, excludeID, func(l *model.Lesson) bool {
		return l.TeacherID == teacherID
	}), nil
}

func (f *fakeLessonStore) FindStudentOverlaps(_ context.Context, orgID, studentID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error) {
	return f.findOverlaps(orgID, iv, excludeID, func(l *model.Lesson) bool {
		return l.StudentID == studentID
	}), nil
}

func (f *fakeLessonStore) findOverlaps(orgID int64, iv schedule.Interval, excludeID int64, match func(*model.Lesson) bool) []*model.Lesson {
	var out []*model.Lesson
	for _, l := range f.lessons {
		if l.OrganizationID != orgID || !match(l) {
			continue
		}
		if l.ID == excludeID || !model.IsBlocking(l.Status) {
			continue
		}
		if iv.Overlaps(schedule.NewInterval(l.ScheduledAt, l.DurationMinutes)) {
			out = append(out, l)
		}
	}
	return out
}

type fakeUserStore struct {
	users map[int64]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[int64]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) GetTeachers(_ context.Context, orgID int64) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.OrganizationID == orgID && u.Role == model.UserRoleTeacher {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeCourseStore struct {
	courses map[int64]*model.Course
}

func newFakeCourseStore(courses ...*model.Course) *fakeCourseStore {
	f := &fakeCourseStore{courses: make(map[int64]*model.Course)}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return f
}

func (f *fakeCourseStore) GetByID(_ context.Context, id int64) (*model.Course, error) {
	return f.courses[id], nil
}

type fakePolicyStore struct {
	policy model.CancellationPolicy
}

func (f *fakePolicyStore) GetByOrganization(_ context.Context, orgID int64) (model.CancellationPolicy, error) {
	if f.policy.OrganizationID == 0 {
		return model.DefaultCancellationPolicy(orgID), nil
	}
	return f.policy, nil
}

func (f *fakePolicyStore) Upsert(_ context.Context, policy model.CancellationPolicy) error {
	f.policy = policy
	return nil
}

type fakePatternStore struct {
	patterns map[int64]*model.RecurringPattern
	nextID   int64
}

func newFakePatternStore() *fakePatternStore {
	return &fakePatternStore{patterns: make(map[int64]*model.RecurringPattern)}
}

func (f *fakePatternStore) Create(_ context.Context, p *model.RecurringPattern) error {
	f.nextID++
	p.ID = f.nextID
	f.patterns[p.ID] = p
	return nil
}

func (f *fakePatternStore) GetByID(_ context.Context, id int64) (*model.RecurringPattern, error) {
	return f.patterns[id], nil
}

func (f *fakePatternStore) GetByTeacherID(_ context.Context, teacherID int64) ([]*model.RecurringPattern, error) {
	var out []*model.RecurringPattern
	for _, p := range f.patterns {
		if p.TeacherID == teacherID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatternStore) Deactivate(_ context.Context, id int64) error {
	p, ok := f.patterns[id]
	if !ok {
		return model.NewError(model.ErrNotFound, "recurring pattern %d not found", id)
	}
	p.IsActive = false
	return nil
}

type fakeSubStore struct {
	subs   map[int64]*model.Substitution // keyed by lesson id
	nextID int64
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{subs: make(map[int64]*model.Substitution)}
}

func (f *fakeSubStore) Create(_ context.Context, sub *model.Substitution) error {
	if _, ok := f.subs[sub.LessonID]; ok {
		return model.NewError(model.ErrDuplicate, "substitution already exists for lesson %d", sub.LessonID)
	}
	f.nextID++
	sub.ID = f.nextID
	f.subs[sub.LessonID] = sub
	return nil
}

func (f *fakeSubStore) GetByLessonID(_ context.Context, lessonID int64) (*model.Substitution, error) {
	return f.subs[lessonID], nil
}

func (f *fakeSubStore) Update(_ context.Context, sub *model.Substitution) error {
	if _, ok := f.subs[sub.LessonID]; !ok {
		return model.NewError(model.ErrNotFound, "no substitution for lesson %d", sub.LessonID)
	}
	f.subs[sub.LessonID] = sub
	return nil
}

func (f *fakeSubStore) DeleteByLessonID(_ context.Context, lessonID int64) error {
	delete(f.subs, lessonID)
	return nil
}

type notifierEvent struct {
	kind     string
	lessonID int64
}

type fakeNotifier struct {
	events []notifierEvent
}

func (f *fakeNotifier) LessonCancelled(_ context.Context, lesson *model.Lesson, _ schedule.FeeResult) {
	f.events = append(f.events, notifierEvent{kind: "cancelled", lessonID: lesson.ID})
}

func (f *fakeNotifier) LessonReminder(_ context.Context, lesson *model.Lesson) {
	f.events = append(f.events, notifierEvent{kind: "reminder", lessonID: lesson.ID})
}

func (f *fakeNotifier) SubstitutionChanged(_ context.Context, event string, sub *model.Substitution) {
	f.events = append(f.events, notifierEvent{kind: "substitution_" + event, lessonID: sub.LessonID})
}

type charge struct {
	lessonID    int64
	amountCents int64
	currency    string
}

type fakeBilling struct {
	charges []charge
	err     error
}

func (f *fakeBilling) ChargeCancellationFee(_ context.Context, lessonID, amountCents int64, currency string) error {
	if f.err != nil {
		return f.err
	}
	f.charges = append(f.charges, charge{lessonID: lessonID, amountCents: amountCents, currency: currency})
	return nil
}

// testEnv wires a full service graph over the in-memory fakes.
type testEnv struct {
	lessons  *fakeLessonStore
	users    *fakeUserStore
	courses  *fakeCourseStore
	policies *fakePolicyStore
	patterns *fakePatternStore
	subs     *fakeSubStore
	notifier *fakeNotifier
	billing  *fakeBilling

	lessonSvc    *LessonService
	recurringSvc *RecurringService
	subSvc       *SubstitutionService
	bulkSvc      *BulkService
	policySvc    *PolicyService
}

const (
	testOrgID     = int64(1)
	testTeacherID = int64(10)
	testStudentID = int64(20)
)

func newTestEnv() *testEnv {
	logger := zap.NewNop()

	env := &testEnv{
		lessons: newFakeLessonStore(),
		users: newFakeUserStore(
			&model.User{ID: testTeacherID, OrganizationID: testOrgID, Role: model.UserRoleTeacher},
			&model.User{ID: testStudentID, OrganizationID: testOrgID, Role: model.UserRoleStudent},
		),
		courses:  newFakeCourseStore(),
		policies: &fakePolicyStore{},
		patterns: newFakePatternStore(),
		subs:     newFakeSubStore(),
		notifier: &fakeNotifier{},
		billing:  &fakeBilling{},
	}

	conflicts := NewConflictDetector(env.lessons, logger)
	env.lessonSvc = NewLessonService(fakeTx{}, env.lessons, env.users, env.courses, env.policies, conflicts, env.notifier, env.billing, logger)
	env.recurringSvc = NewRecurringService(fakeTx{}, env.lessons, env.users, env.courses, env.patterns, conflicts, logger)
	env.subSvc = NewSubstitutionService(env.subs, env.lessons, env.users, env.notifier, logger)
	env.bulkSvc = NewBulkService(env.lessonSvc, env.lessons, logger)
	env.policySvc = NewPolicyService(env.policies, logger)

	return env
}

func (e *testEnv) addLesson(status model.LessonStatus, scheduledAt time.Time) *model.Lesson {
	return e.lessons.add(&model.Lesson{
		OrganizationID:  testOrgID,
		TeacherID:       testTeacherID,
		StudentID:       testStudentID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: 60,
		Status:          status,
		PriceCents:      10000,
		Currency:        "USD",
	})
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
