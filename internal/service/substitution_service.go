package service

import (
	"context"
	"fmt"

	"github.com/tutorium/tutorium/internal/model"
	"go.uber.org/zap"
)

// SubstitutionService associates an alternate teacher with one lesson
// occurrence without mutating the pattern, the enrollment or the lesson
// record itself.
type SubstitutionService struct {
	subs     SubstitutionStore
	lessons  LessonStore
	users    UserStore
	notifier Notifier
	logger   *zap.Logger
}

func NewSubstitutionService(
	subs SubstitutionStore,
	lessons LessonStore,
	users UserStore,
	notifier Notifier,
	logger *zap.Logger,
) *SubstitutionService {
	return &SubstitutionService{
		subs:     subs,
		lessons:  lessons,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

type SubstitutionInput struct {
	LessonID            int64
	SubstituteTeacherID int64
	Reason              string
	Notes               string
}

// Create records a substitution for the lesson. The lesson must exist, carry
// no prior substitution, and the substitute must be a teacher different from
// the lesson's own.
func (s *SubstitutionService) Create(ctx context.Context, in SubstitutionInput) (*model.Substitution, error) {
	lesson, err := s.lessons.GetByID(ctx, in.LessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, model.NewError(model.ErrNotFound, "lesson %d not found", in.LessonID)
	}

	if err := s.checkSubstitute(ctx, lesson.TeacherID, in.SubstituteTeacherID); err != nil {
		return nil, err
	}

	existing, err := s.subs.GetByLessonID(ctx, in.LessonID)
	if err != nil {
		return nil, fmt.Errorf("get substitution: %w", err)
	}
	if existing != nil {
		return nil, model.NewError(model.ErrDuplicate, "substitution already exists for lesson %d", in.LessonID)
	}

	sub := &model.Substitution{
		LessonID:            in.LessonID,
		OriginalTeacherID:   lesson.TeacherID,
		SubstituteTeacherID: in.SubstituteTeacherID,
		Reason:              in.Reason,
		Notes:               in.Notes,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Substitution created",
		zap.Int64("lesson_id", in.LessonID),
		zap.Int64("original_teacher_id", sub.OriginalTeacherID),
		zap.Int64("substitute_teacher_id", sub.SubstituteTeacherID),
	)
	s.notifier.SubstitutionChanged(ctx, "created", sub)

	return sub, nil
}

// Update mutates the substitute, reason and notes of the lesson's existing
// substitution, re-validating distinctness when the substitute changes.
func (s *SubstitutionService) Update(ctx context.Context, in SubstitutionInput) (*model.Substitution, error) {
	sub, err := s.subs.GetByLessonID(ctx, in.LessonID)
	if err != nil {
		return nil, fmt.Errorf("get substitution: %w", err)
	}
	if sub == nil {
		return nil, model.NewError(model.ErrNotFound, "no substitution for lesson %d", in.LessonID)
	}

	if in.SubstituteTeacherID != sub.SubstituteTeacherID {
		if err := s.checkSubstitute(ctx, sub.OriginalTeacherID, in.SubstituteTeacherID); err != nil {
			return nil, err
		}
		sub.SubstituteTeacherID = in.SubstituteTeacherID
	}
	sub.Reason = in.Reason
	sub.Notes = in.Notes

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Substitution updated",
		zap.Int64("lesson_id", in.LessonID),
		zap.Int64("substitute_teacher_id", sub.SubstituteTeacherID),
	)
	s.notifier.SubstitutionChanged(ctx, "updated", sub)

	return sub, nil
}

// Delete removes the substitution record only, reverting the lesson to its
// original teacher. The lesson record is untouched.
func (s *SubstitutionService) Delete(ctx context.Context, lessonID int64) error {
	sub, err := s.subs.GetByLessonID(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("get substitution: %w", err)
	}
	if sub == nil {
		return model.NewError(model.ErrNotFound, "no substitution for lesson %d", lessonID)
	}

	if err := s.subs.DeleteByLessonID(ctx, lessonID); err != nil {
		return err
	}

	s.logger.Info("Substitution deleted",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("original_teacher_id", sub.OriginalTeacherID),
	)
	s.notifier.SubstitutionChanged(ctx, "deleted", sub)

	return nil
}

// EffectiveTeacher resolves the teacher who actually holds the lesson: the
// substitute when an active substitution exists, the lesson's own teacher
// otherwise. Always computed on read, never stored.
func (s *SubstitutionService) EffectiveTeacher(ctx context.Context, lessonID int64) (int64, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return 0, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return 0, model.NewError(model.ErrNotFound, "lesson %d not found", lessonID)
	}

	sub, err := s.subs.GetByLessonID(ctx, lessonID)
	if err != nil {
		return 0, fmt.Errorf("get substitution: %w", err)
	}
	if sub != nil {
		return sub.SubstituteTeacherID, nil
	}
	return lesson.TeacherID, nil
}

// SubstituteCandidates lists the organization's active teachers who could
// take the lesson, excluding the lesson's own teacher.
func (s *SubstitutionService) SubstituteCandidates(ctx context.Context, lessonID int64) ([]*model.User, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, model.NewError(model.ErrNotFound, "lesson %d not found", lessonID)
	}

	teachers, err := s.users.GetTeachers(ctx, lesson.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("get teachers: %w", err)
	}

	candidates := make([]*model.User, 0, len(teachers))
	for _, teacher := range teachers {
		if teacher.ID == lesson.TeacherID {
			continue
		}
		candidates = append(candidates, teacher)
	}
	return candidates, nil
}

func (s *SubstitutionService) checkSubstitute(ctx context.Context, originalTeacherID, substituteTeacherID int64) error {
	if substituteTeacherID == originalTeacherID {
		return model.NewError(model.ErrValidation, "substitute teacher must differ from the original teacher")
	}

	substitute, err := s.users.GetByID(ctx, substituteTeacherID)
	if err != nil {
		return fmt.Errorf("get substitute teacher: %w", err)
	}
	if substitute == nil {
		return model.NewError(model.ErrNotFound, "teacher %d not found", substituteTeacherID)
	}
	if !substitute.IsTeacher() {
		return model.NewError(model.ErrValidation, "user %d is not a teacher", substituteTeacherID)
	}

	return nil
}
