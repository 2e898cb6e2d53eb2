package service

import (
	"context"
	"fmt"

	"github.com/tutorium/tutorium/internal/model"
	"go.uber.org/zap"
)

// BulkError records one rejected item of a bulk update.
type BulkError struct {
	LessonID int64  `json:"lesson_id"`
	Title    string `json:"title"`
	Error    string `json:"error"`
}

// BulkResult is the aggregate outcome of a bulk status update.
type BulkResult struct {
	Updated int         `json:"updated"`
	Failed  int         `json:"failed"`
	Errors  []BulkError `json:"errors"`
}

// BulkService applies one target status across many lessons, validating each
// transition independently through the lesson lifecycle. A single failure
// never aborts the batch.
type BulkService struct {
	lessonSvc *LessonService
	lessons   LessonStore
	logger    *zap.Logger
}

func NewBulkService(lessonSvc *LessonService, lessons LessonStore, logger *zap.Logger) *BulkService {
	return &BulkService{lessonSvc: lessonSvc, lessons: lessons, logger: logger}
}

// UpdateStatus moves each lesson to the target status. Cancellations go
// through the full cancel path (limit gate and fee) per item.
func (s *BulkService) UpdateStatus(ctx context.Context, ids []int64, target model.LessonStatus, reason string) (*BulkResult, error) {
	switch target {
	case model.LessonStatusScheduled, model.LessonStatusConfirmed, model.LessonStatusCompleted,
		model.LessonStatusCancelled, model.LessonStatusNoShow:
	default:
		return nil, model.NewError(model.ErrValidation, "unsupported bulk target status %q", target)
	}
	if len(ids) == 0 {
		return nil, model.NewError(model.ErrValidation, "no lesson ids supplied")
	}

	// One batch fetch up front: missing ids fail fast and the rest keep
	// their titles for error reporting without per-item lookups.
	lessons, err := s.lessons.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get lessons: %w", err)
	}
	byID := make(map[int64]*model.Lesson, len(lessons))
	for _, lesson := range lessons {
		byID[lesson.ID] = lesson
	}

	result := &BulkResult{}
	for _, id := range ids {
		lesson, ok := byID[id]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{
				LessonID: id,
				Title:    fmt.Sprintf("Lesson %d", id),
				Error:    fmt.Sprintf("lesson %d not found", id),
			})
			continue
		}
		if err := s.applyOne(ctx, id, target, reason); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{
				LessonID: id,
				Title:    lessonTitle(lesson),
				Error:    err.Error(),
			})
			continue
		}
		result.Updated++
	}

	s.logger.Info("Bulk status update finished",
		zap.String("target", string(target)),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func (s *BulkService) applyOne(ctx context.Context, id int64, target model.LessonStatus, reason string) error {
	var err error
	switch target {
	case model.LessonStatusScheduled:
		_, err = s.lessonSvc.Approve(ctx, id)
	case model.LessonStatusConfirmed:
		_, err = s.lessonSvc.Confirm(ctx, id)
	case model.LessonStatusCompleted:
		_, err = s.lessonSvc.Complete(ctx, id)
	case model.LessonStatusCancelled:
		_, _, err = s.lessonSvc.Cancel(ctx, id, reason)
	case model.LessonStatusNoShow:
		_, err = s.lessonSvc.MarkNoShow(ctx, id)
	}
	return err
}

func lessonTitle(lesson *model.Lesson) string {
	return fmt.Sprintf("Lesson %d at %s", lesson.ID, lesson.ScheduledAt.Format("2006-01-02 15:04"))
}
