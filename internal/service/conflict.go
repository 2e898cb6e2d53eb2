package service

import (
	"context"

	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/schedule"
	"go.uber.org/zap"
)

// OverlapFinder is the persistence surface the conflict detector queries.
// Implementations must only return lessons in a blocking status
// (model.BlockingStatuses) and must honor the exclude id.
type OverlapFinder interface {
	FindTeacherOverlaps(ctx context.Context, orgID, teacherID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error)
	FindStudentOverlaps(ctx context.Context, orgID, studentID int64, iv schedule.Interval, excludeID int64) ([]*model.Lesson, error)
}

// ConflictReport separates teacher and student collisions: they are distinct
// violations with distinct remediation.
type ConflictReport struct {
	TeacherConflicts []*model.Lesson `json:"teacher_conflicts"`
	StudentConflicts []*model.Lesson `json:"student_conflicts"`
}

func (r *ConflictReport) HasConflicts() bool {
	return len(r.TeacherConflicts) > 0 || len(r.StudentConflicts) > 0
}

// ConflictDetector finds double-bookings for a teacher and a student over a
// candidate interval.
type ConflictDetector struct {
	lessons OverlapFinder
	logger  *zap.Logger
}

func NewConflictDetector(lessons OverlapFinder, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{lessons: lessons, logger: logger}
}

// Check reports every blocking lesson of the teacher or the student whose
// occupied interval intersects iv. excludeLessonID removes the lesson being
// edited from its own check; pass 0 when creating.
func (d *ConflictDetector) Check(ctx context.Context, orgID, teacherID, studentID int64, iv schedule.Interval, excludeLessonID int64) (*ConflictReport, error) {
	teacherConflicts, err := d.lessons.FindTeacherOverlaps(ctx, orgID, teacherID, iv, excludeLessonID)
	if err != nil {
		return nil, err
	}

	studentConflicts, err := d.lessons.FindStudentOverlaps(ctx, orgID, studentID, iv, excludeLessonID)
	if err != nil {
		return nil, err
	}

	report := &ConflictReport{
		TeacherConflicts: teacherConflicts,
		StudentConflicts: studentConflicts,
	}

	if report.HasConflicts() {
		d.logger.Debug("Scheduling conflict detected",
			zap.Int64("teacher_id", teacherID),
			zap.Int64("student_id", studentID),
			zap.Time("interval_start", iv.Start),
			zap.Time("interval_end", iv.End),
			zap.Int("teacher_conflicts", len(report.TeacherConflicts)),
			zap.Int("student_conflicts", len(report.StudentConflicts)),
		)
	}

	return report, nil
}
