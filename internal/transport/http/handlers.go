package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/service"
)

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewError(model.ErrValidation, "invalid id %q", c.Params("id"))
	}
	return id, nil
}

func (s *Server) createLesson(c *fiber.Ctx) error {
	var req CreateLessonRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	lesson, err := s.lessons.Create(c.Context(), service.CreateLessonInput{
		OrganizationID:      req.OrganizationID,
		TeacherID:           req.TeacherID,
		StudentID:           req.StudentID,
		CourseID:            req.CourseID,
		EnrollmentID:        req.EnrollmentID,
		ScheduledAt:         req.ScheduledAt,
		DurationMinutes:     req.DurationMinutes,
		DeliveryMode:        model.DeliveryMode(req.DeliveryMode),
		MeetingURL:          req.MeetingURL,
		PriceCents:          req.PriceCents,
		Currency:            req.Currency,
		RequireConfirmation: req.RequireConfirmation,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (s *Server) getLesson(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	lesson, err := s.lessons.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(lesson)
}

func (s *Server) deleteLesson(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := s.lessons.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) rescheduleLesson(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req RescheduleRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	lesson, err := s.lessons.Reschedule(c.Context(), id, req.ScheduledAt, req.DurationMinutes)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(lesson)
}

func (s *Server) approveLesson(c *fiber.Ctx) error {
	return s.transition(c, s.lessons.Approve)
}

func (s *Server) confirmLesson(c *fiber.Ctx) error {
	return s.transition(c, s.lessons.Confirm)
}

func (s *Server) completeLesson(c *fiber.Ctx) error {
	return s.transition(c, s.lessons.Complete)
}

func (s *Server) uncompleteLesson(c *fiber.Ctx) error {
	return s.transition(c, s.lessons.Uncomplete)
}

func (s *Server) noShowLesson(c *fiber.Ctx) error {
	return s.transition(c, s.lessons.MarkNoShow)
}

func (s *Server) transition(c *fiber.Ctx, fn func(ctx context.Context, id int64) (*model.Lesson, error)) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	lesson, err := fn(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(lesson)
}

func (s *Server) cancelLesson(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CancelLessonRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	lesson, fee, err := s.lessons.Cancel(c.Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"lesson": lesson, "fee": fee})
}

func (s *Server) previewCancellationFee(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	fee, err := s.lessons.PreviewCancellationFee(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fee)
}

func (s *Server) createRecurring(c *fiber.Ctx) error {
	var req RecurringCreateRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	pattern, err := req.toPattern()
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.recurring.CreateFromPattern(c.Context(), pattern)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *Server) getPattern(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	pattern, err := s.recurring.GetPattern(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(pattern)
}

func (s *Server) deactivatePattern(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := s.recurring.DeactivatePattern(c.Context(), id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) createSubstitution(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req SubstitutionRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := s.subs.Create(c.Context(), service.SubstitutionInput{
		LessonID:            id,
		SubstituteTeacherID: req.SubstituteTeacherID,
		Reason:              req.Reason,
		Notes:               req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (s *Server) updateSubstitution(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req SubstitutionRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := s.subs.Update(c.Context(), service.SubstitutionInput{
		LessonID:            id,
		SubstituteTeacherID: req.SubstituteTeacherID,
		Reason:              req.Reason,
		Notes:               req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(sub)
}

func (s *Server) deleteSubstitution(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := s.subs.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) effectiveTeacher(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	teacherID, err := s.subs.EffectiveTeacher(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(EffectiveTeacherResponse{LessonID: id, EffectiveTeacherID: teacherID})
}

func (s *Server) substituteCandidates(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	candidates, err := s.subs.SubstituteCandidates(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(candidates)
}

func (s *Server) listPatterns(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Query("teacher_id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return respondError(c, model.NewError(model.ErrValidation, "teacher_id query parameter is required"))
	}

	patterns, err := s.recurring.PatternsByTeacher(c.Context(), teacherID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(patterns)
}

func (s *Server) getPolicy(c *fiber.Ctx) error {
	orgID, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	policy, err := s.policies.Get(c.Context(), orgID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(policy)
}

func (s *Server) updatePolicy(c *fiber.Ctx) error {
	orgID, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PolicyRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	policy, err := s.policies.Update(c.Context(), model.CancellationPolicy{
		OrganizationID:    orgID,
		FeeEnabled:        req.FeeEnabled,
		FeePercent:        req.FeePercent,
		HoursThreshold:    req.HoursThreshold,
		LimitEnabled:      req.LimitEnabled,
		CancellationLimit: req.CancellationLimit,
		LimitPeriod:       model.LimitPeriod(req.LimitPeriod),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(policy)
}

func (s *Server) bulkStatus(c *fiber.Ctx) error {
	var req BulkStatusRequest
	if err := s.parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := s.bulk.UpdateStatus(c.Context(), req.LessonIDs, model.LessonStatus(req.Status), req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}
