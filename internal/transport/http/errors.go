package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/service"
)

// respondError maps domain error kinds onto HTTP statuses. Conflict
// rejections carry the full report so the client can show both collision
// sets.
func respondError(c *fiber.Ctx, err error) error {
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":             err.Error(),
			"has_conflicts":     true,
			"teacher_conflicts": conflictErr.Report.TeacherConflicts,
			"student_conflicts": conflictErr.Report.StudentConflicts,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, model.ErrDuplicate), errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrLimitExceeded):
		status = fiber.StatusConflict
	case errors.Is(err, model.ErrStateInvalid):
		status = fiber.StatusUnprocessableEntity
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
