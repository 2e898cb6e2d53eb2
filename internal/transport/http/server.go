// Package http exposes the scheduling engine over a Fiber API. It is a thin
// shell: parsing, validation and status mapping only.
package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tutorium/tutorium/internal/model"
	"github.com/tutorium/tutorium/internal/service"
	"go.uber.org/zap"
)

type Server struct {
	app       *fiber.App
	validate  *validator.Validate
	lessons   *service.LessonService
	recurring *service.RecurringService
	subs      *service.SubstitutionService
	bulk      *service.BulkService
	policies  *service.PolicyService
	logger    *zap.Logger
}

func NewServer(
	lessons *service.LessonService,
	recurring *service.RecurringService,
	subs *service.SubstitutionService,
	bulk *service.BulkService,
	policies *service.PolicyService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		app:       fiber.New(fiber.Config{AppName: "tutorium"}),
		validate:  validator.New(),
		lessons:   lessons,
		recurring: recurring,
		subs:      subs,
		bulk:      bulk,
		policies:  policies,
		logger:    logger,
	}

	s.app.Use(recover.New())
	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api/v1")

	lessons := api.Group("/lessons")
	lessons.Post("/", s.createLesson)
	lessons.Post("/bulk-status", s.bulkStatus)
	lessons.Post("/recurring", s.createRecurring)
	lessons.Get("/:id", s.getLesson)
	lessons.Delete("/:id", s.deleteLesson)
	lessons.Put("/:id/schedule", s.rescheduleLesson)
	lessons.Post("/:id/approve", s.approveLesson)
	lessons.Post("/:id/confirm", s.confirmLesson)
	lessons.Post("/:id/complete", s.completeLesson)
	lessons.Post("/:id/uncomplete", s.uncompleteLesson)
	lessons.Post("/:id/no-show", s.noShowLesson)
	lessons.Post("/:id/cancel", s.cancelLesson)
	lessons.Get("/:id/cancellation-fee", s.previewCancellationFee)
	lessons.Get("/:id/effective-teacher", s.effectiveTeacher)
	lessons.Post("/:id/substitution", s.createSubstitution)
	lessons.Put("/:id/substitution", s.updateSubstitution)
	lessons.Delete("/:id/substitution", s.deleteSubstitution)
	lessons.Get("/:id/substitute-candidates", s.substituteCandidates)

	patterns := api.Group("/patterns")
	patterns.Get("/", s.listPatterns)
	patterns.Get("/:id", s.getPattern)
	patterns.Post("/:id/deactivate", s.deactivatePattern)

	orgs := api.Group("/organizations")
	orgs.Get("/:id/cancellation-policy", s.getPolicy)
	orgs.Put("/:id/cancellation-policy", s.updatePolicy)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// Listen blocks serving the API.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// parseBody parses and validates a JSON request body, returning a
// validation-kind domain error for respondError to map.
func (s *Server) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return model.NewError(model.ErrValidation, "invalid request body")
	}
	if err := s.validate.Struct(out); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return model.NewError(model.ErrValidation, "%s", validationMessage(ve[0].Field(), ve[0].Tag()))
		}
		return model.WrapError(model.ErrValidation, err, "invalid request")
	}
	return nil
}
