package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/school"
	"github.com/trezcool/surgepay/core/user"
)

const msgOnboardingCompleted = "School setup completed successfully!"

type schoolApi struct {
	svc      school.Service
	userSvc  user.Service
	validate *validator.Validate
	metrics  *Metrics
}

func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc school.Service,
	userSvc user.Service,
	validate *validator.Validate,
	metrics *Metrics,
) {
	api := schoolApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
		metrics:  metrics,
	}

	g.POST("/onboarding/complete", api.completeOnboarding)

	sg := g.Group("/school", jwt)
	sg.GET("", api.retrieve, portalMiddleware(user.PortalAdmin))
	sg.GET("/students", api.students)
}

type OnboardingResponse struct {
	Message string        `json:"message"`
	School  school.School `json:"school"`
}

func (api *schoolApi) completeOnboarding(ctx echo.Context) error {
	var data school.CompleteOnboarding
	if err := ctx.Bind(&data); err != nil {
		api.metrics.onboardingResult("invalid")
		return errors.Wrap(err, "binding to CompleteOnboarding")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		api.metrics.onboardingResult("invalid")
		return err
	}

	sch, err := api.svc.CompleteOnboarding(ctx.Request().Context(), data)
	if err != nil {
		if core.IsValidationError(err) {
			api.metrics.onboardingResult("rejected")
			return err
		}
		api.metrics.onboardingResult("error")
		return errors.Wrap(err, "completing onboarding")
	}

	api.metrics.onboardingResult("completed")
	return ctx.JSON(http.StatusOK, OnboardingResponse{Message: msgOnboardingCompleted, School: sch})
}

// retrieve returns the school of the signed in owner.
func (api *schoolApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sch, err := api.svc.GetByOwner(ctx.Request().Context(), usr.ID)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding school by owner")
	}
	return ctx.JSON(http.StatusOK, sch)
}

// students lists the students of the school the signed in user belongs to.
func (api *schoolApi) students(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.SchoolID == "" {
		return errHttpNotFound
	}
	students, err := api.svc.ListStudents(ctx.Request().Context(), usr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}
