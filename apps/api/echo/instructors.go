package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/instructor"
)

type instructorApi struct {
	svc      *instructor.Service
	validate *validator.Validate
}

func registerInstructorAPI(g *echo.Group, svc *instructor.Service, validate *validator.Validate) {
	api := instructorApi{svc: svc, validate: validate}

	ig := g.Group("/admin/instructors", requireAdmin())
	ig.GET("", api.query)
	ig.POST("/invite", api.invite)
}

func (api *instructorApi) query(ctx echo.Context) error {
	records, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return failed(errors.Wrap(err, "querying instructors"), "Failed to fetch instructors")
	}
	if records == nil {
		records = []instructor.Instructor{}
	}
	return ctx.JSON(http.StatusOK, core.Success(http.StatusText(http.StatusOK), records))
}

func (api *instructorApi) invite(ctx echo.Context) error {
	var data instructor.Invitation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Invitation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ins, err := api.svc.Invite(ctx.Request().Context(), mustSession(ctx), data)
	if err != nil {
		return failed(err, "Failed to invite instructor")
	}
	return ctx.JSON(http.StatusCreated, core.Success("Instructor invited successfully", ins))
}
