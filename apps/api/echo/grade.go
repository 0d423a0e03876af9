package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/grade"
	"github.com/trezcool/labtrack/core/lab"
)

type gradeApi struct {
	svc      *grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, svc *grade.Service, validate *validator.Validate) {
	api := gradeApi{
		svc:      svc,
		validate: validate,
	}
	g.GET("/labs/:labID/grades/export", api.export)
	g.POST("/labs/:labID/grades/email", api.email)
}

func (api *gradeApi) export(ctx echo.Context) error {
	exp, err := api.svc.Export(ctx.Request().Context(), ctx.Param("labID"))
	if err != nil {
		if errors.Cause(err) == lab.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "exporting grades")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.FileName))
	return ctx.Blob(http.StatusOK, "text/csv", exp.Content)
}

func (api *gradeApi) email(ctx echo.Context) error {
	var data EmailExportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailExportRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exp, err := api.svc.EmailExport(ctx.Request().Context(), ctx.Param("labID"), data.Recipients)
	if err != nil {
		if errors.Cause(err) == lab.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "emailing grade export")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: fmt.Sprintf("%s sent to %d recipient(s)", exp.FileName, len(data.Recipients))})
}
