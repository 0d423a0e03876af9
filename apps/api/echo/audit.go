package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/audit"
)

type auditApi struct {
	svc *audit.Service
}

func registerAuditAPI(g *echo.Group, svc *audit.Service) {
	api := auditApi{svc: svc}
	g.GET("/labs/:labID/audit", api.query)
}

func (api *auditApi) query(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.LabID = ctx.Param("labID")

	var ord Ordering
	ord.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying audit trail")
	}
	return ctx.JSON(http.StatusOK, events)
}
