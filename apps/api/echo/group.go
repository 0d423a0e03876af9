package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
)

// signoffOp is the shape shared by Service.Pass and Service.Return.
type signoffOp func(ctx context.Context, groupID string, number int, performer group.Performer, notes string) (audit.SignoffEvent, group.CheckpointProgress, error)

type groupApi struct {
	svc      *group.Service
	validate *validator.Validate
}

func registerGroupAPI(g *echo.Group, svc *group.Service, validate *validator.Validate) {
	api := groupApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/labs/:labID/groups")
	lg.GET("", api.query)
	lg.PUT("", api.bulkUpdate)
	lg.POST("/randomize", api.randomize)

	dg := g.Group("/groups/:id")
	dg.GET("", api.retrieve)

	cg := dg.Group("/checkpoints")
	cg.POST("/next", api.passNext)
	cg.POST("/:num/pass", api.pass)
	cg.POST("/:num/return", api.returnCheckpoint)
	cg.POST("/:num/toggle", api.toggle)
}

// checkpointNumber parses the :num path param.
func checkpointNumber(ctx echo.Context) (int, error) {
	num, err := strconv.Atoi(ctx.Param("num"))
	if err != nil || num < 1 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: "num", Error: "must be a positive integer"})
	}
	return num, nil
}

// Handlers

func (api *groupApi) query(ctx echo.Context) error {
	groups, err := api.svc.QueryByLab(ctx.Request().Context(), ctx.Param("labID"))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), group.GetFilter{ID: ctx.Param("id")})
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) randomize(ctx echo.Context) error {
	var data RandomizeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RandomizeRequest")
	}

	var seed []int64
	if data.Seed != nil {
		seed = append(seed, *data.Seed)
	}
	groups, err := api.svc.Randomize(ctx.Request().Context(), ctx.Param("labID"), seed...)
	if err != nil {
		if errors.Cause(err) == lab.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "randomizing groups")
	}
	return ctx.JSON(http.StatusCreated, groups)
}

func (api *groupApi) bulkUpdate(ctx echo.Context) error {
	var data BulkGroupsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkGroupsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	groups, err := api.svc.BulkUpdate(ctx.Request().Context(), ctx.Param("labID"), data.Groups)
	if err != nil {
		if errors.Cause(err) == lab.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "replacing groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) pass(ctx echo.Context) error {
	return api.signoff(ctx, api.svc.Pass, "passing checkpoint")
}

func (api *groupApi) returnCheckpoint(ctx echo.Context) error {
	return api.signoff(ctx, api.svc.Return, "returning checkpoint")
}

func (api *groupApi) signoff(ctx echo.Context, op signoffOp, msg string) error {
	num, err := checkpointNumber(ctx)
	if err != nil {
		return err
	}
	var data SignoffRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignoffRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ev, progress, err := op(ctx.Request().Context(), ctx.Param("id"), num, data.performer(), data.Notes)
	if err != nil {
		switch errors.Cause(err) {
		case group.ErrNotFound, group.ErrCheckpointNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, msg)
	}
	return ctx.JSON(http.StatusOK, SignoffResponse{Event: ev, Progress: progress})
}

func (api *groupApi) toggle(ctx echo.Context) error {
	num, err := checkpointNumber(ctx)
	if err != nil {
		return err
	}
	var data ToggleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}
	if err = data.SignoffRequest.Validate(api.validate); err != nil {
		return err
	}

	progress, err := api.svc.Toggle(ctx.Request().Context(), ctx.Param("id"), num, data.Completed, data.performer(), data.Notes)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling checkpoint")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *groupApi) passNext(ctx echo.Context) error {
	var data SignoffRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignoffRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var performer []group.Performer
	if data.PerformedBy != "" || data.PerformerName != "" {
		performer = append(performer, data.performer())
	}
	progress, err := api.svc.PassNext(ctx.Request().Context(), ctx.Param("id"), performer...)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "passing next checkpoint")
	}
	return ctx.JSON(http.StatusOK, progress)
}
