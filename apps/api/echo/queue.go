package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/queue"
)

type queueApi struct {
	svc      *queue.Service
	validate *validator.Validate
}

func registerQueueAPI(g *echo.Group, svc *queue.Service, validate *validator.Validate) {
	api := queueApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/labs/:labID/queue")
	lg.POST("", api.raise)
	lg.GET("", api.query)
	lg.DELETE("/closed", api.clearClosed)

	dg := g.Group("/queue/:id")
	dg.POST("/claim", api.claim)
	dg.POST("/resolve", api.resolve)
	dg.POST("/cancel", api.cancel)
	dg.POST("/urgent", api.urgent)
}

// Handlers

func (api *queueApi) raise(ctx echo.Context) error {
	var data queue.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	data.LabID = ctx.Param("labID")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.Raise(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "raising hand")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *queueApi) query(ctx echo.Context) error {
	labID := ctx.Param("labID")
	items, err := api.svc.QueryByLab(ctx.Request().Context(), labID)
	if err != nil {
		return errors.Wrap(err, "querying help queue")
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), labID)
	if err != nil {
		return errors.Wrap(err, "computing queue stats")
	}
	return ctx.JSON(http.StatusOK, QueueListResponse{Items: items, Stats: stats})
}

func (api *queueApi) claim(ctx echo.Context) error {
	var data ClaimRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClaimRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.transition(ctx, func(c context.Context, id string) (queue.Item, error) {
		return api.svc.Claim(c, id, data.ClaimedBy)
	}, "claiming help request")
}

func (api *queueApi) resolve(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Resolve, "resolving help request")
}

func (api *queueApi) cancel(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Cancel, "cancelling help request")
}

func (api *queueApi) urgent(ctx echo.Context) error {
	return api.transition(ctx, api.svc.SetUrgent, "marking help request urgent")
}

func (api *queueApi) transition(ctx echo.Context, op func(context.Context, string) (queue.Item, error), msg string) error {
	it, err := op(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == queue.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, msg)
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *queueApi) clearClosed(ctx echo.Context) error {
	count, err := api.svc.ClearClosed(ctx.Request().Context(), ctx.Param("labID"))
	if err != nil {
		return errors.Wrap(err, "clearing closed help requests")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}
