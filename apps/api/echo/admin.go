package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/approval"
)

type adminApi struct {
	approvalSvc approval.Service
	acctSvc     account.Service
	validate    *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{
		approvalSvc: deps.ApprovalSvc,
		acctSvc:     deps.AccountSvc,
		validate:    deps.Validate,
	}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/notifications", api.queryNotifications)
	ag.POST("/notifications/:id/decide", api.decide)
	ag.GET("/tutors", api.queryTutors)
}

// Handlers

func (api *adminApi) queryNotifications(ctx echo.Context) error {
	ns, err := api.approvalSvc.Recent(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ns == nil {
		ns = []approval.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *adminApi) decide(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data DecideRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecideRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.approvalSvc.Decide(ctx.Request().Context(), id, data.Decision)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *adminApi) queryTutors(ctx echo.Context) error {
	filter := account.QueryFilter{Role: account.RoleTutor}
	if status := ctx.QueryParam("status"); status != "" {
		filter.Status = account.Status(status)
	}

	tutors, err := api.acctSvc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tutors")
	}
	if tutors == nil {
		tutors = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, tutors)
}

type DecideRequest struct {
	Decision approval.Decision `json:"decision" validate:"required"`
}
