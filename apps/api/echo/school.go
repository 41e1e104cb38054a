package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core/school"
)

type schoolApi struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, tokenAuth echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps: deps}

	sg := g.Group("/schools", tokenAuth, adminMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:uuid", api.retrieve)
	sg.PUT("/:uuid", api.update)
	sg.DELETE("/:uuid", api.destroy)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schs, err := api.deps.SchoolSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return ctx.JSON(http.StatusOK, schs)
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator, api.deps.SchoolSvc); err != nil {
		return err
	}

	sch, err := api.deps.SchoolSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err = data.Validate(api.deps.Validate, sch, api.deps.SchoolSvc); err != nil {
		return err
	}

	sch, err = api.deps.SchoolSvc.Update(ctx.Request().Context(), sch, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.SchoolSvc.Delete(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) getObject(ctx echo.Context) (school.School, error) {
	uid, err := uuid.Parse(ctx.Param("uuid"))
	if err != nil {
		return school.School{}, errHttpNotFound
	}
	return api.deps.SchoolSvc.GetByUUID(ctx.Request().Context(), uid)
}
