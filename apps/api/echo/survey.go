package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/policy"
	"github.com/mobashi/surv/core/survey"
)

type surveyApi struct {
	deps ServerDeps
}

func registerSurveyAPI(g *echo.Group, tokenAuth, optionalAuth echo.MiddlewareFunc, deps ServerDeps) {
	api := surveyApi{deps: deps}

	sg := g.Group("/surveys")

	// intake is self-service: anonymous requests synthesize a respondent
	sg.POST("", api.intake, optionalAuth)

	ag := sg.Group("", tokenAuth)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PATCH("/:id", api.updateContent)
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

// intake exchanges an invitation code for the paired forth/back surveys and a
// token. Its failures are deliberately opaque: everything except a permission
// refusal comes back as one generic server error, so the code cannot be probed
// part by part.
func (api *surveyApi) intake(ctx echo.Context) error {
	var data IntakeRequest
	if err := ctx.Bind(&data); err != nil {
		return api.genericError(ctx)
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return api.genericError(ctx)
	}

	code := survey.DecodeParam(data.Code)
	uname := survey.DecodeParam(data.Username)
	res, err := api.deps.SurveySvc.Intake(ctx.Request().Context(), code, uname, getContextUser(ctx))
	if err != nil {
		if errors.Cause(err) == core.ErrPermissionDenied {
			return err
		}
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "survey intake"))
		return api.genericError(ctx)
	}

	now := time.Now().UTC()
	return ctx.JSON(http.StatusCreated, IntakeResponse{
		Forth: newSurveyResponse(res.Forth, now),
		Back:  newSurveyResponse(res.Back, now),
		Token: res.Token.Key,
	})
}

func (api *surveyApi) genericError(ctx echo.Context) error {
	return ctx.JSON(http.StatusInternalServerError, GenericError)
}

func (api *surveyApi) query(ctx echo.Context) error {
	svys, err := api.deps.SurveySvc.Query(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying surveys")
	}
	return ctx.JSON(http.StatusOK, newSurveyResponses(svys, time.Now().UTC()))
}

func (api *surveyApi) retrieve(ctx echo.Context) error {
	s, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSurveyResponse(s, time.Now().UTC()))
}

// updateContent is the content-only partial update: only the content field is
// read from the payload, and the state machine decides what persists.
func (api *surveyApi) updateContent(ctx echo.Context) error {
	s, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if !policy.Survey.Can(policy.ActionChange, getContextUser(ctx), s) {
		return errHttpForbidden
	}

	var data SurveyContentUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SurveyContentUpdate")
	}

	s, err = api.deps.SurveySvc.UpdateContent(ctx.Request().Context(), s, data.Content)
	if err != nil {
		return errors.Wrap(err, "updating survey content")
	}
	return ctx.JSON(http.StatusOK, newSurveyResponse(s, time.Now().UTC()))
}

func (api *surveyApi) destroy(ctx echo.Context) error {
	s, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.SurveySvc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting survey")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *surveyApi) getObject(ctx echo.Context) (survey.Survey, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return survey.Survey{}, errHttpNotFound
	}
	return api.deps.SurveySvc.GetByID(ctx.Request().Context(), id, getContextUser(ctx))
}
