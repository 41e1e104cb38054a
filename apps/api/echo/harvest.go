package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core/policy"
	"github.com/mobashi/surv/core/survey"
)

type harvestApi struct {
	deps ServerDeps
}

// registerHarvestAPI exposes the FILLED surveys as normalized trips, plus the
// status-only update that finalizes them.
func registerHarvestAPI(g *echo.Group, tokenAuth echo.MiddlewareFunc, deps ServerDeps) {
	api := harvestApi{deps: deps}

	hg := g.Group("/harvests", tokenAuth)
	hg.GET("", api.query)
	hg.GET("/:id", api.retrieve)
	hg.PATCH("/:id", api.updateStatus)
}

func (api *harvestApi) query(ctx echo.Context) error {
	svys, err := api.deps.SurveySvc.QueryFilled(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying filled surveys")
	}

	trips := make([]TripResponse, 0, len(svys))
	for _, s := range svys {
		stages, err := survey.TripStages(s.Content, s.School.Geo())
		if err != nil {
			return errors.Wrap(err, "normalizing trip")
		}
		trips = append(trips, newTripResponse(s, stages))
	}
	return ctx.JSON(http.StatusOK, trips)
}

func (api *harvestApi) retrieve(ctx echo.Context) error {
	s, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	stages, err := survey.TripStages(s.Content, s.School.Geo())
	if err != nil {
		return errors.Wrap(err, "normalizing trip")
	}
	return ctx.JSON(http.StatusOK, newTripResponse(s, stages))
}

// updateStatus is the field-scoped path marking a harvested survey USED or a
// dead one CANCELLED; the service rejects any other target.
func (api *harvestApi) updateStatus(ctx echo.Context) error {
	s, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if !policy.Survey.Can(policy.ActionChange, getContextUser(ctx), s) {
		return errHttpForbidden
	}

	var data SurveyStatusUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SurveyStatusUpdate")
	}

	s, err = api.deps.SurveySvc.UpdateStatus(ctx.Request().Context(), s, data.Status)
	if err != nil {
		return errors.Wrap(err, "updating survey status")
	}
	return ctx.JSON(http.StatusOK, newSurveyResponse(s, time.Now().UTC()))
}

// getObject scopes harvesting to FILLED surveys; anything else is invisible
// here, same as on the list.
func (api *harvestApi) getObject(ctx echo.Context) (survey.Survey, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return survey.Survey{}, errHttpNotFound
	}
	s, err := api.deps.SurveySvc.GetByID(ctx.Request().Context(), id, getContextUser(ctx))
	if err != nil {
		return survey.Survey{}, err
	}
	if s.Status != survey.StatusFilled {
		return survey.Survey{}, errHttpNotFound
	}
	return s, nil
}
