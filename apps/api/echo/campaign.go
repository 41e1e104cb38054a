package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
)

type campaignApi struct {
	deps ServerDeps
}

func registerCampaignAPI(g *echo.Group, tokenAuth echo.MiddlewareFunc, deps ServerDeps) {
	api := campaignApi{deps: deps}

	cg := g.Group("/campaigns", tokenAuth, adminMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:uuid", api.retrieve)
	cg.PUT("/:uuid", api.update)
	cg.DELETE("/:uuid", api.destroy)
	cg.PATCH("/:uuid/add-school", api.addSchool)
	cg.PATCH("/:uuid/remove-school", api.removeSchool)

	lg := g.Group("/caschos", tokenAuth, adminMiddleware())
	lg.GET("", api.queryCaschos)
	lg.POST("", api.createCascho)
	lg.GET("/:id", api.retrieveCascho)
	lg.DELETE("/:id", api.destroyCascho)
}

func (api *campaignApi) query(ctx echo.Context) error {
	camps, err := api.deps.CampaignSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying campaigns")
	}
	return ctx.JSON(http.StatusOK, newCampaignResponses(camps, time.Now().UTC()))
}

func (api *campaignApi) create(ctx echo.Context) error {
	var data campaign.NewCampaign
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampaign")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Translator, api.deps.CampaignSvc); err != nil {
		return err
	}

	camp, err := api.deps.CampaignSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campaign")
	}
	return ctx.JSON(http.StatusCreated, newCampaignResponse(camp, time.Now().UTC()))
}

func (api *campaignApi) retrieve(ctx echo.Context) error {
	camp, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCampaignResponse(camp, time.Now().UTC()))
}

func (api *campaignApi) update(ctx echo.Context) error {
	camp, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data campaign.UpdateCampaign
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampaign")
	}
	if err = data.Validate(api.deps.Validate, camp, api.deps.CampaignSvc); err != nil {
		return err
	}

	camp, err = api.deps.CampaignSvc.Update(ctx.Request().Context(), camp, data)
	if err != nil {
		return errors.Wrap(err, "updating campaign")
	}
	return ctx.JSON(http.StatusOK, newCampaignResponse(camp, time.Now().UTC()))
}

func (api *campaignApi) destroy(ctx echo.Context) error {
	camp, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CampaignSvc.Delete(ctx.Request().Context(), camp.ID); err != nil {
		return errors.Wrap(err, "deleting campaign")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// addSchool links a school to the campaign; linking twice is a no-op.
func (api *campaignApi) addSchool(ctx echo.Context) error {
	camp, sch, err := api.getLinkPair(ctx)
	if err != nil {
		return err
	}

	cas, err := api.deps.CampaignSvc.AddSchool(ctx.Request().Context(), camp, sch)
	if err != nil {
		return errors.Wrap(err, "linking school to campaign")
	}
	return ctx.JSON(http.StatusOK, cas)
}

func (api *campaignApi) removeSchool(ctx echo.Context) error {
	camp, sch, err := api.getLinkPair(ctx)
	if err != nil {
		return err
	}

	if err = api.deps.CampaignSvc.RemoveSchool(ctx.Request().Context(), camp, sch); err != nil {
		return errors.Wrap(err, "unlinking school from campaign")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *campaignApi) getObject(ctx echo.Context) (campaign.Campaign, error) {
	uid, err := uuid.Parse(ctx.Param("uuid"))
	if err != nil {
		return campaign.Campaign{}, errHttpNotFound
	}
	return api.deps.CampaignSvc.GetByUUID(ctx.Request().Context(), uid)
}

func (api *campaignApi) getLinkPair(ctx echo.Context) (campaign.Campaign, school.School, error) {
	camp, err := api.getObject(ctx)
	if err != nil {
		return campaign.Campaign{}, school.School{}, err
	}

	var data SchoolUUIDRequest
	if err = ctx.Bind(&data); err != nil {
		return campaign.Campaign{}, school.School{}, errors.Wrap(err, "binding to SchoolUUIDRequest")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return campaign.Campaign{}, school.School{}, err
	}

	sch, err := api.deps.SchoolSvc.GetByUUID(ctx.Request().Context(), uuid.MustParse(data.School))
	if err != nil {
		return campaign.Campaign{}, school.School{}, err
	}
	return camp, sch, nil
}

// Caschos

func (api *campaignApi) queryCaschos(ctx echo.Context) error {
	cass, err := api.deps.CampaignSvc.QueryAllCaschos(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying caschos")
	}
	return ctx.JSON(http.StatusOK, cass)
}

func (api *campaignApi) createCascho(ctx echo.Context) error {
	var data NewCaschoRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCaschoRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	camp, err := api.deps.CampaignSvc.GetByUUID(ctx.Request().Context(), uuid.MustParse(data.Campaign))
	if err != nil {
		return err
	}
	sch, err := api.deps.SchoolSvc.GetByUUID(ctx.Request().Context(), uuid.MustParse(data.School))
	if err != nil {
		return err
	}

	cas, err := api.deps.CampaignSvc.AddSchool(ctx.Request().Context(), camp, sch)
	if err != nil {
		return errors.Wrap(err, "linking school to campaign")
	}
	return ctx.JSON(http.StatusCreated, cas)
}

func (api *campaignApi) retrieveCascho(ctx echo.Context) error {
	cas, err := api.getCascho(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cas)
}

func (api *campaignApi) destroyCascho(ctx echo.Context) error {
	cas, err := api.getCascho(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.CampaignSvc.DeleteCascho(ctx.Request().Context(), cas.ID); err != nil {
		return errors.Wrap(err, "deleting cascho")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *campaignApi) getCascho(ctx echo.Context) (campaign.Cascho, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return campaign.Cascho{}, errHttpNotFound
	}
	return api.deps.CampaignSvc.GetCaschoByID(ctx.Request().Context(), id)
}
