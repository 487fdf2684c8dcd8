package routers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"extract-gateway/internal/ctx"
	"extract-gateway/internal/handlers/extract"
	"extract-gateway/internal/shared"

	"github.com/labstack/echo/v4"
)

// GetModels reports listing failures in the body, never through the status.
func (er *ExtractRouter) GetModels(cc echo.Context) error {
	c := cc.(*ctx.Context)

	models, err := er.eh.ListModels(c.Request().Context())
	if err != nil {
		c.LogValues.AddError(errors.Join(errors.New("failed to get models"), err))
		return c.JSON(http.StatusOK, shared.ErrorResponse{
			Error:   shared.MsgFetchModelsFail,
			Details: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, shared.ModelsResponse{Models: models})
}

func (er *ExtractRouter) PostExtract(cc echo.Context) error {
	c := cc.(*ctx.Context)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.LogValues.AddError(err)
		return c.JSON(shared.ErrInvalidRequest.StatusCode, shared.ErrorResponse{Error: shared.ErrInvalidRequest.Err.Error()})
	}

	var req shared.ExtractionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.LogValues.AddError(errors.Join(shared.ErrInvalidRequest, err))
		return c.JSON(shared.ErrInvalidRequest.StatusCode, shared.ErrorResponse{Error: shared.ErrInvalidRequest.Err.Error()})
	}

	out := er.eh.Extract(extract.ExtractInput{
		Ctx: c.Request().Context(),
		Req: req,
		Log: c.Log,
	})

	c.LogValues.Model = out.Model
	c.LogValues.Outcome = string(out.Kind)
	c.LogValues.Provisioned = out.Provisioned
	c.LogValues.ExitCode = out.ExitCode
	switch out.Kind {
	case extract.OutcomeProvisionFailed:
		c.LogValues.AddError(shared.ErrProvisionFailed)
	case extract.OutcomeRunFailed:
		c.LogValues.AddError(shared.ErrRuntimeExit)
	}

	return c.JSON(http.StatusOK, out.Body())
}

func (er *ExtractRouter) OtherVerbs(cc echo.Context) error {
	return cc.JSON(http.StatusOK, shared.MessageResponse{Message: shared.MsgOtherVerbs})
}
