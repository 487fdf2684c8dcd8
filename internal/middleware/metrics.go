// Package middleware holds the base echo middleware every route runs behind
package middleware

import (
	"fmt"
	"time"

	"extract-gateway/internal/ctx"
	"extract-gateway/internal/metrics"
	"extract-gateway/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
			reqID = "req_" + reqID
			logger := log.With("request_id", reqID)

			start := time.Now()
			cc := &ctx.Context{
				Context: c,
				Log:     logger,
				Reqid:   reqID,
				LogValues: &ctx.ContextLogValues{
					RequestID: reqID,
					StartTime: start,
					Path:      c.Path(),
				},
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			err := next(cc)
			cc.LogValues.RequestDuration = time.Since(start)
			cc.LogValues.StatusCode = cc.Response().Status
			cc.LogValues.AddError(err)
			if cc.LogValues.Error != nil {
				cc.Log.Warnw("end_of_request", "request", cc.LogValues)
			} else {
				cc.Log.Infow("end_of_request", "request", cc.LogValues)
			}
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", cc.Response().Status)).Inc()
			return err
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error(), "stack", string(stack))
			return c.JSON(500, shared.ErrorResponse{Error: shared.ErrInternalServerError.Err.Error()})
		},
	})
}
