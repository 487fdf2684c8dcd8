// Package routers
package routers

import (
	"extract-gateway/internal/handlers/extract"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
)

type ExtractRouter struct {
	eh *extract.ExtractHandler
}

// RegisterExtractRoutes mounts the extraction API on e. Extraction bodies over
// bodyLimit are refused with 413 before they are read.
func RegisterExtractRoutes(e *echo.Group, eh *extract.ExtractHandler, bodyLimit string) {
	er := ExtractRouter{eh: eh}

	e.GET("/models", er.GetModels)
	e.POST("/ollama", er.PostExtract, emw.BodyLimit(bodyLimit))
	e.PUT("/ollama", er.OtherVerbs)
	e.DELETE("/ollama", er.OtherVerbs)
}
