package classify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/classifications", h.Classify)
}

// Classify runs the engine. The optional "mode" query parameter selects
// "full" (default) or "by-code".
func (h *Handler) Classify(c echo.Context) error {
	mode := Mode(c.QueryParam("mode"))
	if mode == "" {
		mode = ModeFull
	}
	if !mode.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be full or by-code")
	}
	res, err := h.engine.Run(c.Request().Context(), mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
