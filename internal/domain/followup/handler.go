package followup

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oncofollow/oncofollow/pkg/pagination"
)

type Handler struct {
	store TxRunner
}

func NewHandler(store TxRunner) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/follow-ups", h.List)
}

// List pages through follow-ups. Query filters: status, category and
// document (the patient's document number).
func (h *Handler) List(c echo.Context) error {
	status := Status(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	if status != "" && !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status "+string(status))
	}
	filter := ListFilter{
		Status:         status,
		Category:       strings.TrimSpace(c.QueryParam("category")),
		DocumentNumber: strings.TrimSpace(c.QueryParam("document")),
	}
	pg := pagination.FromContext(c)

	var items []*FollowUp
	var total int
	err := h.store.InTx(c.Request().Context(), func(tx Tx) error {
		var err error
		items, total, err = tx.FollowUps().List(c.Request().Context(), filter, pg.Limit, pg.Offset)
		return err
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*FollowUp{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(c, items, total, pg))
}
