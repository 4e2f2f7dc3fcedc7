package triage

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/symcheck/symcheck/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/search", h.Search)
	api.POST("/purchases", h.RecordPurchase)
	api.GET("/purchases/frequent", h.FrequentPurchases)
	api.GET("/history/:requester", h.ListHistory)
}

type purchaseRequest struct {
	UserID    string `json:"user_id"`
	Condition string `json:"condition"`
	Medicine  string `json:"medicine"`
}

// httpError maps input errors to 400 and everything else to 500.
func httpError(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}

// bindError keeps statuses already chosen upstream, such as 413 from the
// body limit.
func bindError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) Search(c echo.Context) error {
	var q SearchQuery
	if err := c.Bind(&q); err != nil {
		return bindError(err)
	}
	result, err := h.svc.RunSearch(c.Request().Context(), q)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) RecordPurchase(c echo.Context) error {
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	p, err := h.svc.RecordPurchase(c.Request().Context(), req.UserID, req.Condition, req.Medicine)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListHistory(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHistory(c.Request().Context(), c.Param("requester"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path))
}

func (h *Handler) FrequentPurchases(c echo.Context) error {
	freqs, err := h.svc.FrequentPurchases(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"frequent_purchases": freqs})
}
