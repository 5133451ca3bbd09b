package webapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
)

// parseDateRange reads start/end query params in any common date format.
// Missing bounds default to the epoch and now at the store layer.
func parseDateRange(c echo.Context) (start, end time.Time, err error) {
	if raw := c.QueryParam("start"); raw != "" {
		start, err = dateparse.ParseAny(raw)
		if err != nil {
			return
		}
	}
	if raw := c.QueryParam("end"); raw != "" {
		end, err = dateparse.ParseAny(raw)
	}
	return
}

func (s *Server) listSales(c echo.Context) error {
	start, end, err := parseDateRange(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unparseable date bound")
	}
	sales, err := s.store.GetSales(c.Request().Context(), start, end)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, sales)
}

func (s *Server) salesSummary(c echo.Context) error {
	start, end, err := parseDateRange(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unparseable date bound")
	}
	summary, err := s.sales.Summarize(c.Request().Context(), start, end)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, summary)
}

type submitSalePayload struct {
	PaymentMethod string `json:"payment_method" form:"payment_method"`
}

func (s *Server) submitSale(c echo.Context) error {
	var payload submitSalePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse sale")
	}
	sale, err := s.sales.ProcessSale(c.Request().Context(), s.state, payload.PaymentMethod)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, sale)
}

type cartItemPayload struct {
	ProductID int64 `json:"product_id,string" form:"product_id"`
	Quantity  int   `json:"quantity" form:"quantity"`
}

func (s *Server) getCart(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"items": s.state.Cart(),
		"total": s.state.CartTotal(),
	})
}

func (s *Server) addCartItem(c echo.Context) error {
	var payload cartItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse cart item")
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	product, err := s.store.GetProduct(c.Request().Context(), payload.ProductID)
	if err != nil {
		return failErr(c, err)
	}
	if err := s.state.AddToCart(product, payload.Quantity); err != nil {
		return failErr(c, err)
	}
	return s.getCart(c)
}

func (s *Server) removeCartItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid product id")
	}
	s.state.RemoveFromCart(id)
	return s.getCart(c)
}
