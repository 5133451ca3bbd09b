package webapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/store"
)

type productPayload struct {
	Name     string  `json:"name" form:"name"`
	SKU      string  `json:"sku" form:"sku"`
	Barcode  string  `json:"barcode" form:"barcode"`
	Price    float64 `json:"price" form:"price"`
	Stock    int     `json:"stock" form:"stock"`
	MinStock int     `json:"min_stock" form:"min_stock"`
}

type productView struct {
	domain.Product
	LowStock bool `json:"low_stock"`
}

func (s *Server) listProducts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	includeDeleted := c.QueryParam("include_deleted") == "true"

	products, err := s.store.GetProducts(c.Request().Context(), store.ProductFilter{
		Limit:          limit,
		ExcludeDeleted: !includeDeleted,
		Query:          c.QueryParam("q"),
	})
	if err != nil {
		return failErr(c, err)
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, LowStock: p.LowStock()})
	}
	return ok(c, views)
}

func (s *Server) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse product")
	}

	product := domain.Product{
		Name:     strings.TrimSpace(payload.Name),
		Price:    payload.Price,
		Stock:    payload.Stock,
		MinStock: payload.MinStock,
	}
	if sku := strings.TrimSpace(payload.SKU); sku != "" {
		product.SKU = &sku
	}
	if barcode := strings.TrimSpace(payload.Barcode); barcode != "" {
		product.Barcode = &barcode
	}

	if _, err := s.store.AddProduct(c.Request().Context(), &product); err != nil {
		return failErr(c, err)
	}
	return ok(c, product)
}

func (s *Server) patchProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid product id")
	}

	var patch domain.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse patch")
	}

	product, err := s.store.UpdateProduct(c.Request().Context(), id, patch)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, product)
}

func (s *Server) deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid product id")
	}
	if err := s.store.SoftDeleteProduct(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"id": id})
}

func (s *Server) importProducts(c echo.Context) error {
	imported, err := s.store.ImportProductsCSV(c.Request().Context(), c.Request().Body)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"imported": imported})
}

func (s *Server) exportProducts(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="catalog.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return s.store.ExportProductsCSV(c.Request().Context(), c.Response())
}
