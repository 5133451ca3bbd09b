package webapi

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mgcaisse/caisse/internal/auth"
	"github.com/mgcaisse/caisse/internal/pos"
	"github.com/mgcaisse/caisse/internal/store"
	"github.com/mgcaisse/caisse/internal/syncd"
)

// Server is the local HTTP API consumed by the UI shell.
type Server struct {
	echo    *echo.Echo
	store   store.Store
	authn   *auth.Authenticator
	sales   *pos.SaleService
	state   *pos.AppState
	syncSvc *syncd.SyncService
	monitor *syncd.ConnectivityMonitor
	secret  string
}

func NewServer(
	st store.Store,
	authn *auth.Authenticator,
	sales *pos.SaleService,
	state *pos.AppState,
	syncSvc *syncd.SyncService,
	monitor *syncd.ConnectivityMonitor,
	secret string,
) *Server {
	s := &Server{
		echo:    echo.New(),
		store:   st,
		authn:   authn,
		sales:   sales,
		state:   state,
		syncSvc: syncSvc,
		monitor: monitor,
		secret:  secret,
	}
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.registerRoutes()
	return s
}

// Echo exposes the underlying instance (used by tests and the runner).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(listen string) error {
	return s.echo.Start(listen)
}

func (s *Server) registerRoutes() {
	s.echo.POST("/api/login", s.handleLogin)

	api := s.echo.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(s.secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/login"
		},
	}))

	api.POST("/logout", s.handleLogout)
	api.GET("/session", s.handleSession)

	api.GET("/products", s.listProducts)
	api.POST("/products", s.createProduct)
	api.PATCH("/products/:id", s.patchProduct)
	api.DELETE("/products/:id", s.deleteProduct)
	api.POST("/products/import", s.importProducts)
	api.GET("/products/export", s.exportProducts)

	api.GET("/cart", s.getCart)
	api.POST("/cart/items", s.addCartItem)
	api.DELETE("/cart/items/:id", s.removeCartItem)

	api.GET("/sales", s.listSales)
	api.GET("/sales/summary", s.salesSummary)
	api.POST("/sales", s.submitSale)

	api.GET("/sync/queue", s.listSyncQueue)
	api.POST("/sync/run", s.runSync)
	api.GET("/status", s.handleStatus)
}
