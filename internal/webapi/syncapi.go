package webapi

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) listSyncQueue(c echo.Context) error {
	entries, err := s.store.GetSyncQueue(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, entries)
}

// runSync triggers a manual drain pass, the "Synchroniser" button. The
// drain itself still refuses to overlap an in-flight pass.
func (s *Server) runSync(c echo.Context) error {
	s.syncSvc.Drain(c.Request().Context())
	return ok(c, nil)
}

func (s *Server) handleStatus(c echo.Context) error {
	pending, err := s.store.GetSyncQueue(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{
		"online":       s.monitor.IsOnline(),
		"sync_pending": len(pending),
	})
}
