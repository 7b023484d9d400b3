package api

import (
	"net/http"

	"github.com/platinummonkey/noticias/pkg/httputil"
)

// AppInfo is the public application info served by /api/config
type AppInfo struct {
	Name     string `json:"APP_NAME"`
	Version  string `json:"VERSION"`
	Database string `json:"DATABASE"`
}

// getConfig handles GET /api/config
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	app := s.deps.Config.App
	_ = httputil.WriteJSON(w, http.StatusOK, AppInfo{
		Name:     app.Name,
		Version:  app.Version,
		Database: app.DatabaseLabel,
	})
}
