package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/equipsync/internal/interfaces/http/handler"
)

// APIVersion prefixes every versioned route
const APIVersion = "v1"

// Route is a single endpoint
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// RouteGroup is an API area mounted under /api/<version>/<Prefix>
type RouteGroup struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Mount registers groups on engine and returns the full paths it mounted,
// in registration order.
func Mount(engine *gin.Engine, version string, groups ...RouteGroup) []string {
	api := engine.Group("/api/" + version)

	var mounted []string
	for _, g := range groups {
		rg := api.Group(g.Prefix, g.Middleware...)
		for _, r := range g.Routes {
			rg.Handle(r.Method, r.Path, r.Handler)
			mounted = append(mounted, r.Method+" "+joinPath(rg.BasePath(), r.Path))
		}
	}
	return mounted
}

func joinPath(base, path string) string {
	if path == "" || path == "/" {
		return base
	}
	return base + path
}

// syncRoutes exposes the manual trigger and run history
func syncRoutes(h *handler.InventorySyncHandler) RouteGroup {
	return RouteGroup{
		Prefix: "/inventory-sync",
		Routes: []Route{
			{Method: http.MethodPost, Path: "/run", Handler: h.Run},
			{Method: http.MethodGet, Path: "/runs", Handler: h.List},
			{Method: http.MethodGet, Path: "/runs/latest", Handler: h.Latest},
		},
	}
}

func systemRoutes(h *handler.SystemHandler) RouteGroup {
	return RouteGroup{
		Prefix: "/system",
		Routes: []Route{
			{Method: http.MethodGet, Path: "/info", Handler: h.GetSystemInfo},
		},
	}
}
