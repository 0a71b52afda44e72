package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/supplysync/backend/internal/interfaces/http/middleware"
	"github.com/supplysync/backend/internal/interfaces/http/router"
)

// multipartOverhead is allowed on top of the upload limit for form framing
const multipartOverhead = 1 << 20

// SyncRoutes creates the route groups for provider sync endpoints
func SyncRoutes(h *SyncHandler) []*router.DomainGroup {
	providers := router.NewDomainGroup("providers", "/providers")
	providers.GET("", h.ListProviders)
	providers.POST("/:code/sync", h.Sync)
	providers.POST("/:code/dump", h.Dump)
	providers.GET("/:code/ping", h.Ping)
	providers.GET("/:code/logs", h.ListLogs)

	logs := router.NewDomainGroup("sync-logs", "/sync-logs")
	logs.GET("/:id", h.GetLog)

	return []*router.DomainGroup{providers, logs}
}

// ImportRoutes creates the route group for manual bulk import. Uploads are
// capped at maxUploadBytes before the service reads them.
func ImportRoutes(h *ImportHandler, maxUploadBytes int64) *router.DomainGroup {
	group := router.NewDomainGroup("imports", "/imports")

	group.POST("/upload", middleware.BodyLimit(maxUploadBytes+multipartOverhead), h.Upload)
	group.POST("/preview", h.Preview)
	group.POST("/commit", h.Commit)
	group.POST("/cleanup", h.Cleanup)
	group.GET("/template", h.Template)

	logs := group.Group("logs", "/logs")
	logs.GET("", h.ListLogs)
	logs.GET("/:id", h.GetLog)

	return group
}

// SystemRoutes registers liveness and info endpoints outside the API version
func SystemRoutes(engine *gin.Engine, h *SystemHandler) {
	engine.GET("/health", h.Health)

	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", h.GetSystemInfo)
	system.GET("/ping", h.Ping)
	system.RegisterRoutes(engine.Group(""))
}
