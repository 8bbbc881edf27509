package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, exportHandler *ExportHandler) {
	server.POST("/api/v1/imports", importHandler.StartImport)
	server.GET("/api/v1/imports", importHandler.List)
	server.GET("/api/v1/imports/:id", importHandler.GetStatus)
	server.POST("/api/v1/imports/:id/retry", importHandler.Retry)
	server.GET("/api/v1/templates/:id/export", exportHandler.Export)
}
