package bootstrap

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpecho "github.com/hrpanel/bulk-import/internal/interfaces/http/echo"
)

func NewHTTPServer(importHandler *httpecho.ImportHandler, exportHandler *httpecho.ExportHandler, bodyLimit string) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.Logger())
	if bodyLimit != "" {
		server.Use(middleware.BodyLimit(bodyLimit))
	}

	httpecho.RegisterRoutes(server, importHandler, exportHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return server
}
