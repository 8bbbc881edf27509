package echo

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrpanel/bulk-import/internal/export"
)

type ExportHandler struct {
	streamer *export.Streamer
}

func NewExportHandler(streamer *export.Streamer) *ExportHandler {
	return &ExportHandler{streamer: streamer}
}

// Export streams matching submissions as an attachment. The format is
// chosen by estimated row count unless the caller forces one.
func (h *ExportHandler) Export(c echo.Context) error {
	templateID := c.Param("id")
	filter := export.Filter{SubmittedBy: c.QueryParam("submitted_by")}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errResponse("invalid_filter", "from must be RFC3339"))
		}
		filter.From = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errResponse("invalid_filter", "to must be RFC3339"))
		}
		filter.To = &t
	}

	ctx := c.Request().Context()

	format := export.Format(c.QueryParam("format"))
	if format != export.FormatCSV && format != export.FormatXLSX {
		chosen, err := h.streamer.EstimateFormat(ctx, templateID, filter)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errResponse("internal_error", "failed to prepare export"))
		}
		format = chosen
	}

	if format == export.FormatCSV {
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="submissions.csv"`)
	} else {
		c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="submissions.xlsx"`)
	}
	c.Response().WriteHeader(http.StatusOK)

	return h.streamer.Stream(ctx, c.Response(), format, templateID, filter)
}
