package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/hrpanel/bulk-import/internal/application/importing"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
)

type ImportHandler struct {
	startImport app.StartImport
	getStatus   app.GetImportStatus
	retryImport app.RetryImport
	listImports app.ListImports
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(startImport app.StartImport, getStatus app.GetImportStatus, retryImport app.RetryImport, listImports app.ListImports) *ImportHandler {
	return &ImportHandler{
		startImport: startImport,
		getStatus:   getStatus,
		retryImport: retryImport,
		listImports: listImports,
	}
}

// StartImport accepts a multipart upload. Small files are processed on the
// request path and answered with final stats; large ones come back as 202
// with an id to poll.
func (h *ImportHandler) StartImport(c echo.Context) error {
	userID := requesterID(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, errResponse("missing_user", "X-User-ID header is required"))
	}

	templateID := c.FormValue("template_id")
	if templateID == "" {
		return c.JSON(http.StatusBadRequest, errResponse("missing_template", "template_id is required"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResponse("missing_file", "file upload is required"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResponse("unreadable_file", "uploaded file could not be read"))
	}
	defer src.Close()

	out, err := h.startImport.Execute(c.Request().Context(), app.StartImportInput{
		TemplateID:  templateID,
		RequestedBy: userID,
		Filename:    fileHeader.Filename,
		File:        src,
		Size:        fileHeader.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidFile):
			return c.JSON(http.StatusBadRequest, errResponse("invalid_file", "file must be a readable .csv or .xlsx"))
		case errors.Is(err, app.ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, errResponse("file_too_large", "file exceeds the import size limit"))
		default:
			return c.JSON(http.StatusInternalServerError, errResponse("internal_error", "failed to start import"))
		}
	}

	if out.Stats != nil {
		return c.JSON(http.StatusOK, apiResponse{Data: out})
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) GetStatus(c echo.Context) error {
	out, err := h.getStatus.Execute(c.Request().Context(), app.GetImportStatusInput{
		ImportID:    c.Param("id"),
		RequestedBy: requesterID(c),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errResponse("not_found", "import not found"))
		}
		return c.JSON(http.StatusInternalServerError, errResponse("internal_error", "failed to load import"))
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) Retry(c echo.Context) error {
	out, err := h.retryImport.Execute(c.Request().Context(), app.RetryImportInput{
		ImportID:    c.Param("id"),
		RequestedBy: requesterID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.JSON(http.StatusNotFound, errResponse("not_found", "import not found"))
		case errors.Is(err, domain.ErrInvalidState):
			return c.JSON(http.StatusConflict, errResponse("invalid_state", "only failed imports can be retried"))
		case errors.Is(err, domain.ErrFileGone):
			return c.JSON(http.StatusGone, errResponse("file_gone", "stored import file no longer exists"))
		default:
			return c.JSON(http.StatusInternalServerError, errResponse("internal_error", "failed to retry import"))
		}
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) List(c echo.Context) error {
	out, err := h.listImports.Execute(c.Request().Context(), app.ListImportsInput{
		RequestedBy: requesterID(c),
		Status:      c.QueryParam("status"),
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidFilter) {
			return c.JSON(http.StatusBadRequest, errResponse("invalid_filter", "unknown status filter"))
		}
		return c.JSON(http.StatusInternalServerError, errResponse("internal_error", "failed to list imports"))
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

// requesterID stands in for the authentication layer, which is owned
// elsewhere; the gateway injects the authenticated user id.
func requesterID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}

func errResponse(code, message string) apiResponse {
	return apiResponse{Error: &errorBody{Code: code, Message: message}}
}
