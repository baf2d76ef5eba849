package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/session"
)

// ImportHandler serves the import session endpoints
type ImportHandler struct {
	runner   *pipeline.Runner
	sessions session.Repository
	logger   *zerolog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(runner *pipeline.Runner, sessions session.Repository, logger *zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		runner:   runner,
		sessions: sessions,
		logger:   logger,
	}
}

// ImportStartedResponse is the 202 response of an accepted upload
type ImportStartedResponse struct {
	SessionID string         `json:"sessionId" jsonschema:"required"`
	Status    session.Status `json:"status" jsonschema:"required"`
	PollURL   string         `json:"pollUrl" jsonschema:"required"`
}

// ListImportsRequest represents query parameters for listing import sessions
type ListImportsRequest struct {
	UserID string `form:"userId" json:"userId" binding:"required"`
	Limit  int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=100" jsonschema:"minimum=1,maximum=100"`
	Offset int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListImportsResponse represents the response for listing import sessions
type ListImportsResponse struct {
	Sessions []session.Progress `json:"sessions" jsonschema:"required"`
	Total    int                `json:"total" jsonschema:"required"`
}

// ConfirmMappingRequest carries the operator's column mapping. Keys are
// zero-based column indexes.
type ConfirmMappingRequest struct {
	Mapping map[int]string        `json:"mapping" binding:"required" jsonschema:"required"`
	Config  *session.ImportConfig `json:"config,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error" jsonschema:"required"`
}

// CreateImport accepts an upload and starts a session
// @Summary Upload a product file
// @Description Stores a CSV or XLSX file and queues its analysis. config and mapping are optional JSON form fields.
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Param userId formData string true "Owner of the session"
// @Param config formData string false "ImportConfig as JSON"
// @Param mapping formData string false "Column mapping as JSON, e.g. {\"0\":\"product_name\"}"
// @Success 202 {object} ImportStartedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /imports [post]
func (h *ImportHandler) CreateImport(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}

	req := pipeline.IntakeRequest{
		UserID:   c.PostForm("userId"),
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	}
	if raw := c.PostForm("config"); raw != "" {
		var cfg session.ImportConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid config: %v", err)})
			return
		}
		req.Config = &cfg
	}
	if raw := c.PostForm("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Mapping); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid mapping: %v", err)})
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read upload"})
		return
	}
	defer f.Close()
	req.Body = f

	s, err := h.runner.Intake(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, ImportStartedResponse{
		SessionID: s.ID,
		Status:    s.Status,
		PollURL:   fmt.Sprintf("/internal/imports/%s/status", s.ID),
	})
}

// ListImports returns a user's sessions, newest first
// @Summary List import sessions
// @Tags imports
// @Produce json
// @Param userId query string true "Owner of the sessions"
// @Param limit query int false "Number of items to return" default(20) minimum(1) maximum(100)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListImportsResponse
// @Failure 400 {object} ErrorResponse
// @Router /imports [get]
func (h *ImportHandler) ListImports(c *gin.Context) {
	var req ListImportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	list, total, err := h.sessions.ListByUser(c.Request.Context(), req.UserID, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := ListImportsResponse{Sessions: make([]session.Progress, 0, len(list)), Total: total}
	for _, s := range list {
		resp.Sessions = append(resp.Sessions, s.Progress())
	}
	c.JSON(http.StatusOK, resp)
}

// GetImport returns the full session
// @Summary Get an import session
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.ImportSession
// @Failure 404 {object} ErrorResponse
// @Router /imports/{id} [get]
func (h *ImportHandler) GetImport(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetImportStatus returns the progress snapshot polled by clients
// @Summary Get import progress
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.Progress
// @Failure 404 {object} ErrorResponse
// @Router /imports/{id}/status [get]
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Progress())
}

// ConfirmMapping stores the column mapping and starts the dry run
// @Summary Confirm the column mapping
// @Tags imports
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ConfirmMappingRequest true "Mapping and optional config"
// @Success 200 {object} session.Progress
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /imports/{id}/mapping [put]
func (h *ImportHandler) ConfirmMapping(c *gin.Context) {
	var req ConfirmMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	s, err := h.runner.ConfirmMapping(c.Request.Context(), c.Param("id"), req.Mapping, req.Config)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Progress())
}

// CancelImport stops a running session
// @Summary Cancel an import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.Progress
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /imports/{id}/cancel [post]
func (h *ImportHandler) CancelImport(c *gin.Context) {
	s, err := h.runner.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Progress())
}

// DeleteImport removes a session and its stored file
// @Summary Delete an import
// @Tags imports
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /imports/{id} [delete]
func (h *ImportHandler) DeleteImport(c *gin.Context) {
	if err := h.runner.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetReport returns the final report
// @Summary Get the import report
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.Report
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /imports/{id}/report [get]
func (h *ImportHandler) GetReport(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if s.FinalResult == nil {
		h.respondError(c, pipeline.ErrReportNotReady)
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	if err := pipeline.WriteReportJSON(c.Writer, s); err != nil {
		h.logger.Error().Err(err).Str("session_id", s.ID).Msg("Failed to write report")
	}
}

// GetErrorsCSV downloads the session errors
// @Summary Download row errors as CSV
// @Tags imports
// @Produce text/csv
// @Param id path string true "Session ID"
// @Success 200 {string} string "row,message,timestamp"
// @Failure 404 {object} ErrorResponse
// @Router /imports/{id}/errors.csv [get]
func (h *ImportHandler) GetErrorsCSV(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	name := strings.TrimSuffix(s.FileName, "."+string(s.FileType))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-errors-%s.csv"`,
		name, time.Now().UTC().Format("20060102")))
	if err := pipeline.WriteErrorsCSV(c.Writer, s); err != nil {
		h.logger.Error().Err(err).Str("session_id", s.ID).Msg("Failed to write errors CSV")
	}
}

// respondError maps domain errors to HTTP statuses
func (h *ImportHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, pipeline.ErrReportNotReady):
		status = http.StatusConflict
	case errors.Is(err, pipeline.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrInvalidConfig),
		errors.Is(err, pipeline.ErrInvalidMapping),
		errors.Is(err, pipeline.ErrUnsupportedFile):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Import request failed")
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// RegisterImportRoutes registers import routes with the Gin router
func RegisterImportRoutes(r *gin.RouterGroup, handler *ImportHandler) {
	imports := r.Group("/imports")
	imports.POST("", handler.CreateImport)
	imports.GET("", handler.ListImports)
	imports.GET("/:id", handler.GetImport)
	imports.GET("/:id/status", handler.GetImportStatus)
	imports.PUT("/:id/mapping", handler.ConfirmMapping)
	imports.POST("/:id/cancel", handler.CancelImport)
	imports.DELETE("/:id", handler.DeleteImport)
	imports.GET("/:id/report", handler.GetReport)
	imports.GET("/:id/errors.csv", handler.GetErrorsCSV)
}
