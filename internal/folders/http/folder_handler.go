// Package http provides HTTP handlers for folder management.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authHTTP "github.com/allisson/vaultfs/internal/auth/http"
	authUseCase "github.com/allisson/vaultfs/internal/auth/usecase"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDTO "github.com/allisson/vaultfs/internal/files/http/dto"
	"github.com/allisson/vaultfs/internal/folders/http/dto"
	foldersUseCase "github.com/allisson/vaultfs/internal/folders/usecase"
	"github.com/allisson/vaultfs/internal/httputil"
)

// FolderHandler handles HTTP requests for folder management.
type FolderHandler struct {
	folderUseCase foldersUseCase.FolderUseCase
	auditLog      authUseCase.AuditLogUseCase
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler with required dependencies.
func NewFolderHandler(
	folders foldersUseCase.FolderUseCase,
	auditLog authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *FolderHandler {
	return &FolderHandler{
		folderUseCase: folders,
		auditLog:      auditLog,
		logger:        logger,
	}
}

// CreateFolderHandler creates a folder.
// POST /api/folders - Returns 201 Created.
func (h *FolderHandler) CreateFolderHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	input := foldersUseCase.CreateFolderInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.ParentFolderID != nil && *req.ParentFolderID != "" {
		parentID, err := uuid.Parse(*req.ParentFolderID)
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid parent_folder_id"), h.logger)
			return
		}
		input.ParentFolderID = &parentID
	}

	folder, err := h.folderUseCase.Create(c.Request.Context(), session.UserID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFolderToResponse(folder))
}

// ListRootHandler lists root folders and root-level files.
// GET /api/folders - Returns 200 OK.
func (h *FolderHandler) ListRootHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	contents, err := h.folderUseCase.ListRoot(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapContents(contents))
}

// GetFolderHandler returns folder stats and contents.
// GET /api/folders/:id - Returns 200 OK.
func (h *FolderHandler) GetFolderHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid folder id"), h.logger)
		return
	}

	stats, contents, err := h.folderUseCase.Get(c.Request.Context(), session.UserID, folderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.FolderStatsResponse{
		Folder:         dto.MapFolderToResponse(stats.Folder),
		FileCount:      stats.FileCount,
		SubfolderCount: stats.SubfolderCount,
		TotalSize:      stats.TotalSize,
		Contents:       mapContents(contents),
	})
}

// DeleteFolderHandler soft-deletes a folder subtree.
// DELETE /api/folders/:id - Returns 200 OK.
func (h *FolderHandler) DeleteFolderHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid folder id"), h.logger)
		return
	}

	if err := h.folderUseCase.Delete(c.Request.Context(), session.UserID, folderID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.auditLog.Record(c.Request.Context(), authUseCase.AuditEvent{
		UserID:       &session.UserID,
		Action:       authDomain.ActionFolderDelete,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		ResourceType: "folder",
		ResourceID:   folderID.String(),
		Status:       authDomain.StatusSuccess,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Folder deleted"})
}

// mapContents converts folder contents to their public projection.
func mapContents(contents *foldersUseCase.FolderContents) dto.FolderContentsResponse {
	resp := dto.FolderContentsResponse{
		Folders: make([]dto.FolderResponse, 0, len(contents.Folders)),
		Files:   make([]filesDTO.FileResponse, 0, len(contents.Files)),
	}
	for _, folder := range contents.Folders {
		resp.Folders = append(resp.Folders, dto.MapFolderToResponse(folder))
	}
	for _, file := range contents.Files {
		resp.Files = append(resp.Files, filesDTO.MapFileToResponse(file))
	}
	return resp
}
