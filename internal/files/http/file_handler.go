// Package http provides HTTP handlers for file upload, download and
// management operations.
package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authHTTP "github.com/allisson/vaultfs/internal/auth/http"
	authUseCase "github.com/allisson/vaultfs/internal/auth/usecase"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	"github.com/allisson/vaultfs/internal/files/http/dto"
	filesUseCase "github.com/allisson/vaultfs/internal/files/usecase"
	"github.com/allisson/vaultfs/internal/httputil"
	"github.com/allisson/vaultfs/internal/metrics"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
)

// maxChunkBytes bounds one chunk request body. Slightly above the agreed
// chunk size to leave room for multipart framing.
const maxChunkBytes = 8 << 20

// FileHandler handles HTTP requests for the upload state machine and file
// read paths.
type FileHandler struct {
	uploadUseCase filesUseCase.UploadUseCase
	fileUseCase   filesUseCase.FileUseCase
	quotaUseCase  userUsecase.QuotaUseCase
	auditLog      authUseCase.AuditLogUseCase
	business      *metrics.Business
	logger        *slog.Logger
}

// NewFileHandler creates a new file handler with required dependencies.
func NewFileHandler(
	upload filesUseCase.UploadUseCase,
	files filesUseCase.FileUseCase,
	quota userUsecase.QuotaUseCase,
	auditLog authUseCase.AuditLogUseCase,
	business *metrics.Business,
	logger *slog.Logger,
) *FileHandler {
	return &FileHandler{
		uploadUseCase: upload,
		fileUseCase:   files,
		quotaUseCase:  quota,
		auditLog:      auditLog,
		business:      business,
		logger:        logger,
	}
}

// InitUploadHandler begins an upload, reserving quota.
// POST /api/files/upload/init - Returns 200 OK with the upload id.
func (h *FileHandler) InitUploadHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	input := filesUseCase.InitUploadInput{
		FileName: req.FileName,
		FileSize: req.FileSize,
		MimeType: req.MimeType,
	}
	if req.FolderID != nil && *req.FolderID != "" {
		folderID, err := uuid.Parse(*req.FolderID)
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid folder_id"), h.logger)
			return
		}
		input.FolderID = &folderID
	}

	result, err := h.uploadUseCase.Init(c.Request.Context(), session.UserID, input)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrQuotaExceeded) {
			h.business.QuotaRejected(c.Request.Context())
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.InitUploadResponse{
		UploadID:    result.UploadID.String(),
		TotalChunks: result.TotalChunks,
		ChunkSize:   result.ChunkSize,
	})
}

// ChunkUploadHandler stores one chunk, sent as multipart form data with
// upload_id, chunk_index and a chunk file part.
// POST /api/files/upload/chunk - Returns 200 OK.
func (h *FileHandler) ChunkUploadHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxChunkBytes)

	uploadID, err := uuid.Parse(c.PostForm("upload_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid upload_id"), h.logger)
		return
	}

	chunkIndex, err := strconv.Atoi(c.PostForm("chunk_index"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid chunk_index"), h.logger)
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("missing chunk part"), h.logger)
		return
	}

	part, err := fileHeader.Open()
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(err, "failed to open chunk part"), h.logger)
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(err, "failed to read chunk part"), h.logger)
		return
	}

	err = h.uploadUseCase.Chunk(c.Request.Context(), session.UserID, uploadID, chunkIndex, data)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ChunkResponse{
		UploadID:   uploadID.String(),
		ChunkIndex: chunkIndex,
		ChunkSize:  len(data),
	})
}

// FinalizeUploadHandler assembles, encrypts and persists the upload.
// POST /api/files/upload/finalize - Returns 200 OK with the file record.
func (h *FileHandler) FinalizeUploadHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.FinalizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	uploadID, err := uuid.Parse(req.UploadID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid upload_id"), h.logger)
		return
	}

	file, err := h.uploadUseCase.Finalize(c.Request.Context(), session.UserID, uploadID, session.PDK)
	if err != nil {
		h.audit(c, session, authDomain.ActionUploadFinalize, uploadID.String(), authDomain.StatusFailure, err)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.business.UploadFinalized(c.Request.Context(), file.FileSize)
	h.audit(c, session, authDomain.ActionUploadFinalize, file.ID.String(), authDomain.StatusSuccess, nil)

	c.JSON(http.StatusOK, dto.MapFileToResponse(file))
}

// CancelUploadHandler aborts a pending upload.
// POST /api/files/upload/cancel - Returns 200 OK.
func (h *FileHandler) CancelUploadHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.CancelUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	uploadID, err := uuid.Parse(req.UploadID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid upload_id"), h.logger)
		return
	}

	if err := h.uploadUseCase.Cancel(c.Request.Context(), session.UserID, uploadID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Upload cancelled"})
}

// ListFilesHandler lists the caller's files.
// GET /api/files?limit=N&offset=M - Returns 200 OK.
func (h *FileHandler) ListFilesHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)

	files, err := h.fileUseCase.List(c.Request.Context(), session.UserID, limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]dto.FileResponse, 0, len(files))
	for _, file := range files {
		responses = append(responses, dto.MapFileToResponse(file))
	}

	c.JSON(http.StatusOK, dto.ListFilesResponse{Files: responses, Count: len(responses)})
}

// StorageInfoHandler reports quota and usage.
// GET /api/files/storage/info - Returns 200 OK.
func (h *FileHandler) StorageInfoHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	user, err := h.quotaUseCase.StorageInfo(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var percent float64
	if user.QuotaBytes > 0 {
		percent = float64(user.UsedBytes) / float64(user.QuotaBytes) * 100
	}

	c.JSON(http.StatusOK, dto.StorageInfoResponse{
		QuotaBytes:     user.QuotaBytes,
		UsedBytes:      user.UsedBytes,
		AvailableBytes: user.AvailableBytes(),
		UsagePercent:   percent,
		Plan:           string(user.Plan),
	})
}

// DownloadFileHandler streams the decrypted file body.
// GET /api/files/:id - Returns 200 OK with application/octet-stream.
func (h *FileHandler) DownloadFileHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid file id"), h.logger)
		return
	}

	result, err := h.fileUseCase.Download(c.Request.Context(), session.UserID, fileID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrIntegrity) {
			h.audit(c, session, authDomain.ActionIntegrity, fileID.String(), authDomain.StatusFailure, err)
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, session, authDomain.ActionFileDownload, fileID.String(), authDomain.StatusSuccess, nil)

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(result.File.OriginalFilename)))
	c.DataFromReader(
		http.StatusOK,
		result.File.FileSize,
		"application/octet-stream",
		result.Reader,
		nil,
	)
}

// DeleteFileHandler soft-deletes a file.
// DELETE /api/files/:id - Returns 200 OK with the released quota.
func (h *FileHandler) DeleteFileHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid file id"), h.logger)
		return
	}

	size, err := h.fileUseCase.Delete(c.Request.Context(), session.UserID, fileID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, session, authDomain.ActionFileDelete, fileID.String(), authDomain.StatusSuccess, nil)

	c.JSON(http.StatusOK, dto.DeleteFileResponse{
		Message:       "File deleted",
		QuotaReleased: size,
	})
}

// RecalculateQuotaHandler recomputes used_bytes from live file records.
// POST /api/files/recalculate-quota - Returns 200 OK.
func (h *FileHandler) RecalculateQuotaHandler(c *gin.Context) {
	session, ok := authHTTP.GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	used, err := h.quotaUseCase.Recalculate(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RecalculateQuotaResponse{
		UsedBytes: used,
		Message:   "Storage usage recalculated",
	})
}

// FileIDKey extracts the file id path parameter for per-file rate limiting.
func FileIDKey(c *gin.Context) string {
	return c.Param("id")
}

// audit emits a security event for a file operation.
func (h *FileHandler) audit(
	c *gin.Context,
	session *authDomain.Session,
	action, resourceID, status string,
	err error,
) {
	event := authUseCase.AuditEvent{
		UserID:       &session.UserID,
		Action:       action,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		ResourceType: "file",
		ResourceID:   resourceID,
		Status:       status,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	h.auditLog.Record(c.Request.Context(), event)
}

// sanitizeFilename strips characters that would break the Content-Disposition
// header out of user-controlled filenames.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\':
			return '_'
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
}
