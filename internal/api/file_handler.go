package api

import (
	"net/http"

	"go-markboard/internal/service"

	"github.com/gin-gonic/gin"
)

// FileHandler 处理文件相关的API请求
type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	files, err := h.fileService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *FileHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.CreateFileRequest
	if !bindJSON(c, &req) {
		return
	}

	file, err := h.fileService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, file, "File created successfully")
}

func (h *FileHandler) Read(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	file, err := h.fileService.Read(c.Request.Context(), fileID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, file, "")
}

func (h *FileHandler) Update(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateFileRequest
	if !bindJSON(c, &req) {
		return
	}

	file, err := h.fileService.Update(c.Request.Context(), fileID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, file, "File updated successfully")
}

func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), fileID, userID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "File deleted successfully")
}

// Content 只返回文件名和内容
func (h *FileHandler) Content(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	name, content, err := h.fileService.Content(c.Request.Context(), fileID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "content": string(content)})
}

func (h *FileHandler) Versions(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	versions, err := h.fileService.Versions(c.Request.Context(), fileID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_id": fileID, "versions": versions})
}
