package handlers

import (
	"net/http"

	"example.com/supplychain/services/tracker/api/middleware"
	"example.com/supplychain/services/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler handles shipment document uploads
type DocumentHandler struct {
	service     service.Service
	log         *logrus.Logger
	maxFileSize int64
}

// NewDocumentHandler creates a new DocumentHandler instance
func NewDocumentHandler(svc service.Service, log *logrus.Logger, maxFileSize int64) *DocumentHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &DocumentHandler{
		service:     svc,
		log:         log,
		maxFileSize: maxFileSize,
	}
}

// UploadDocument handles POST /shipments/:id/documents. The file is pinned
// to IPFS and the resulting CID stored as the shipment's ipfsHash.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:  "missing required fields",
			Code:     "VALIDATION_ERROR",
			Required: []string{"file"},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "file exceeds the maximum allowed size",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
		return
	}
	defer file.Close()

	shipment, err := h.service.AttachDocument(
		c.Request.Context(),
		middleware.GetPrincipal(c),
		c.Param("id"),
		file,
		fileHeader.Filename,
	)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Document pinned successfully",
		"ipfsHash": shipment.IPFSHash,
		"data":     shipment,
	})
}
