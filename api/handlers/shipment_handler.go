package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"example.com/supplychain/services/tracker/api/middleware"
	"example.com/supplychain/services/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ShipmentHandler handles shipment-related requests
type ShipmentHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewShipmentHandler creates a new ShipmentHandler instance
func NewShipmentHandler(svc service.Service, log *logrus.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		service: svc,
		log:     log,
	}
}

// bindStrict decodes the request body with a closed field set: unknown
// fields are a validation error, not silently dropped.
func bindStrict(c *gin.Context, out interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// CreateShipmentRequest is the body of POST /shipments
type CreateShipmentRequest struct {
	ShipmentID        string `json:"shipmentId"`
	ProductName       string `json:"productName"`
	Quantity          *int64 `json:"quantity"`
	ManufacturingDate string `json:"manufacturingDate"`
	Status            string `json:"status"`
	TransactionHash   string `json:"transactionHash"`
	ProducerAddress   string `json:"producerAddress"`
}

// CreateShipment handles POST /shipments
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if err := bindStrict(c, &req); err != nil {
		h.log.WithError(err).Warn("Invalid shipment payload")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	shipment, err := h.service.CreateShipment(c.Request.Context(), middleware.GetPrincipal(c), service.CreateShipmentInput{
		ShipmentID:        req.ShipmentID,
		ProductName:       req.ProductName,
		Quantity:          req.Quantity,
		ManufacturingDate: req.ManufacturingDate,
		Status:            req.Status,
		TransactionHash:   req.TransactionHash,
		ProducerAddress:   req.ProducerAddress,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, shipment)
}

// GetShipment handles GET /shipments/:id, accepting either the external
// shipmentId or the internal storage key
func (h *ShipmentHandler) GetShipment(c *gin.Context) {
	shipment, err := h.service.GetShipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// ListShipments handles GET /shipments with filtering and pagination
func (h *ShipmentHandler) ListShipments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := service.ListQuery{
		Status:          c.Query("status"),
		TextQuery:       c.Query("q"),
		ProducerAddress: c.Query("producerAddress"),
		From:            c.Query("from"),
		To:              c.Query("to"),
		Page:            page,
		PageSize:        limit,
		Sort:            c.DefaultQuery("sort", "-createdAt"),
	}

	shipments, total, err := h.service.ListShipments(c.Request.Context(), query)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	effectiveLimit := service.EffectivePageSize(limit)
	effectivePage := page
	if effectivePage < 1 {
		effectivePage = 1
	}
	pages := (total + int64(effectiveLimit) - 1) / int64(effectiveLimit)

	c.JSON(http.StatusOK, gin.H{
		"data": shipments,
		"pagination": gin.H{
			"page":  effectivePage,
			"limit": effectiveLimit,
			"total": total,
			"pages": pages,
		},
	})
}

// UpdateStatusRequest is the body of PATCH /shipments/status
type UpdateStatusRequest struct {
	ShipmentID      string `json:"shipmentId"`
	NewStatus       string `json:"newStatus"`
	TransactionHash string `json:"transactionHash"`
}

// UpdateShipmentStatus handles PATCH /shipments/status
func (h *ShipmentHandler) UpdateShipmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := bindStrict(c, &req); err != nil {
		h.log.WithError(err).Warn("Invalid status update payload")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	shipment, err := h.service.UpdateShipmentStatus(
		c.Request.Context(),
		middleware.GetPrincipal(c),
		req.ShipmentID,
		req.NewStatus,
		req.TransactionHash,
	)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipment status updated successfully",
		"data":    shipment,
	})
}

// UpdateFieldsRequest is the body of PUT /shipments/:id
type UpdateFieldsRequest struct {
	Status          *string `json:"status"`
	TransactionHash *string `json:"transactionHash"`
	IPFSHash        *string `json:"ipfsHash"`
}

// UpdateShipmentFields handles PUT /shipments/:id
func (h *ShipmentHandler) UpdateShipmentFields(c *gin.Context) {
	var req UpdateFieldsRequest
	if err := bindStrict(c, &req); err != nil {
		h.log.WithError(err).Warn("Invalid update payload")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	shipment, err := h.service.UpdateShipmentFields(
		c.Request.Context(),
		middleware.GetPrincipal(c),
		c.Param("id"),
		service.FieldUpdate{
			Status:          req.Status,
			TransactionHash: req.TransactionHash,
			IPFSHash:        req.IPFSHash,
		},
	)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipment updated successfully",
		"data":    shipment,
	})
}

// ShipmentStats handles GET /shipments/stats
func (h *ShipmentHandler) ShipmentStats(c *gin.Context) {
	stats, err := h.service.ShipmentStats(c.Request.Context(), c.Query("finalStatus"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SearchShipments handles GET /shipments/search against the optional
// Elasticsearch index
func (h *ShipmentHandler) SearchShipments(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	hits, err := h.service.SearchShipments(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": hits})
}

// ReadOnChain handles GET /shipments/:id/onchain
func (h *ShipmentHandler) ReadOnChain(c *gin.Context) {
	record, err := h.service.ReadOnChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Reconcile handles POST /shipments/reconcile
func (h *ShipmentHandler) Reconcile(c *gin.Context) {
	report, err := h.service.ReconcileRecent(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
