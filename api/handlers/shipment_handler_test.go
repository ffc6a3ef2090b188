package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"example.com/supplychain/services/tracker/internal/ledger"
	"example.com/supplychain/services/tracker/internal/models"
	"example.com/supplychain/services/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock of the service layer for handler testing
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateShipment(ctx context.Context, principal models.Principal, input service.CreateShipmentInput) (*models.Shipment, error) {
	args := m.Called(ctx, principal, input)
	if s, ok := args.Get(0).(*models.Shipment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) GetShipment(ctx context.Context, identifier string) (*models.Shipment, error) {
	args := m.Called(ctx, identifier)
	if s, ok := args.Get(0).(*models.Shipment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ListShipments(ctx context.Context, query service.ListQuery) ([]*models.Shipment, int64, error) {
	args := m.Called(ctx, query)
	if s, ok := args.Get(0).([]*models.Shipment); ok {
		return s, args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *MockService) UpdateShipmentStatus(ctx context.Context, principal models.Principal, shipmentID, newStatus, transactionHash string) (*models.Shipment, error) {
	args := m.Called(ctx, principal, shipmentID, newStatus, transactionHash)
	if s, ok := args.Get(0).(*models.Shipment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) UpdateShipmentFields(ctx context.Context, principal models.Principal, identifier string, update service.FieldUpdate) (*models.Shipment, error) {
	args := m.Called(ctx, principal, identifier, update)
	if s, ok := args.Get(0).(*models.Shipment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) AttachDocument(ctx context.Context, principal models.Principal, identifier string, file io.Reader, filename string) (*models.Shipment, error) {
	args := m.Called(ctx, principal, identifier, file, filename)
	if s, ok := args.Get(0).(*models.Shipment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ShipmentStats(ctx context.Context, finalStatus string) (*service.ShipmentStats, error) {
	args := m.Called(ctx, finalStatus)
	if s, ok := args.Get(0).(*service.ShipmentStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) SearchShipments(ctx context.Context, text string, size int) ([]json.RawMessage, error) {
	args := m.Called(ctx, text, size)
	if s, ok := args.Get(0).([]json.RawMessage); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ReadOnChain(ctx context.Context, identifier string) (*ledger.ShipmentRecord, error) {
	args := m.Called(ctx, identifier)
	if s, ok := args.Get(0).(*ledger.ShipmentRecord); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ReconcileWithLedger(ctx context.Context, shipments []*models.Shipment) ([]*models.Shipment, service.ReconcileReport) {
	args := m.Called(ctx, shipments)
	return args.Get(0).([]*models.Shipment), args.Get(1).(service.ReconcileReport)
}

func (m *MockService) ReconcileRecent(ctx context.Context) (service.ReconcileReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.ReconcileReport), args.Error(1)
}

func newTestRouter(svc service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := NewShipmentHandler(svc, log)

	r := gin.New()
	r.POST("/shipments", h.CreateShipment)
	r.GET("/shipments", h.ListShipments)
	r.GET("/shipments/stats", h.ShipmentStats)
	r.PATCH("/shipments/status", h.UpdateShipmentStatus)
	r.GET("/shipments/:id", h.GetShipment)
	r.PUT("/shipments/:id", h.UpdateShipmentFields)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateShipmentReturns201(t *testing.T) {
	svc := new(MockService)
	svc.On("CreateShipment", mock.Anything, mock.Anything, mock.AnythingOfType("service.CreateShipmentInput")).
		Return(&models.Shipment{ShipmentID: "SH-1", Status: models.StatusCreated}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/shipments",
		`{"shipmentId":"SH-1","productName":"Widget","quantity":10,"manufacturingDate":"2024-03-01","producerAddress":"0xabc"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var shipment models.Shipment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shipment))
	require.Equal(t, "SH-1", shipment.ShipmentID)
	svc.AssertExpectations(t)
}

func TestCreateShipmentRejectsUnknownFields(t *testing.T) {
	svc := new(MockService)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/shipments",
		`{"shipmentId":"SH-1","color":"green"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidationErrorListsRequiredFields(t *testing.T) {
	svc := new(MockService)
	svc.On("CreateShipment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, service.NewValidationError("missing required fields", "quantity", "producerAddress"))

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/shipments", `{"shipmentId":"SH-1"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Code)
	require.Equal(t, []string{"quantity", "producerAddress"}, resp.Required)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", &service.ConflictError{Field: "shipmentId", Value: "SH-1"}, http.StatusConflict},
		{"not found", &service.NotFoundError{Identifier: "SH-1"}, http.StatusNotFound},
		{"transient", &service.TransientExternalError{Cause: errors.New("rpc down")}, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("GetShipment", mock.Anything, "SH-1").Return(nil, tc.err)

			w := doJSON(t, newTestRouter(svc), http.MethodGet, "/shipments/SH-1", "")

			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestUnexpectedErrorLeaksNoDetail(t *testing.T) {
	svc := new(MockService)
	svc.On("GetShipment", mock.Anything, "SH-1").Return(nil, errors.New("pq: relation shipments does not exist"))

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/shipments/SH-1", "")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "pq:")
}

func TestListShipmentsPaginationMetadata(t *testing.T) {
	svc := new(MockService)
	svc.On("ListShipments", mock.Anything, mock.AnythingOfType("service.ListQuery")).
		Return([]*models.Shipment{{ShipmentID: "SH-1"}}, int64(205), nil)

	// Requested limit above the cap; metadata must reflect the clamped value
	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/shipments?page=2&limit=500", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []models.Shipment `json:"data"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Pagination.Page)
	require.Equal(t, 100, resp.Pagination.Limit)
	require.Equal(t, int64(205), resp.Pagination.Total)
	require.Equal(t, int64(3), resp.Pagination.Pages)
}

func TestUpdateShipmentStatusResponse(t *testing.T) {
	svc := new(MockService)
	svc.On("UpdateShipmentStatus", mock.Anything, mock.Anything, "SH-1", "SHIPPED", "0xfeed").
		Return(&models.Shipment{ShipmentID: "SH-1", Status: models.StatusShipped}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodPatch, "/shipments/status",
		`{"shipmentId":"SH-1","newStatus":"SHIPPED","transactionHash":"0xfeed"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string          `json:"message"`
		Data    models.Shipment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, models.StatusShipped, resp.Data.Status)
	svc.AssertExpectations(t)
}

func TestShipmentStatsEndpoint(t *testing.T) {
	svc := new(MockService)
	svc.On("ShipmentStats", mock.Anything, "").
		Return(&service.ShipmentStats{TotalShipments: 12, FinalStatus: models.StatusForSale, FinalShipments: 4}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/shipments/stats", "")

	require.Equal(t, http.StatusOK, w.Code)

	var stats service.ShipmentStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(12), stats.TotalShipments)
	require.Equal(t, int64(4), stats.FinalShipments)
}
