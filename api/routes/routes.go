package routes

import (
	"example.com/supplychain/services/tracker/api/handlers"
	"example.com/supplychain/services/tracker/api/middleware"
	"example.com/supplychain/services/tracker/internal/models"
	"example.com/supplychain/services/tracker/internal/repository"
	"example.com/supplychain/services/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, repo repository.Repository, log *logrus.Logger, maxUploadSize int64) {
	// Health check
	r.GET("/health", handlers.HealthCheck)

	// API routes
	api := r.Group("/api/v1")

	shipmentHandler := handlers.NewShipmentHandler(svc, log)
	documentHandler := handlers.NewDocumentHandler(svc, log, maxUploadSize)

	viewer := middleware.APIKeyAuth(repo, log, models.ViewerAuthLevel)
	writer := middleware.APIKeyAuth(repo, log, models.WriterAuthLevel)
	admin := middleware.APIKeyAuth(repo, log, models.AdminAuthLevel)

	shipments := api.Group("/shipments")
	{
		shipments.GET("", viewer, shipmentHandler.ListShipments)
		shipments.POST("", writer, shipmentHandler.CreateShipment)
		shipments.GET("/search", viewer, shipmentHandler.SearchShipments)
		shipments.GET("/stats", viewer, shipmentHandler.ShipmentStats)
		shipments.PATCH("/status", writer, shipmentHandler.UpdateShipmentStatus)
		shipments.POST("/reconcile", admin, shipmentHandler.Reconcile)
		shipments.GET("/:id", viewer, shipmentHandler.GetShipment)
		shipments.PUT("/:id", writer, shipmentHandler.UpdateShipmentFields)
		shipments.GET("/:id/onchain", viewer, shipmentHandler.ReadOnChain)
		shipments.POST("/:id/documents", writer, documentHandler.UploadDocument)
	}
}
