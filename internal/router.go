package internal

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes pendura todos os endpoints no engine do gin. Rotas públicas
// ficam fora do grupo autenticado: cadastro, login e a vitrine de imóveis.
func SetupRoutes(r *gin.Engine, db *gorm.DB, contracts *ContractEngine, billing *BillingService, notifications NotificationStore) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/auth/register", RegisterHandler(db))
	r.POST("/auth/login", LoginHandler(db))
	r.GET("/properties", ListAvailableProperties(db))
	r.GET("/properties/:id", GetProperty(db))

	auth := r.Group("", AuthMiddleware())
	auth.GET("/me", ProfileHandler(db))
	auth.POST("/properties", CreateProperty(db))
	auth.GET("/properties/mine", MyProperties(db))
	auth.PUT("/properties/:id", UpdateProperty(db))
	auth.POST("/contracts", CreateContract(contracts))
	auth.GET("/contracts", ListContracts(contracts))
	auth.GET("/contracts/:id", GetContract(contracts))
	auth.POST("/contracts/:id/sign", SignContract(contracts))
	auth.POST("/contracts/:id/end", EndContract(contracts))
	auth.POST("/contracts/:id/documents", UploadDocument(db))
	auth.GET("/contracts/:id/documents", ListDocuments(db))
	auth.PUT("/documents/:id/review", ReviewDocument(db))
	auth.GET("/installments", ListInstallments(billing))
	auth.POST("/installments/:id/pay", PayInstallment(billing))
	auth.GET("/notifications", ListNotifications(notifications))
	auth.POST("/notifications/:id/read", ReadNotification(notifications))
}
