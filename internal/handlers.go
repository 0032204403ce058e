package internal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ==== Usuário / Autenticação ====

func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Phone    string `json:"phone"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		user := User{Name: req.Name, Email: req.Email, Phone: SanitizePhone(req.Phone), PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			RespondError(c, http.StatusConflict, "e-mail já cadastrado")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
	}
}

func LoginHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		var user User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			RespondError(c, http.StatusUnauthorized, "credenciais inválidas")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			RespondError(c, http.StatusUnauthorized, "credenciais inválidas")
			return
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"exp":     Now().Add(24 * time.Hour).Unix(),
		})
		tokenString, _ := token.SignedString(jwtKey())
		c.JSON(http.StatusOK, gin.H{"token": tokenString})
	}
}

func ProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user User
		if err := db.First(&user, c.GetUint("user_id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "usuário não encontrado")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ==== Imóveis ====

func CreateProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title         string   `json:"title" binding:"required"`
			Description   string   `json:"description"`
			Street        string   `json:"street"`
			Number        string   `json:"number"`
			District      string   `json:"district"`
			City          string   `json:"city" binding:"required"`
			UF            string   `json:"uf" binding:"required,len=2"`
			CEP           string   `json:"cep"`
			Bedrooms      int      `json:"bedrooms"`
			RentAmount    int64    `json:"rent_amount" binding:"required,min=0"`
			ChargesAmount int64    `json:"charges_amount" binding:"min=0"`
			PhotoURLs     []string `json:"photo_urls"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		photos, _ := json.Marshal(req.PhotoURLs)
		prop := Property{
			OwnerID:       c.GetUint("user_id"),
			Title:         req.Title,
			Description:   req.Description,
			Street:        req.Street,
			Number:        req.Number,
			District:      req.District,
			City:          req.City,
			UF:            req.UF,
			CEP:           req.CEP,
			Bedrooms:      req.Bedrooms,
			RentAmount:    req.RentAmount,
			ChargesAmount: req.ChargesAmount,
			PhotoURLs:     datatypes.JSON(photos),
			Status:        PropertyAvailable,
		}
		if err := db.Create(&prop).Error; err != nil {
			RespondError(c, http.StatusInternalServerError, "erro ao salvar imóvel")
			return
		}
		c.JSON(http.StatusCreated, prop)
	}
}

// Vitrine pública: só imóveis disponíveis
func ListAvailableProperties(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var props []Property
		q := db.Where("status = ?", PropertyAvailable)
		if city := c.Query("city"); city != "" {
			q = q.Where("city = ?", city)
		}
		q.Order("created_at desc").Find(&props)
		c.JSON(http.StatusOK, props)
	}
}

func MyProperties(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var props []Property
		db.Where("owner_id = ?", c.GetUint("user_id")).Order("created_at desc").Find(&props)
		c.JSON(http.StatusOK, props)
	}
}

func GetProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var prop Property
		if err := db.Preload("Owner").First(&prop, c.Param("id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "imóvel não encontrado")
			return
		}
		c.JSON(http.StatusOK, prop)
	}
}

func UpdateProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var prop Property
		if err := db.First(&prop, c.Param("id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "imóvel não encontrado")
			return
		}
		if prop.OwnerID != c.GetUint("user_id") {
			RespondError(c, http.StatusForbidden, "imóvel de outro usuário")
			return
		}
		var req struct {
			Title         *string `json:"title"`
			Description   *string `json:"description"`
			Bedrooms      *int    `json:"bedrooms"`
			RentAmount    *int64  `json:"rent_amount"`
			ChargesAmount *int64  `json:"charges_amount"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		if req.Title != nil {
			prop.Title = *req.Title
		}
		if req.Description != nil {
			prop.Description = *req.Description
		}
		if req.Bedrooms != nil {
			prop.Bedrooms = *req.Bedrooms
		}
		if req.RentAmount != nil {
			prop.RentAmount = *req.RentAmount
		}
		if req.ChargesAmount != nil {
			prop.ChargesAmount = *req.ChargesAmount
		}
		db.Save(&prop)
		c.JSON(http.StatusOK, prop)
	}
}

// ==== Contratos ====

func CreateContract(engine *ContractEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PropertyID      uint    `json:"property_id" binding:"required"`
			TenantID        uint    `json:"tenant_id" binding:"required"`
			StartDate       string  `json:"start_date" binding:"required,datetime=2006-01-02"`
			EndDate         string  `json:"end_date" binding:"required,datetime=2006-01-02"`
			RentAmount      int64   `json:"rent_amount" binding:"required,min=0"`
			ChargesAmount   int64   `json:"charges_amount" binding:"min=0"`
			DueDay          int     `json:"due_day" binding:"required,dueday"`
			PaymentMethod   string  `json:"payment_method"`
			LateFeePercent  float64 `json:"late_fee_percent"`
			InterestPercent float64 `json:"interest_percent"`
			AdjustmentIndex string  `json:"adjustment_index"`
			GuaranteeType   *string `json:"guarantee_type"`
			GuaranteeAmount int64   `json:"guarantee_amount"`
			ForoComarca     string  `json:"foro_comarca"`
			ContractCity    string  `json:"contract_city"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		start, _ := time.Parse("2006-01-02", req.StartDate)
		end, _ := time.Parse("2006-01-02", req.EndDate)
		if !end.After(start) {
			RespondError(c, http.StatusBadRequest, "data final precisa ser depois da inicial")
			return
		}
		today := Now()
		ct, err := engine.Create(c.GetUint("user_id"), ContractInput{
			PropertyID:      req.PropertyID,
			TenantID:        req.TenantID,
			StartDate:       start,
			EndDate:         end,
			RentAmount:      req.RentAmount,
			ChargesAmount:   req.ChargesAmount,
			DueDay:          req.DueDay,
			PaymentMethod:   req.PaymentMethod,
			LateFeePercent:  req.LateFeePercent,
			InterestPercent: req.InterestPercent,
			AdjustmentIndex: req.AdjustmentIndex,
			GuaranteeType:   req.GuaranteeType,
			GuaranteeAmount: req.GuaranteeAmount,
			ForoComarca:     req.ForoComarca,
			ContractCity:    req.ContractCity,
			ContractDate:    &today,
		})
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ct)
	}
}

func ListContracts(engine *ContractEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		cts, err := engine.ListForUser(c.GetUint("user_id"))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, cts)
	}
}

func GetContract(engine *ContractEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := engine.Get(c.GetUint("user_id"), ParseUint(c.Param("id"), 0))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

func SignContract(engine *ContractEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			As string `json:"as" binding:"omitempty,oneof=locador locatario"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				RespondError(c, http.StatusBadRequest, "dados inválidos")
				return
			}
		}
		ct, err := engine.Sign(c.GetUint("user_id"), ParseUint(c.Param("id"), 0), SignRequest{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			As:        req.As,
		})
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

func EndContract(engine *ContractEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := engine.End(c.GetUint("user_id"), ParseUint(c.Param("id"), 0))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

// ==== Parcelas ====

// ListInstallments devolve as parcelas do usuário no papel pedido
// (?as=locador|locatario, default locatario). A geração roda antes da
// leitura, dentro do serviço.
func ListInstallments(billing *BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		var rows []InstallmentRow
		var err error
		if c.DefaultQuery("as", SignAsTenant) == SignAsOwner {
			rows, err = billing.ListByOwner(userID)
		} else {
			rows, err = billing.ListByTenant(userID)
		}
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func PayInstallment(billing *BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := billing.MarkPaid(c.GetUint("user_id"), ParseUint(c.Param("id"), 0))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// ==== Documentos ====

func UploadDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		var ct Contract
		if err := db.First(&ct, c.Param("id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "contrato não encontrado")
			return
		}
		if ct.OwnerID != userID && ct.TenantID != userID {
			RespondError(c, http.StatusForbidden, "contrato de outro usuário")
			return
		}
		var req struct {
			Type     string `json:"type" binding:"required"`
			FileName string `json:"file_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		if !DocumentTypes[req.Type] {
			RespondDomainError(c, ErrInvalidType)
			return
		}
		doc := Document{
			ContractID: ct.ID,
			UserID:     userID,
			Type:       req.Type,
			StorageKey: uuid.New(), // o upload do arquivo em si acontece no storage, fora daqui
			FileName:   req.FileName,
			Status:     DocumentPendingReview,
		}
		if err := db.Create(&doc).Error; err != nil {
			RespondError(c, http.StatusInternalServerError, "erro ao salvar documento")
			return
		}
		c.JSON(http.StatusCreated, doc)
	}
}

func ListDocuments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		var ct Contract
		if err := db.First(&ct, c.Param("id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "contrato não encontrado")
			return
		}
		if ct.OwnerID != userID && ct.TenantID != userID {
			RespondError(c, http.StatusForbidden, "contrato de outro usuário")
			return
		}
		var docs []Document
		db.Where("contract_id = ?", ct.ID).Order("created_at desc").Find(&docs)
		c.JSON(http.StatusOK, docs)
	}
}

// Revisão manual do locador; a análise automática fica num colaborador externo.
func ReviewDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var doc Document
		if err := db.First(&doc, c.Param("id")).Error; err != nil {
			RespondError(c, http.StatusNotFound, "documento não encontrado")
			return
		}
		var ct Contract
		if err := db.First(&ct, doc.ContractID).Error; err != nil {
			RespondError(c, http.StatusNotFound, "contrato não encontrado")
			return
		}
		if ct.OwnerID != c.GetUint("user_id") {
			RespondError(c, http.StatusForbidden, "apenas o locador revisa documentos")
			return
		}
		var req struct {
			Status     string `json:"status" binding:"required,oneof=APROVADO REPROVADO"`
			ReviewNote string `json:"review_note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "dados inválidos")
			return
		}
		doc.Status = req.Status
		doc.ReviewNote = req.ReviewNote
		db.Save(&doc)
		c.JSON(http.StatusOK, doc)
	}
}

// ==== Notificações ====

func ListNotifications(store NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ns, err := store.FindByUser(c.GetUint("user_id"))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, ns)
	}
}

func ReadNotification(store NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.MarkRead(ParseUint(c.Param("id"), 0), c.GetUint("user_id"), Now()); err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
