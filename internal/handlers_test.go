package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)
	RegisterValidations()
	db := setupTestDB(t)
	stores := NewGormStores(db)
	log := zap.NewNop().Sugar()
	notifier := NewNotifier(stores.Notifications, log)
	contracts := NewContractEngine(stores, NewTxRunner(db), notifier, log)
	billing := NewBillingService(stores, notifier, log)

	r := gin.New()
	SetupRoutes(r, db, contracts, billing, stores.Notifications)
	return r, db
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerAndLogin(t *testing.T, r *gin.Engine, email string) (uint, string) {
	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Fulano", "email": email, "password": "segredo123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "segredo123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id, decode(t, w)["token"].(string)
}

func createPropertyHTTP(t *testing.T, r *gin.Engine, token string) uint {
	w := doJSON(r, http.MethodPost, "/properties", token, gin.H{
		"title": "Apto centro", "city": "Curitiba", "uf": "PR",
		"rent_amount": 100000, "charges_amount": 20000,
		"photo_urls": []string{"https://fotos/1.jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["ID"].(float64))
}

func contractBody(propID, tenantID uint) gin.H {
	start := Now().AddDate(0, -1, 0)
	end := Now().AddDate(1, 0, 0)
	return gin.H{
		"property_id": propID, "tenant_id": tenantID,
		"start_date": start.Format("2006-01-02"), "end_date": end.Format("2006-01-02"),
		"rent_amount": 100000, "charges_amount": 20000, "due_day": 5,
	}
}

func makeToken(t *testing.T, userID uint, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     exp.Unix(),
	})
	s, err := token.SignedString(jwtKey())
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	r, _ := setupRouter(t)
	w := doJSON(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContractFlowOverHTTP(t *testing.T) {
	r, db := setupRouter(t)
	_, ownerTok := registerAndLogin(t, r, "locador@x.com")
	tenantID, tenantTok := registerAndLogin(t, r, "locatario@x.com")
	propID := createPropertyHTTP(t, r, ownerTok)

	// dia de vencimento fora de 1..28 é barrado no binding
	bad := contractBody(propID, tenantID)
	bad["due_day"] = 31
	w := doJSON(r, http.MethodPost, "/contracts", ownerTok, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/contracts", ownerTok, contractBody(propID, tenantID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	ctID := uint(body["ID"].(float64))
	assert.Equal(t, ContractPendingSignature, body["status"])

	// imóvel some da vitrine
	w = doJSON(r, http.MethodGet, "/properties", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed)

	// locatário não cria contrato em imóvel alheio
	w = doJSON(r, http.MethodPost, "/contracts", tenantTok, contractBody(propID, tenantID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// assinatura dupla ativa o contrato
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/contracts/%d/sign", ctID), tenantTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, ContractPendingSignature, decode(t, w)["status"])

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/contracts/%d/sign", ctID), ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContractActive, decode(t, w)["status"])

	// listagem de parcelas gera mês corrente + seguinte
	w = doJSON(r, http.MethodGet, "/installments", tenantTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []InstallmentRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(120000), rows[0].Installment.Amount)

	// só o locador marca pagamento
	payPath := fmt.Sprintf("/installments/%d/pay", rows[0].Installment.ID)
	w = doJSON(r, http.MethodPost, payPath, tenantTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPost, payPath, ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, InstallmentPaid, decode(t, w)["status"])

	// pagar de novo é no-op
	w = doJSON(r, http.MethodPost, payPath, ownerTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// encerramento devolve o imóvel e a repetição é rejeitada
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/contracts/%d/end", ctID), ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContractEnded, decode(t, w)["status"])

	var prop Property
	require.NoError(t, db.First(&prop, propID).Error)
	assert.Equal(t, PropertyAvailable, prop.Status)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/contracts/%d/end", ctID), ownerTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// notificações do locatário acumularam os eventos do ciclo
	w = doJSON(r, http.MethodGet, "/notifications", tenantTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ns []Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ns))
	assert.NotEmpty(t, ns)
}

func TestDocumentFlowOverHTTP(t *testing.T) {
	r, _ := setupRouter(t)
	_, ownerTok := registerAndLogin(t, r, "locador@x.com")
	tenantID, tenantTok := registerAndLogin(t, r, "locatario@x.com")
	propID := createPropertyHTTP(t, r, ownerTok)

	w := doJSON(r, http.MethodPost, "/contracts", ownerTok, contractBody(propID, tenantID))
	require.Equal(t, http.StatusCreated, w.Code)
	ctID := uint(decode(t, w)["ID"].(float64))

	docsPath := fmt.Sprintf("/contracts/%d/documents", ctID)

	// tipo desconhecido é rejeitado
	w = doJSON(r, http.MethodPost, docsPath, tenantTok, gin.H{"type": "PASSAPORTE", "file_name": "doc.pdf"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, docsPath, tenantTok, gin.H{"type": "RG", "file_name": "rg.pdf"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode(t, w)
	docID := uint(doc["ID"].(float64))
	assert.Equal(t, DocumentPendingReview, doc["status"])
	assert.NotEmpty(t, doc["storage_key"])

	// locatário não revisa
	reviewPath := fmt.Sprintf("/documents/%d/review", docID)
	w = doJSON(r, http.MethodPut, reviewPath, tenantTok, gin.H{"status": DocumentApproved})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPut, reviewPath, ownerTok, gin.H{"status": DocumentApproved, "review_note": "ok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DocumentApproved, decode(t, w)["status"])

	w = doJSON(r, http.MethodGet, docsPath, ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, DocumentApproved, docs[0].Status)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _ := setupRouter(t)
	registerAndLogin(t, r, "locador@x.com")
	w := doJSON(r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "locador@x.com", "password": "errada",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	r, _ := setupRouter(t)
	// token vencido ontem
	tok := makeToken(t, 1, Now().Add(-24*time.Hour))
	w := doJSON(r, http.MethodGet, "/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
