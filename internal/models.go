package internal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Usuário da plataforma. A mesma conta pode anunciar imóveis (locador) e
// alugar imóveis de terceiros (locatário); o papel vem da relação com o
// contrato, não de um campo.
type User struct {
	gorm.Model
	Name         string     `json:"name"`
	Email        string     `gorm:"unique" json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Properties   []Property `gorm:"foreignKey:OwnerID" json:"-"`
}

// Imóvel anunciado
type Property struct {
	gorm.Model
	OwnerID       uint           `gorm:"index" json:"owner_id"`
	Owner         *User          `json:"owner,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Street        string         `json:"street"`
	Number        string         `json:"number"`
	District      string         `json:"district"`
	City          string         `json:"city"`
	UF            string         `json:"uf"`
	CEP           string         `json:"cep"` // guardado como veio; consulta de CEP fica fora daqui
	Bedrooms      int            `json:"bedrooms"`
	RentAmount    int64          `json:"rent_amount"`    // centavos
	ChargesAmount int64          `json:"charges_amount"` // condomínio + encargos, centavos
	PhotoURLs     datatypes.JSON `json:"photo_urls"`
	Status        string         `gorm:"default:DISPONIVEL;index" json:"status"`
}

const (
	PropertyAvailable = "DISPONIVEL"
	PropertyRented    = "ALUGADO"
)

// Contrato de locação
type Contract struct {
	gorm.Model
	PublicID   uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"public_id"`
	PropertyID uint      `gorm:"index" json:"property_id"`
	Property   *Property `json:"property,omitempty"`
	TenantID   uint      `gorm:"index" json:"tenant_id"`
	Tenant     *User     `json:"tenant,omitempty"`
	OwnerID    uint      `gorm:"index" json:"owner_id"`
	Owner      *User     `json:"owner,omitempty"`

	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	RentAmount    int64     `json:"rent_amount"`
	ChargesAmount int64     `json:"charges_amount"`
	DueDay        int       `json:"due_day"` // dia de vencimento, 1 a 28
	Status        string    `gorm:"default:PENDENTE_ASSINATURA;index" json:"status"`

	PaymentMethod   string     `json:"payment_method"`
	LateFeePercent  float64    `json:"late_fee_percent"`
	InterestPercent float64    `json:"interest_percent"`
	AdjustmentIndex string     `json:"adjustment_index"` // IGP-M, IPCA...
	GuaranteeType   *string    `json:"guarantee_type"`
	GuaranteeAmount int64      `json:"guarantee_amount"`
	ForoComarca     string     `json:"foro_comarca"`
	ContractCity    string     `json:"contract_city"`
	ContractDate    *time.Time `json:"contract_date"`

	TenantSignedAt *time.Time `gorm:"column:tenant_signed_at" json:"tenant_signed_at"`
	TenantSignIP   string     `gorm:"column:tenant_sign_ip" json:"tenant_sign_ip"`
	TenantSignUA   string     `gorm:"column:tenant_sign_ua" json:"tenant_sign_ua"`
	OwnerSignedAt  *time.Time `gorm:"column:owner_signed_at" json:"owner_signed_at"`
	OwnerSignIP    string     `gorm:"column:owner_sign_ip" json:"owner_sign_ip"`
	OwnerSignUA    string     `gorm:"column:owner_sign_ua" json:"owner_sign_ua"`

	Installments []RentInstallment `gorm:"foreignKey:ContractID" json:"-"`
}

const (
	ContractPendingSignature = "PENDENTE_ASSINATURA"
	ContractActive           = "ATIVO"
	ContractEnded            = "ENCERRADO"
)

const (
	GuaranteeDeposit   = "CAUCAO"
	GuaranteeGuarantor = "FIADOR"
	GuaranteeInsurance = "SEGURO_FIANCA"
)

// FullySigned indica se as duas partes já assinaram.
func (ct *Contract) FullySigned() bool {
	return ct.TenantSignedAt != nil && ct.OwnerSignedAt != nil
}

// Parcela mensal de aluguel. O valor é congelado na geração; mudanças
// posteriores no contrato não recalculam parcelas já emitidas.
type RentInstallment struct {
	gorm.Model
	ContractID     uint       `gorm:"uniqueIndex:idx_parcela_contrato_mes" json:"contract_id"`
	Contract       *Contract  `json:"-"`
	ReferenceMonth int        `gorm:"uniqueIndex:idx_parcela_contrato_mes" json:"reference_month"`
	ReferenceYear  int        `gorm:"uniqueIndex:idx_parcela_contrato_mes" json:"reference_year"`
	Amount         int64      `json:"amount"`
	DueDate        time.Time  `json:"due_date"`
	Status         string     `gorm:"default:PENDENTE" json:"status"`
	PaidAt         *time.Time `json:"paid_at"`
}

const (
	InstallmentPending = "PENDENTE"
	InstallmentPaid    = "PAGO"
	InstallmentLate    = "ATRASADO" // derivado na leitura, nunca gravado
)

// EffectiveStatus classifica a parcela na leitura: PENDENTE com vencimento
// no passado vira ATRASADO na exibição, sem alterar o registro.
func (p *RentInstallment) EffectiveStatus(now time.Time) string {
	if p.Status != InstallmentPending {
		return p.Status
	}
	if now.After(p.DueDate) {
		return InstallmentLate
	}
	return InstallmentPending
}

// Documento anexado ao contrato (RG, CPF, comprovantes). O arquivo em si
// fica no storage externo; aqui só a chave e o resultado da análise.
type Document struct {
	gorm.Model
	ContractID uint      `gorm:"index" json:"contract_id"`
	UserID     uint      `json:"user_id"`
	Type       string    `json:"type"`
	StorageKey uuid.UUID `gorm:"type:uuid" json:"storage_key"`
	FileName   string    `json:"file_name"`
	Status     string    `gorm:"default:EM_ANALISE" json:"status"`
	ReviewNote string    `json:"review_note"`
}

const (
	DocumentPendingReview = "EM_ANALISE"
	DocumentApproved      = "APROVADO"
	DocumentRejected      = "REPROVADO"
)

var DocumentTypes = map[string]bool{
	"RG":                     true,
	"CPF":                    true,
	"COMPROVANTE_RENDA":      true,
	"COMPROVANTE_RESIDENCIA": true,
}

// Notificação in-app
type Notification struct {
	gorm.Model
	UserID  uint       `gorm:"index" json:"user_id"`
	Kind    string     `json:"kind"`
	Message string     `json:"message"`
	ReadAt  *time.Time `json:"read_at"`
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Property{}, &Contract{}, &RentInstallment{}, &Document{}, &Notification{})
}
