package internal

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Fronteiras de persistência consumidas pelos serviços. As implementações
// entram por injeção, o que permite dublês nos testes.

type PropertyStore interface {
	FindByID(id uint) (*Property, error)
	UpdateStatus(id uint, status string) error
}

type ContractStore interface {
	Create(ct *Contract) error
	FindByID(id uint) (*Contract, error)
	FindByOwner(ownerID uint) ([]Contract, error)
	FindByTenant(tenantID uint) ([]Contract, error)
	SetTenantSignature(id uint, at time.Time, ip, userAgent string) error
	SetOwnerSignature(id uint, at time.Time, ip, userAgent string) error
	ActivateIfFullySigned(id uint) error
	UpdateStatus(id uint, status string) error
}

type InstallmentStore interface {
	FindByID(id uint) (*RentInstallment, error)
	FindByContract(contractID uint) ([]RentInstallment, error)
	FindByContractAndMonth(contractID uint, month, year int) (*RentInstallment, error)
	Create(p *RentInstallment) error
	MarkPaid(id uint, at time.Time) error
}

type NotificationStore interface {
	Create(n *Notification) error
	FindByUser(userID uint) ([]Notification, error)
	MarkRead(id, userID uint, at time.Time) error
}

// Stores agrupa as fronteiras usadas pelos serviços de contrato e cobrança.
type Stores struct {
	Properties    PropertyStore
	Contracts     ContractStore
	Installments  InstallmentStore
	Notifications NotificationStore
}

// TxRunner executa fn com stores presos a uma transação do banco.
type TxRunner interface {
	InTx(fn func(Stores) error) error
}

func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Properties:    &gormPropertyStore{db},
		Contracts:     &gormContractStore{db},
		Installments:  &gormInstallmentStore{db},
		Notifications: &gormNotificationStore{db},
	}
}

func NewTxRunner(db *gorm.DB) TxRunner { return &gormTxRunner{db} }

type gormTxRunner struct{ db *gorm.DB }

func (t *gormTxRunner) InTx(fn func(Stores) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStores(tx))
	})
}

// ==== Imóveis ====

type gormPropertyStore struct{ db *gorm.DB }

func (s *gormPropertyStore) FindByID(id uint) (*Property, error) {
	var p Property
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormPropertyStore) UpdateStatus(id uint, status string) error {
	return s.db.Model(&Property{}).Where("id = ?", id).Update("status", status).Error
}

// ==== Contratos ====

type gormContractStore struct{ db *gorm.DB }

func (s *gormContractStore) Create(ct *Contract) error {
	return s.db.Create(ct).Error
}

func (s *gormContractStore) FindByID(id uint) (*Contract, error) {
	var ct Contract
	err := s.db.Preload("Property").Preload("Tenant").Preload("Owner").First(&ct, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ct, nil
}

func (s *gormContractStore) FindByOwner(ownerID uint) ([]Contract, error) {
	var cts []Contract
	err := s.db.Preload("Property").Preload("Tenant").
		Where("owner_id = ?", ownerID).Order("created_at desc").Find(&cts).Error
	return cts, err
}

func (s *gormContractStore) FindByTenant(tenantID uint) ([]Contract, error) {
	var cts []Contract
	err := s.db.Preload("Property").Preload("Owner").
		Where("tenant_id = ?", tenantID).Order("created_at desc").Find(&cts).Error
	return cts, err
}

// SetTenantSignature grava o carimbo uma única vez: a cláusula
// tenant_signed_at IS NULL preserva a trilha de auditoria original em
// chamadas repetidas.
func (s *gormContractStore) SetTenantSignature(id uint, at time.Time, ip, userAgent string) error {
	return s.db.Model(&Contract{}).
		Where("id = ? AND tenant_signed_at IS NULL", id).
		Updates(map[string]interface{}{
			"tenant_signed_at": at,
			"tenant_sign_ip":   ip,
			"tenant_sign_ua":   userAgent,
		}).Error
}

func (s *gormContractStore) SetOwnerSignature(id uint, at time.Time, ip, userAgent string) error {
	return s.db.Model(&Contract{}).
		Where("id = ? AND owner_signed_at IS NULL", id).
		Updates(map[string]interface{}{
			"owner_signed_at": at,
			"owner_sign_ip":   ip,
			"owner_sign_ua":   userAgent,
		}).Error
}

// ActivateIfFullySigned aplica a transição para ATIVO de forma condicional,
// reavaliando as duas assinaturas no banco no momento do commit. Duas
// assinaturas concorrentes não perdem a transição.
func (s *gormContractStore) ActivateIfFullySigned(id uint) error {
	return s.db.Model(&Contract{}).
		Where("id = ? AND status = ? AND tenant_signed_at IS NOT NULL AND owner_signed_at IS NOT NULL",
			id, ContractPendingSignature).
		Update("status", ContractActive).Error
}

func (s *gormContractStore) UpdateStatus(id uint, status string) error {
	return s.db.Model(&Contract{}).Where("id = ?", id).Update("status", status).Error
}

// ==== Parcelas ====

type gormInstallmentStore struct{ db *gorm.DB }

func (s *gormInstallmentStore) FindByID(id uint) (*RentInstallment, error) {
	var p RentInstallment
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormInstallmentStore) FindByContract(contractID uint) ([]RentInstallment, error) {
	var ps []RentInstallment
	err := s.db.Where("contract_id = ?", contractID).Order("due_date asc").Find(&ps).Error
	return ps, err
}

func (s *gormInstallmentStore) FindByContractAndMonth(contractID uint, month, year int) (*RentInstallment, error) {
	var p RentInstallment
	err := s.db.Where("contract_id = ? AND reference_month = ? AND reference_year = ?",
		contractID, month, year).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create insere a parcela; o índice único (contrato, mês, ano) é quem
// garante unicidade sob concorrência — violação vira ErrDuplicateInstallment.
func (s *gormInstallmentStore) Create(p *RentInstallment) error {
	if err := s.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateInstallment
		}
		return err
	}
	return nil
}

// MarkPaid só transita PENDENTE -> PAGO; parcela já paga não é recarimbada.
func (s *gormInstallmentStore) MarkPaid(id uint, at time.Time) error {
	return s.db.Model(&RentInstallment{}).
		Where("id = ? AND status = ?", id, InstallmentPending).
		Updates(map[string]interface{}{
			"status":  InstallmentPaid,
			"paid_at": at,
		}).Error
}

// ==== Notificações ====

type gormNotificationStore struct{ db *gorm.DB }

func (s *gormNotificationStore) Create(n *Notification) error {
	return s.db.Create(n).Error
}

func (s *gormNotificationStore) FindByUser(userID uint) ([]Notification, error) {
	var ns []Notification
	err := s.db.Where("user_id = ?", userID).Order("created_at desc").Limit(100).Find(&ns).Error
	return ns, err
}

func (s *gormNotificationStore) MarkRead(id, userID uint, at time.Time) error {
	return s.db.Model(&Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at).Error
}
