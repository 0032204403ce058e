package internal

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContractEngine concentra as regras de ciclo de vida do contrato: criação,
// assinatura dupla e encerramento. É o único componente que escreve em
// Contract.Status e nos campos de assinatura.
type ContractEngine struct {
	stores   Stores
	tx       TxRunner
	notifier *Notifier
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewContractEngine(stores Stores, tx TxRunner, notifier *Notifier, log *zap.SugaredLogger) *ContractEngine {
	return &ContractEngine{stores: stores, tx: tx, notifier: notifier, log: log, now: Now}
}

type ContractInput struct {
	PropertyID      uint
	TenantID        uint
	StartDate       time.Time
	EndDate         time.Time
	RentAmount      int64
	ChargesAmount   int64
	DueDay          int
	PaymentMethod   string
	LateFeePercent  float64
	InterestPercent float64
	AdjustmentIndex string
	GuaranteeType   *string
	GuaranteeAmount int64
	ForoComarca     string
	ContractCity    string
	ContractDate    *time.Time
}

func validGuarantee(t string) bool {
	return t == GuaranteeDeposit || t == GuaranteeGuarantor || t == GuaranteeInsurance
}

// Create registra o contrato e tira o imóvel da vitrine na mesma transação:
// o anúncio sai do ar antes mesmo das assinaturas, evitando dupla locação.
func (e *ContractEngine) Create(ownerID uint, in ContractInput) (*Contract, error) {
	prop, err := e.stores.Properties.FindByID(in.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if in.GuaranteeType != nil && !validGuarantee(*in.GuaranteeType) {
		return nil, ErrInvalidType
	}

	ct := &Contract{
		PublicID:        uuid.New(),
		PropertyID:      prop.ID,
		TenantID:        in.TenantID,
		OwnerID:         ownerID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		RentAmount:      in.RentAmount,
		ChargesAmount:   in.ChargesAmount,
		DueDay:          ClampDueDay(in.DueDay),
		Status:          ContractPendingSignature,
		PaymentMethod:   in.PaymentMethod,
		LateFeePercent:  in.LateFeePercent,
		InterestPercent: in.InterestPercent,
		AdjustmentIndex: in.AdjustmentIndex,
		GuaranteeType:   in.GuaranteeType,
		GuaranteeAmount: in.GuaranteeAmount,
		ForoComarca:     in.ForoComarca,
		ContractCity:    in.ContractCity,
		ContractDate:    in.ContractDate,
	}
	err = e.tx.InTx(func(s Stores) error {
		if err := s.Contracts.Create(ct); err != nil {
			return err
		}
		return s.Properties.UpdateStatus(prop.ID, PropertyRented)
	})
	if err != nil {
		return nil, err
	}

	full, err := e.stores.Contracts.FindByID(ct.ID)
	if err != nil {
		return nil, err
	}
	e.notifier.ContractCreated(full)
	e.log.Infow("contrato criado",
		"contract_id", ct.ID, "property_id", prop.ID,
		"owner_id", ownerID, "tenant_id", in.TenantID)
	return full, nil
}

const (
	SignAsOwner  = "locador"
	SignAsTenant = "locatario"
)

type SignRequest struct {
	IP        string
	UserAgent string
	As        string // só desempata quando a mesma conta é locador e locatário
}

// Sign aplica a assinatura do chamador. A relação real com o contrato decide
// qual carimbo é gravado; um `as` divergente da relação real é ignorado.
// Repetir a chamada é no-op: o carimbo original nunca é sobrescrito. A
// transição para ATIVO é reavaliada no banco a cada chamada, então a ordem
// das assinaturas não importa.
func (e *ContractEngine) Sign(userID, contractID uint, req SignRequest) (*Contract, error) {
	before, err := e.stores.Contracts.FindByID(contractID)
	if err != nil {
		return nil, err
	}
	isOwner := before.OwnerID == userID
	isTenant := before.TenantID == userID
	if !isOwner && !isTenant {
		return nil, ErrForbidden
	}
	asOwner := isOwner
	if isOwner && isTenant {
		asOwner = req.As != SignAsTenant
	}

	at := e.now()
	if asOwner {
		err = e.stores.Contracts.SetOwnerSignature(contractID, at, req.IP, req.UserAgent)
	} else {
		err = e.stores.Contracts.SetTenantSignature(contractID, at, req.IP, req.UserAgent)
	}
	if err != nil {
		return nil, err
	}
	if err := e.stores.Contracts.ActivateIfFullySigned(contractID); err != nil {
		return nil, err
	}

	after, err := e.stores.Contracts.FindByID(contractID)
	if err != nil {
		return nil, err
	}
	stamped := (asOwner && before.OwnerSignedAt == nil && after.OwnerSignedAt != nil) ||
		(!asOwner && before.TenantSignedAt == nil && after.TenantSignedAt != nil)
	if stamped {
		e.notifier.ContractSigned(after, asOwner)
		e.log.Infow("assinatura registrada",
			"contract_id", contractID, "user_id", userID, "as_owner", asOwner)
	}
	if before.Status != ContractActive && after.Status == ContractActive {
		e.notifier.ContractActivated(after)
		e.log.Infow("contrato ativado", "contract_id", contractID)
	}
	return after, nil
}

// Get devolve o contrato para uma das partes.
func (e *ContractEngine) Get(userID, contractID uint) (*Contract, error) {
	ct, err := e.stores.Contracts.FindByID(contractID)
	if err != nil {
		return nil, err
	}
	if ct.OwnerID != userID && ct.TenantID != userID {
		return nil, ErrForbidden
	}
	return ct, nil
}

// ListForUser devolve os contratos em que o usuário é locador ou locatário.
func (e *ContractEngine) ListForUser(userID uint) ([]Contract, error) {
	asOwner, err := e.stores.Contracts.FindByOwner(userID)
	if err != nil {
		return nil, err
	}
	asTenant, err := e.stores.Contracts.FindByTenant(userID)
	if err != nil {
		return nil, err
	}
	out := make([]Contract, 0, len(asOwner)+len(asTenant))
	out = append(out, asOwner...)
	for _, ct := range asTenant {
		if ct.OwnerID != userID { // conta degenerada aparece uma vez só
			out = append(out, ct)
		}
	}
	return out, nil
}

// End encerra o contrato e devolve o imóvel à vitrine. Encerrar um contrato
// ainda PENDENTE_ASSINATURA é permitido: é o caminho de cancelamento de uma
// locação que nunca foi assinada, sem o que o imóvel ficaria preso em
// ALUGADO. Encerrar duas vezes é rejeitado, não absorvido.
func (e *ContractEngine) End(userID, contractID uint) (*Contract, error) {
	ct, err := e.stores.Contracts.FindByID(contractID)
	if err != nil {
		return nil, err
	}
	if ct.OwnerID != userID {
		return nil, ErrForbidden
	}
	if ct.Status == ContractEnded {
		return nil, ErrAlreadyEnded
	}
	err = e.tx.InTx(func(s Stores) error {
		if err := s.Contracts.UpdateStatus(contractID, ContractEnded); err != nil {
			return err
		}
		return s.Properties.UpdateStatus(ct.PropertyID, PropertyAvailable)
	})
	if err != nil {
		return nil, err
	}

	full, err := e.stores.Contracts.FindByID(contractID)
	if err != nil {
		return nil, err
	}
	e.notifier.ContractEnded(full)
	e.log.Infow("contrato encerrado", "contract_id", contractID, "property_id", ct.PropertyID)
	return full, nil
}
