package internal

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// BillingService materializa as parcelas mensais e calcula o status de
// exibição. A geração é preguiçosa: roda antes de cada listagem, nunca em
// background. É o único componente que cria parcelas e aplica PENDENTE->PAGO.
type BillingService struct {
	stores   Stores
	notifier *Notifier
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewBillingService(stores Stores, notifier *Notifier, log *zap.SugaredLogger) *BillingService {
	return &BillingService{stores: stores, notifier: notifier, log: log, now: Now}
}

// EnsureInstallmentsForContract garante as parcelas do mês corrente e do
// seguinte. Idempotente: o índice único (contrato, mês, ano) é a garantia
// real contra duplicatas; o check antes do insert é só o caminho rápido.
func (b *BillingService) EnsureInstallmentsForContract(contractID uint) error {
	now := b.now()
	month, year := int(now.Month()), now.Year()
	if err := b.ensureInstallmentForMonth(contractID, month, year); err != nil {
		return err
	}
	nm, ny := NextMonth(month, year)
	return b.ensureInstallmentForMonth(contractID, nm, ny)
}

func (b *BillingService) ensureInstallmentForMonth(contractID uint, month, year int) error {
	ct, err := b.stores.Contracts.FindByID(contractID)
	if err != nil {
		return err
	}
	// contrato encerrado ou ainda sem assinaturas não acumula parcela
	if ct.Status != ContractActive {
		return nil
	}
	due := DueDateFor(month, year, ct.DueDay)
	if due.Before(ct.StartDate) || due.After(ct.EndDate) {
		return nil
	}
	if _, err := b.stores.Installments.FindByContractAndMonth(contractID, month, year); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	p := &RentInstallment{
		ContractID:     contractID,
		ReferenceMonth: month,
		ReferenceYear:  year,
		Amount:         ct.RentAmount + ct.ChargesAmount, // congelado na geração
		DueDate:        due,
		Status:         InstallmentPending,
	}
	if err := b.stores.Installments.Create(p); err != nil {
		if errors.Is(err, ErrDuplicateInstallment) {
			// outra requisição gerou primeiro
			return nil
		}
		return err
	}
	b.log.Infow("parcela gerada",
		"contract_id", contractID, "month", month, "year", year, "amount", p.Amount)
	return nil
}

// InstallmentRow é a linha de listagem: parcela + contexto do contrato, com
// o status efetivo (ATRASADO derivado na hora, nunca gravado).
type InstallmentRow struct {
	Installment     RentInstallment `json:"installment"`
	EffectiveStatus string          `json:"effective_status"`
	Contract        *Contract       `json:"contract"`
}

// ListByTenant gera as parcelas pendentes de todos os contratos ativos do
// locatário e devolve tudo ordenado por vencimento.
func (b *BillingService) ListByTenant(tenantID uint) ([]InstallmentRow, error) {
	cts, err := b.stores.Contracts.FindByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	return b.rowsFor(cts)
}

// ListByOwner é o espelho do lado do locador.
func (b *BillingService) ListByOwner(ownerID uint) ([]InstallmentRow, error) {
	cts, err := b.stores.Contracts.FindByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	return b.rowsFor(cts)
}

// rowsFor roda o gerador antes da leitura — obrigatório para a listagem já
// refletir o mês corrente e o seguinte.
func (b *BillingService) rowsFor(cts []Contract) ([]InstallmentRow, error) {
	now := b.now()
	rows := []InstallmentRow{}
	for i := range cts {
		ct := &cts[i]
		if ct.Status == ContractActive {
			if err := b.EnsureInstallmentsForContract(ct.ID); err != nil {
				return nil, err
			}
		}
		ps, err := b.stores.Installments.FindByContract(ct.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			rows = append(rows, InstallmentRow{
				Installment:     p,
				EffectiveStatus: p.EffectiveStatus(now),
				Contract:        ct,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Installment.DueDate.Before(rows[j].Installment.DueDate)
	})
	return rows, nil
}

// MarkPaid registra o pagamento de uma parcela, ação exclusiva do locador.
// Parcela já PAGA é no-op: devolve o registro como está, sem recarimbar.
func (b *BillingService) MarkPaid(userID, installmentID uint) (*RentInstallment, error) {
	p, err := b.stores.Installments.FindByID(installmentID)
	if err != nil {
		return nil, err
	}
	ct, err := b.stores.Contracts.FindByID(p.ContractID)
	if err != nil {
		return nil, err
	}
	if ct.OwnerID != userID {
		return nil, ErrForbidden
	}
	if p.Status == InstallmentPaid {
		return p, nil
	}
	if err := b.stores.Installments.MarkPaid(installmentID, b.now()); err != nil {
		return nil, err
	}
	p, err = b.stores.Installments.FindByID(installmentID)
	if err != nil {
		return nil, err
	}
	b.notifier.InstallmentPaid(ct, p)
	b.log.Infow("parcela paga",
		"installment_id", installmentID, "contract_id", ct.ID, "amount", p.Amount)
	return p, nil
}
