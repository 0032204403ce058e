package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Notifier grava notificações in-app para os eventos de contrato e cobrança
// e, quando a integração está configurada, repassa um resumo por WhatsApp.
// Falha de notificação nunca derruba a operação que a disparou.
type Notifier struct {
	store NotificationStore
	log   *zap.SugaredLogger
}

func NewNotifier(store NotificationStore, log *zap.SugaredLogger) *Notifier {
	return &Notifier{store: store, log: log}
}

func (n *Notifier) push(userID uint, kind, msg, phone string) {
	if err := n.store.Create(&Notification{UserID: userID, Kind: kind, Message: msg}); err != nil {
		n.log.Warnw("falha ao gravar notificação", "user_id", userID, "kind", kind, "err", err)
	}
	if phone == "" {
		return
	}
	if err := SendWhatsAppMessage(phone, msg); err != nil {
		n.log.Debugw("whatsapp indisponível", "err", err)
	}
}

func phoneOf(u *User) string {
	if u == nil {
		return ""
	}
	return SanitizePhone(u.Phone)
}

func (n *Notifier) ContractCreated(ct *Contract) {
	n.push(ct.TenantID, "CONTRATO_CRIADO",
		fmt.Sprintf("Você recebeu o contrato nº %d para assinatura.", ct.ID),
		phoneOf(ct.Tenant))
}

func (n *Notifier) ContractSigned(ct *Contract, byOwner bool) {
	if byOwner {
		n.push(ct.TenantID, "CONTRATO_ASSINADO",
			fmt.Sprintf("O locador assinou o contrato nº %d.", ct.ID),
			phoneOf(ct.Tenant))
		return
	}
	n.push(ct.OwnerID, "CONTRATO_ASSINADO",
		fmt.Sprintf("O locatário assinou o contrato nº %d.", ct.ID),
		phoneOf(ct.Owner))
}

func (n *Notifier) ContractActivated(ct *Contract) {
	msg := fmt.Sprintf("Contrato nº %d ativo: as duas partes assinaram.", ct.ID)
	n.push(ct.OwnerID, "CONTRATO_ATIVO", msg, phoneOf(ct.Owner))
	if ct.TenantID != ct.OwnerID {
		n.push(ct.TenantID, "CONTRATO_ATIVO", msg, phoneOf(ct.Tenant))
	}
}

func (n *Notifier) ContractEnded(ct *Contract) {
	n.push(ct.TenantID, "CONTRATO_ENCERRADO",
		fmt.Sprintf("O contrato nº %d foi encerrado pelo locador.", ct.ID),
		phoneOf(ct.Tenant))
}

func (n *Notifier) InstallmentPaid(ct *Contract, p *RentInstallment) {
	n.push(ct.TenantID, "PAGAMENTO_CONFIRMADO",
		fmt.Sprintf("Pagamento da parcela %02d/%d do contrato nº %d confirmado.",
			p.ReferenceMonth, p.ReferenceYear, ct.ID),
		phoneOf(ct.Tenant))
}

// Envia mensagem WhatsApp via API externa
func SendWhatsAppMessage(phone, message string) error {
	apiURL := os.Getenv("WHATSAPP_API_URL")
	apiToken := os.Getenv("WHATSAPP_API_TOKEN")
	if apiURL == "" || apiToken == "" {
		return errors.New("integração WhatsApp não configurada (env vars)")
	}

	body := map[string]interface{}{
		"phone":   phone,
		"message": message,
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("erro ao criar requisição: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("erro na requisição: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("falha no envio WhatsApp (status %d)", resp.StatusCode)
	}
	return nil
}
