package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// ErrNotConfigured: sem credenciais Twilio nada é enviado.
var ErrNotConfigured = errors.New("whatsapp: not configured")

// Config holds credentials for sending WhatsApp messages (Twilio).
// Phone numbers must be E.164; From is the Twilio WhatsApp number (e.g. whatsapp:+14155238886).
type Config struct {
	AccountSid string
	AuthToken  string
	From       string
	// BaseURL substitui a API da Twilio (testes).
	BaseURL string
}

// Client sends WhatsApp messages via Twilio.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Client) Configured() bool {
	return c.cfg.AccountSid != "" && c.cfg.AuthToken != "" && c.cfg.From != ""
}

// ReminderText monta a mensagem do lembrete. dateStr em DD/MM/YYYY, timeStr em HH:MM.
func ReminderText(nome, dateStr, timeStr string, especialidade string) string {
	msg := fmt.Sprintf("Olá, %s! Lembrete: amanhã (%s) às %s você tem atendimento psicológico agendado", nome, dateStr, timeStr)
	if especialidade != "" {
		msg += " (" + especialidade + ")"
	}
	return msg + ". Caso não possa comparecer, avise a equipe de psicologia com antecedência. NEXT Implementos"
}

// SendReminder envia o lembrete ao telefone (E.164). Sem configuração retorna ErrNotConfigured.
func (c *Client) SendReminder(ctx context.Context, phone, nome, dateStr, timeStr, especialidade string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	return c.send(ctx, phone, ReminderText(nome, dateStr, timeStr, especialidade))
}

// NormalizePhone deixa só dígitos e o "+"; números brasileiros sem DDI ganham +55.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(strings.TrimSpace(phone), "+") && (len(digits) == 10 || len(digits) == 11) {
		digits = "55" + digits
	}
	return "+" + digits
}

func (c *Client) send(ctx context.Context, to, body string) error {
	to = NormalizePhone(strings.TrimPrefix(strings.TrimSpace(to), "whatsapp:"))
	if to == "" {
		return fmt.Errorf("whatsapp: destinatário vazio")
	}
	from := c.cfg.From
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	form := url.Values{}
	form.Set("To", "whatsapp:"+to)
	form.Set("From", from)
	form.Set("Body", body)
	reqURL := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSid, c.cfg.AuthToken)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	slurp, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("whatsapp: %s: read body: %w", resp.Status, err)
	}
	return fmt.Errorf("whatsapp: %s: %s", resp.Status, string(slurp))
}
