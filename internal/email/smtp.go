package email

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("SMTP não configurado")

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	FromAddr string
}

func (c Config) configured() bool { return c.Host != "" && c.FromAddr != "" }

// Mailer envia e-mails multipart (texto + HTML) via SMTP.
type Mailer struct {
	cfg      Config
	log      *zap.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{cfg: cfg, log: log.Named("email"), sendMail: smtp.SendMail}
}

// Configured reporta se há host e remetente para envio.
func (m *Mailer) Configured() bool { return m.cfg.configured() }

// Send envia uma mensagem com as duas versões do corpo. Sem SMTP configurado,
// registra o que seria enviado e retorna ErrNotConfigured.
func (m *Mailer) Send(to, subject, text, html string) error {
	if to == "" {
		return fmt.Errorf("destinatário de e-mail vazio")
	}
	if !m.cfg.configured() {
		m.log.Warn("SMTP not configured - email would be sent",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("preview", preview(text, 200)),
		)
		return ErrNotConfigured
	}
	port := m.cfg.Port
	if port == 0 {
		port = 25
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(port)
	msg, err := m.build(to, subject, text, html)
	if err != nil {
		return err
	}
	if err := m.sendMail(addr, m.auth(), m.cfg.FromAddr, []string{to}, msg); err != nil {
		m.log.Error("falha ao enviar", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return err
	}
	m.log.Info("enviado", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// auth returns nil when User is empty (e.g. MailHog), so no AUTH is sent.
func (m *Mailer) auth() smtp.Auth {
	if m.cfg.User != "" {
		return smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	return nil
}

func (m *Mailer) build(to, subject, text, html string) ([]byte, error) {
	from := m.cfg.FromAddr
	if m.cfg.FromName != "" {
		from = mime.QEncoding.Encode("UTF-8", m.cfg.FromName) + " <" + m.cfg.FromAddr + ">"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	parts := []struct{ ctype, content string }{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// LogConfigSummary loga um resumo da config SMTP (sem senha) para diagnóstico.
func (m *Mailer) LogConfigSummary() {
	m.log.Info("config SMTP",
		zap.String("host", m.cfg.Host),
		zap.Int("port", m.cfg.Port),
		zap.String("from", m.cfg.FromAddr),
		zap.Bool("auth", m.cfg.User != ""),
	)
	if !m.cfg.configured() {
		m.log.Warn("host ou from vazio; e-mails serão apenas registrados no log")
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
