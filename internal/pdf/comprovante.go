package pdf

import (
	"strings"
	"time"
)

// Comprovante é o recibo que o funcionário baixa após enviar a solicitação.
// Não inclui a descrição, que é confidencial.
type Comprovante struct {
	Codigo              string
	NomeFuncionario     string
	Setor               string
	Motivo              string
	Status              string
	DataPreferencial    string // YYYY-MM-DD
	HorarioPreferencial string
	CriadaEm            time.Time
	// URL da página de acompanhamento; vira QR code.
	TrackingURL string
}

var statusLabel = map[string]string{
	"pendente":  "Pendente de análise",
	"aprovada":  "Aprovada",
	"rejeitada": "Não aprovada",
}

func BuildComprovantePDF(c Comprovante) ([]byte, error) {
	d := newDocument("Comprovante " + c.Codigo)
	d.heading("Comprovante de Solicitação de Atendimento")
	d.pdf.Ln(2)
	d.field("Código:", c.Codigo)
	d.field("Funcionário:", c.NomeFuncionario)
	d.field("Setor:", c.Setor)
	d.field("Motivo:", c.Motivo)
	label := statusLabel[c.Status]
	if label == "" {
		label = c.Status
	}
	d.field("Situação:", label)
	d.field("Data preferencial:", FormatDateBR(c.DataPreferencial))
	d.field("Horário preferencial:", c.HorarioPreferencial)
	if !c.CriadaEm.IsZero() {
		d.field("Enviada em:", c.CriadaEm.Format("02/01/2006 15:04"))
	}
	if c.TrackingURL != "" {
		d.section("Acompanhamento")
		d.pdf.MultiCell(0, 5, d.tr("Use o código acima ou o QR code abaixo para acompanhar o andamento da sua solicitação."), "", "L", false)
		d.pdf.Ln(2)
		if err := d.qr("tracking", c.TrackingURL, 35); err != nil {
			return nil, err
		}
		d.pdf.SetFont("Helvetica", "", 8)
		d.pdf.MultiCell(0, 4, c.TrackingURL, "", "L", false)
	}
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.MultiCell(0, 5, d.tr("As informações compartilhadas são confidenciais e acessadas apenas pela psicóloga responsável."), "", "L", false)
	return d.bytes()
}

// FormatDateBR converte YYYY-MM-DD em DD/MM/YYYY; retorna "" se inválido.
func FormatDateBR(iso string) string {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return ""
	}
	return t.Format("02/01/2006")
}
