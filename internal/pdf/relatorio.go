package pdf

import (
	"strconv"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/relatorio"
)

// BuildRelatorioPDF renderiza o relatório agregado em tabelas.
func BuildRelatorioPDF(r relatorio.Relatorio, generatedAt time.Time) ([]byte, error) {
	d := newDocument("Relatório de Atendimentos")
	d.heading("Relatórios e Estatísticas")
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.CellFormat(0, 5, d.tr("Gerado em "+generatedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")

	d.section("Resumo")
	widths := []float64{110, 35, 35}
	d.row([]string{"Indicador", "Total", "%"}, widths, true)
	d.row([]string{"Total de consultas", strconv.Itoa(r.Total), "100.0"}, widths, false)
	d.row([]string{"Compareceram", strconv.Itoa(r.Comparecimento.Sim), relatorio.Percentual(r.Comparecimento.Sim, r.Total)}, widths, false)
	d.row([]string{"Não compareceram", strconv.Itoa(r.Comparecimento.Nao), relatorio.Percentual(r.Comparecimento.Nao, r.Total)}, widths, false)
	d.row([]string{"Pendentes", strconv.Itoa(r.Comparecimento.Pendente), relatorio.Percentual(r.Comparecimento.Pendente, r.Total)}, widths, false)

	buckets := func(title string, list []relatorio.Bucket) {
		d.section(title)
		if len(list) == 0 {
			d.pdf.CellFormat(0, 6, d.tr("Sem dados disponíveis"), "", 1, "L", false, 0, "")
			return
		}
		d.row([]string{"Nome", "Total", "%"}, widths, true)
		for _, b := range list {
			d.row([]string{truncate(b.Name, 60), strconv.Itoa(b.Total), b.Percentual}, widths, false)
		}
	}
	buckets("Por status", r.PorStatus)
	buckets("Por período", r.PorPeriodo)
	buckets("Por especialidade", r.PorEspecialidade)
	buckets("Por motivo", r.PorMotivo)

	d.section("Evolução mensal")
	if len(r.EvolucaoMensal) == 0 {
		d.pdf.CellFormat(0, 6, d.tr("Sem dados disponíveis"), "", 1, "L", false, 0, "")
	} else {
		w := []float64{110, 70}
		d.row([]string{"Mês", "Consultas"}, w, true)
		for _, m := range r.EvolucaoMensal {
			d.row([]string{m.Mes, strconv.Itoa(m.Consultas)}, w, false)
		}
	}

	if len(r.Solicitacoes) > 0 {
		d.section("Solicitações")
		w := []float64{110, 70}
		d.row([]string{"Status", "Total"}, w, true)
		for _, st := range []string{"pendente", "aprovada", "rejeitada"} {
			d.row([]string{statusLabel[st], strconv.Itoa(r.Solicitacoes[st])}, w, false)
		}
	}
	return d.bytes()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
