// Package relatorio agrega as consultas nas estatísticas da tela de relatórios.
package relatorio

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
)

const (
	Manha = "Manhã"
	Tarde = "Tarde"
	Noite = "Noite"
)

type Bucket struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Percentual string `json:"percentual"`
}

type Comparecimento struct {
	Sim      int `json:"sim"`
	Nao      int `json:"nao"`
	Pendente int `json:"pendente"`
}

type Mes struct {
	Mes       string `json:"mes"`
	Consultas int    `json:"consultas"`
}

type Relatorio struct {
	Total            int            `json:"total"`
	Comparecimento   Comparecimento `json:"comparecimento"`
	PorStatus        []Bucket       `json:"porStatus"`
	PorPeriodo       []Bucket       `json:"porPeriodo"`
	PorEspecialidade []Bucket       `json:"porEspecialidade"`
	PorMotivo        []Bucket       `json:"porMotivo"`
	EvolucaoMensal   []Mes          `json:"evolucaoMensal"`
	Solicitacoes     map[string]int `json:"solicitacoes,omitempty"`
}

// Periodo classifica o horário (HH:MM): 6h-11h Manhã, 12h-17h Tarde, demais Noite.
func Periodo(horario string) string {
	h, err := strconv.Atoi(strings.SplitN(horario, ":", 2)[0])
	switch {
	case err != nil:
		return Noite
	case h >= 6 && h < 12:
		return Manha
	case h >= 12 && h < 18:
		return Tarde
	default:
		return Noite
	}
}

// Percentual formata part/total com uma casa decimal; "0.0" quando total é 0.
// Empates arredondam para cima (12.25 -> "12.3").
func Percentual(part, total int) string {
	if total <= 0 {
		return "0.0"
	}
	v := float64(part) / float64(total) * 100
	return fmt.Sprintf("%.1f", math.Floor(v*10+0.5)/10)
}

// Build monta o relatório. Consultas sem compareceu contam como pendentes; especialidade e
// motivo vazios ficam fora dos respectivos agrupamentos.
func Build(consultas []repo.Consulta) Relatorio {
	r := Relatorio{
		Total:          len(consultas),
		PorStatus:      []Bucket{},
		PorPeriodo:     []Bucket{},
		EvolucaoMensal: []Mes{},
	}
	status := map[string]int{}
	periodo := map[string]int{}
	esp := map[string]int{}
	motivo := map[string]int{}
	meses := map[string]int{}

	for _, c := range consultas {
		switch deref(c.Compareceu) {
		case repo.CompareceuSim:
			r.Comparecimento.Sim++
		case repo.CompareceuNao:
			r.Comparecimento.Nao++
		default:
			r.Comparecimento.Pendente++
		}
		status[c.Status]++
		periodo[Periodo(c.Horario)]++
		if e := strings.TrimSpace(deref(c.Especialidade)); e != "" {
			esp[e]++
		}
		if m := strings.TrimSpace(deref(c.Motivo)); m != "" {
			motivo[m]++
		}
		if len(c.Data) >= 7 {
			meses[c.Data[:7]]++
		}
	}

	for _, name := range []string{repo.ConsultaAgendada, repo.ConsultaRealizada, repo.ConsultaCancelada} {
		if n := status[name]; n > 0 {
			r.PorStatus = append(r.PorStatus, Bucket{Name: name, Total: n, Percentual: Percentual(n, r.Total)})
		}
	}
	for _, name := range []string{Manha, Tarde, Noite} {
		if n := periodo[name]; n > 0 {
			r.PorPeriodo = append(r.PorPeriodo, Bucket{Name: name, Total: n, Percentual: Percentual(n, r.Total)})
		}
	}
	r.PorEspecialidade = ranked(esp, r.Total)
	r.PorMotivo = ranked(motivo, r.Total)

	keys := make([]string, 0, len(meses))
	for k := range meses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.EvolucaoMensal = append(r.EvolucaoMensal, Mes{Mes: k, Consultas: meses[k]})
	}
	return r
}

// ranked ordena por total decrescente e, no empate, por nome.
func ranked(m map[string]int, total int) []Bucket {
	out := make([]Bucket, 0, len(m))
	for name, n := range m {
		out = append(out, Bucket{Name: name, Total: n, Percentual: Percentual(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
