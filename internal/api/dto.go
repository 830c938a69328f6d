package api

import (
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
)

type pacienteResp struct {
	ID               string    `json:"id"`
	CodigoProntuario string    `json:"codigoProntuario"`
	Nome             string    `json:"nome"`
	Genero           *string   `json:"genero"`
	Setor            *string   `json:"setor"`
	Email            *string   `json:"email"`
	Telefone         *string   `json:"telefone"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toPaciente(p *repo.Paciente) pacienteResp {
	return pacienteResp{
		ID:               p.ID.String(),
		CodigoProntuario: p.CodigoProntuario,
		Nome:             p.Nome,
		Genero:           p.Genero,
		Setor:            p.Setor,
		Email:            p.Email,
		Telefone:         p.Telefone,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toPacientes(list []repo.Paciente) []pacienteResp {
	out := make([]pacienteResp, len(list))
	for i := range list {
		out[i] = toPaciente(&list[i])
	}
	return out
}

type consultaResp struct {
	ID                string     `json:"id"`
	PacienteID        *string    `json:"pacienteId"`
	Paciente          string     `json:"paciente"`
	Genero            *string    `json:"genero"`
	Setor             *string    `json:"setor"`
	Data              string     `json:"data"`
	Horario           string     `json:"horario"`
	Status            string     `json:"status"`
	Compareceu        *string    `json:"compareceu"`
	Especialidade     *string    `json:"especialidade"`
	Motivo            *string    `json:"motivo"`
	Observacoes       *string    `json:"observacoes"`
	SolicitacaoID     *string    `json:"solicitacaoId"`
	LembreteEnviadoEm *time.Time `json:"lembreteEnviadoEm"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func toConsulta(c *repo.Consulta) consultaResp {
	out := consultaResp{
		ID:                c.ID.String(),
		Paciente:          c.Paciente,
		Genero:            c.Genero,
		Setor:             c.Setor,
		Data:              c.Data,
		Horario:           c.Horario,
		Status:            c.Status,
		Compareceu:        c.Compareceu,
		Especialidade:     c.Especialidade,
		Motivo:            c.Motivo,
		Observacoes:       c.Observacoes,
		LembreteEnviadoEm: c.LembreteEnviadoEm,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if c.PacienteID != nil {
		s := c.PacienteID.String()
		out.PacienteID = &s
	}
	if c.SolicitacaoID != nil {
		s := c.SolicitacaoID.String()
		out.SolicitacaoID = &s
	}
	return out
}

func toConsultas(list []repo.Consulta) []consultaResp {
	out := make([]consultaResp, len(list))
	for i := range list {
		out[i] = toConsulta(&list[i])
	}
	return out
}

type solicitacaoResp struct {
	ID                   string    `json:"id"`
	CodigoRastreamento   string    `json:"codigoRastreamento"`
	NomeFuncionario      string    `json:"nomeFuncionario"`
	Genero               *string   `json:"genero"`
	Setor                string    `json:"setor"`
	Motivo               string    `json:"motivo"`
	Descricao            *string   `json:"descricao"`
	DataPreferencial     *string   `json:"dataPreferencial"`
	HorarioPreferencial  *string   `json:"horarioPreferencial"`
	Email                *string   `json:"email"`
	Telefone             *string   `json:"telefone"`
	Status               string    `json:"status"`
	ObservacoesPsicologo *string   `json:"observacoesPsicologo"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// rastreamentoResp é a visão pública do acompanhamento: sem descrição nem contatos.
type rastreamentoResp struct {
	CodigoRastreamento   string    `json:"codigoRastreamento"`
	NomeFuncionario      string    `json:"nomeFuncionario"`
	Setor                string    `json:"setor"`
	Motivo               string    `json:"motivo"`
	DataPreferencial     *string   `json:"dataPreferencial"`
	HorarioPreferencial  *string   `json:"horarioPreferencial"`
	Status               string    `json:"status"`
	ObservacoesPsicologo *string   `json:"observacoesPsicologo"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func toRastreamento(s *repo.Solicitacao) rastreamentoResp {
	return rastreamentoResp{
		CodigoRastreamento:   s.CodigoRastreamento,
		NomeFuncionario:      s.NomeFuncionario,
		Setor:                s.Setor,
		Motivo:               s.Motivo,
		DataPreferencial:     s.DataPreferencial,
		HorarioPreferencial:  s.HorarioPreferencial,
		Status:               s.Status,
		ObservacoesPsicologo: s.ObservacoesPsicologo,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}
