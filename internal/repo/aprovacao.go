package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Aprovacao struct {
	Data          string
	Horario       string
	Especialidade *string
	Observacoes   *string
}

type AprovacaoResult struct {
	Solicitacao    *Solicitacao
	Paciente       *Paciente
	Consulta       *Consulta
	PacienteCriado bool
}

const observacaoAprovacao = "Solicitação aprovada. "

// AprovarSolicitacao aprova uma solicitação pendente numa única transação: localiza (ou cria)
// o paciente pelo nome do funcionário, grava a decisão e agenda a consulta.
func AprovarSolicitacao(ctx context.Context, db *gorm.DB, id uuid.UUID, a Aprovacao) (*AprovacaoResult, error) {
	var res AprovacaoResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked struct{ Status string }
		if err := tx.Raw(`SELECT status FROM solicitacoes WHERE id = ? FOR UPDATE`, id).Scan(&locked).Error; err != nil {
			return err
		}
		if locked.Status == "" {
			return gorm.ErrRecordNotFound
		}
		if locked.Status != SolicitacaoPendente {
			return ErrStatusConflict
		}

		s, err := decideSolicitacao(ctx, tx, id, SolicitacaoAprovada, a.Observacoes)
		if err != nil {
			return err
		}
		res.Solicitacao = s

		p, err := PacienteByNome(ctx, tx, s.NomeFuncionario)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			setor := s.Setor
			p, err = CreatePaciente(ctx, tx, PacienteInput{
				Nome:     s.NomeFuncionario,
				Genero:   s.Genero,
				Setor:    &setor,
				Email:    s.Email,
				Telefone: s.Telefone,
			})
			res.PacienteCriado = err == nil
		}
		if err != nil {
			return err
		}
		res.Paciente = p

		obs := observacaoAprovacao
		if a.Observacoes != nil {
			obs += *a.Observacoes
		}
		compareceu := CompareceuPendente
		motivo := s.Motivo
		c, err := CreateConsulta(ctx, tx, ConsultaInput{
			PacienteID:    &p.ID,
			Paciente:      p.Nome,
			Genero:        p.Genero,
			Setor:         p.Setor,
			Data:          a.Data,
			Horario:       a.Horario,
			Status:        ConsultaAgendada,
			Compareceu:    &compareceu,
			Especialidade: a.Especialidade,
			Motivo:        &motivo,
			Observacoes:   &obs,
			SolicitacaoID: &s.ID,
		})
		if err != nil {
			return err
		}
		res.Consulta = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
