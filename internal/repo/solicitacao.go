package repo

import (
	"context"
	"errors"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/codigo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SolicitacaoPendente  = "pendente"
	SolicitacaoAprovada  = "aprovada"
	SolicitacaoRejeitada = "rejeitada"
)

// ErrStatusConflict indica que a solicitação já foi aprovada ou rejeitada.
var ErrStatusConflict = errors.New("solicitação não está pendente")

type Solicitacao struct {
	ID                   uuid.UUID
	CodigoRastreamento   string
	NomeFuncionario      string
	Genero               *string
	Setor                string
	Motivo               string
	Descricao            *string
	DescricaoEncrypted   []byte
	DescricaoNonce       []byte
	DescricaoKeyVersion  *string
	DataPreferencial     *string
	HorarioPreferencial  *string
	Email                *string
	Telefone             *string
	Status               string
	ObservacoesPsicologo *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SolicitacaoInput: Descricao vai em texto só quando não há chave de criptografia.
type SolicitacaoInput struct {
	NomeFuncionario     string
	Genero              *string
	Setor               string
	Motivo              string
	Descricao           *string
	DescricaoEncrypted  []byte
	DescricaoNonce      []byte
	DescricaoKeyVersion *string
	DataPreferencial    *string
	HorarioPreferencial *string
	Email               *string
	Telefone            *string
}

type SolicitacaoPatch struct {
	NomeFuncionario      *string
	Genero               *string
	Setor                *string
	Motivo               *string
	DataPreferencial     *string
	HorarioPreferencial  *string
	Email                *string
	Telefone             *string
	Status               *string
	ObservacoesPsicologo *string
}

const solicitacaoCols = `id, codigo_rastreamento, nome_funcionario, genero, setor, motivo,
	descricao, descricao_encrypted, descricao_nonce, descricao_key_version,
	data_preferencial::text AS data_preferencial, horario_preferencial, email, telefone,
	status, observacoes_psicologo, created_at, updated_at`

// ListSolicitacoes lista as mais recentes primeiro; status vazio não filtra.
func ListSolicitacoes(ctx context.Context, db *gorm.DB, status string, limit, offset int) ([]Solicitacao, error) {
	q := `SELECT ` + solicitacaoCols + ` FROM solicitacoes`
	var args []interface{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []Solicitacao
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func SolicitacaoByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Solicitacao, error) {
	return solicitacaoWhere(ctx, db, `id = ?`, id)
}

func SolicitacaoByCodigo(ctx context.Context, db *gorm.DB, code string) (*Solicitacao, error) {
	return solicitacaoWhere(ctx, db, `codigo_rastreamento = upper(?)`, code)
}

func solicitacaoWhere(ctx context.Context, db *gorm.DB, cond string, args ...interface{}) (*Solicitacao, error) {
	var s Solicitacao
	err := db.WithContext(ctx).Raw(`SELECT `+solicitacaoCols+` FROM solicitacoes WHERE `+cond, args...).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

// CreateSolicitacao grava a solicitação sempre como pendente, com o próximo código de rastreamento.
func CreateSolicitacao(ctx context.Context, db *gorm.DB, in SolicitacaoInput) (*Solicitacao, error) {
	var s Solicitacao
	err := insertWithCodigo(ctx, db, codigo.PrefixRastreamento, "solicitacoes", "codigo_rastreamento", func(tx *gorm.DB, code string) error {
		return tx.Raw(`
			INSERT INTO solicitacoes (codigo_rastreamento, nome_funcionario, genero, setor, motivo,
			                          descricao, descricao_encrypted, descricao_nonce, descricao_key_version,
			                          data_preferencial, horario_preferencial, email, telefone, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?::date, ?, ?, ?, ?)
			RETURNING `+solicitacaoCols,
			code, in.NomeFuncionario, in.Genero, in.Setor, in.Motivo,
			in.Descricao, in.DescricaoEncrypted, in.DescricaoNonce, in.DescricaoKeyVersion,
			in.DataPreferencial, in.HorarioPreferencial, in.Email, in.Telefone, SolicitacaoPendente).Scan(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func UpdateSolicitacao(ctx context.Context, db *gorm.DB, id uuid.UUID, patch SolicitacaoPatch) (*Solicitacao, error) {
	var s Solicitacao
	err := db.WithContext(ctx).Raw(`
		UPDATE solicitacoes SET
			nome_funcionario = COALESCE(?, nome_funcionario),
			genero = COALESCE(?, genero),
			setor = COALESCE(?, setor),
			motivo = COALESCE(?, motivo),
			data_preferencial = COALESCE(?::date, data_preferencial),
			horario_preferencial = COALESCE(?, horario_preferencial),
			email = COALESCE(?, email),
			telefone = COALESCE(?, telefone),
			status = COALESCE(?, status),
			observacoes_psicologo = COALESCE(?, observacoes_psicologo),
			updated_at = now()
		WHERE id = ?
		RETURNING `+solicitacaoCols,
		patch.NomeFuncionario, patch.Genero, patch.Setor, patch.Motivo, patch.DataPreferencial,
		patch.HorarioPreferencial, patch.Email, patch.Telefone, patch.Status, patch.ObservacoesPsicologo, id).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func DeleteSolicitacao(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM solicitacoes WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func CountSolicitacoesByStatus(ctx context.Context, db *gorm.DB) (map[string]int, error) {
	var rows []struct {
		Status string
		Total  int
	}
	if err := db.WithContext(ctx).Raw(`SELECT status, COUNT(*) AS total FROM solicitacoes GROUP BY status`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int{SolicitacaoPendente: 0, SolicitacaoAprovada: 0, SolicitacaoRejeitada: 0}
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// decideSolicitacao muda uma solicitação pendente para status. Se ela existir mas não
// estiver pendente, retorna ErrStatusConflict.
func decideSolicitacao(ctx context.Context, db *gorm.DB, id uuid.UUID, status string, observacoes *string) (*Solicitacao, error) {
	var s Solicitacao
	err := db.WithContext(ctx).Raw(`
		UPDATE solicitacoes SET status = ?, observacoes_psicologo = COALESCE(?, observacoes_psicologo), updated_at = now()
		WHERE id = ? AND status = ?
		RETURNING `+solicitacaoCols,
		status, observacoes, id, SolicitacaoPendente).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID != uuid.Nil {
		return &s, nil
	}
	if _, err := SolicitacaoByID(ctx, db, id); err != nil {
		return nil, err
	}
	return nil, ErrStatusConflict
}

// RejeitarSolicitacao marca uma solicitação pendente como rejeitada.
func RejeitarSolicitacao(ctx context.Context, db *gorm.DB, id uuid.UUID, observacoes *string) (*Solicitacao, error) {
	return decideSolicitacao(ctx, db, id, SolicitacaoRejeitada, observacoes)
}
