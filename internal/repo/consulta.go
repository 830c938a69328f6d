package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrPacienteInexistente: paciente_id não referencia nenhum paciente.
var ErrPacienteInexistente = errors.New("paciente não encontrado")

const (
	ConsultaAgendada  = "agendada"
	ConsultaRealizada = "realizada"
	ConsultaCancelada = "cancelada"

	CompareceuSim      = "sim"
	CompareceuNao      = "nao"
	CompareceuPendente = "pendente"
)

type Consulta struct {
	ID                uuid.UUID
	PacienteID        *uuid.UUID
	Paciente          string
	Genero            *string
	Setor             *string
	Data              string // YYYY-MM-DD
	Horario           string // HH:MM
	Status            string
	Compareceu        *string
	Especialidade     *string
	Motivo            *string
	Observacoes       *string
	SolicitacaoID     *uuid.UUID
	LembreteEnviadoEm *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ConsultaInput struct {
	PacienteID    *uuid.UUID
	Paciente      string
	Genero        *string
	Setor         *string
	Data          string
	Horario       string
	Status        string
	Compareceu    *string
	Especialidade *string
	Motivo        *string
	Observacoes   *string
	SolicitacaoID *uuid.UUID
}

type ConsultaPatch struct {
	PacienteID    *uuid.UUID
	Paciente      *string
	Genero        *string
	Setor         *string
	Data          *string
	Horario       *string
	Status        *string
	Compareceu    *string
	Especialidade *string
	Motivo        *string
	Observacoes   *string
}

type ConsultaFilter struct {
	Status     string
	Search     string
	PacienteID *uuid.UUID
	Limit      int
	Offset     int
}

// Nome, gênero e setor vêm do cadastro atual do paciente quando a consulta está vinculada a um.
const consultaSelect = `
	SELECT c.id, c.paciente_id,
	       COALESCE(p.nome, c.paciente) AS paciente,
	       COALESCE(p.genero, c.genero) AS genero,
	       COALESCE(p.setor, c.setor) AS setor,
	       c.data::text AS data, to_char(c.horario, 'HH24:MI') AS horario,
	       c.status, c.compareceu, c.especialidade, c.motivo, c.observacoes,
	       c.solicitacao_id, c.lembrete_enviado_em, c.created_at, c.updated_at
	FROM consultas c
	LEFT JOIN pacientes p ON p.id = c.paciente_id`

const consultaReturning = `
	RETURNING id, paciente_id, paciente, genero, setor,
	          data::text AS data, to_char(horario, 'HH24:MI') AS horario,
	          status, compareceu, especialidade, motivo, observacoes,
	          solicitacao_id, lembrete_enviado_em, created_at, updated_at`

// ListConsultas lista as consultas mais recentes primeiro.
func ListConsultas(ctx context.Context, db *gorm.DB, f ConsultaFilter) ([]Consulta, error) {
	q := consultaSelect + ` WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		q += ` AND c.status = ?`
		args = append(args, f.Status)
	}
	if f.PacienteID != nil {
		q += ` AND c.paciente_id = ?`
		args = append(args, *f.PacienteID)
	}
	if f.Search != "" {
		q += ` AND (COALESCE(p.nome, c.paciente) ILIKE ? OR c.especialidade ILIKE ? OR c.motivo ILIKE ?)`
		like := "%" + escapeLike(f.Search) + "%"
		args = append(args, like, like, like)
	}
	q += ` ORDER BY c.created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	var list []Consulta
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func ConsultasByPaciente(ctx context.Context, db *gorm.DB, pacienteID uuid.UUID) ([]Consulta, error) {
	return ListConsultas(ctx, db, ConsultaFilter{PacienteID: &pacienteID})
}

func ConsultaByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Consulta, error) {
	var c Consulta
	err := db.WithContext(ctx).Raw(consultaSelect+` WHERE c.id = ?`, id).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func CreateConsulta(ctx context.Context, db *gorm.DB, in ConsultaInput) (*Consulta, error) {
	if in.Status == "" {
		in.Status = ConsultaAgendada
	}
	var c Consulta
	err := db.WithContext(ctx).Raw(`
		INSERT INTO consultas (paciente_id, paciente, genero, setor, data, horario, status, compareceu,
		                       especialidade, motivo, observacoes, solicitacao_id)
		VALUES (?, ?, ?, ?, ?::date, ?::time, ?, ?, ?, ?, ?, ?)`+consultaReturning,
		in.PacienteID, in.Paciente, in.Genero, in.Setor, in.Data, in.Horario, in.Status, in.Compareceu,
		in.Especialidade, in.Motivo, in.Observacoes, in.SolicitacaoID).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func UpdateConsulta(ctx context.Context, db *gorm.DB, id uuid.UUID, patch ConsultaPatch) (*Consulta, error) {
	var c Consulta
	err := db.WithContext(ctx).Raw(`
		UPDATE consultas SET
			paciente_id = COALESCE(?, paciente_id),
			paciente = COALESCE(?, paciente),
			genero = COALESCE(?, genero),
			setor = COALESCE(?, setor),
			data = COALESCE(?::date, data),
			horario = COALESCE(?::time, horario),
			status = COALESCE(?, status),
			compareceu = COALESCE(?, compareceu),
			especialidade = COALESCE(?, especialidade),
			motivo = COALESCE(?, motivo),
			observacoes = COALESCE(?, observacoes),
			updated_at = now()
		WHERE id = ?`+consultaReturning,
		patch.PacienteID, patch.Paciente, patch.Genero, patch.Setor, patch.Data, patch.Horario, patch.Status,
		patch.Compareceu, patch.Especialidade, patch.Motivo, patch.Observacoes, id).Scan(&c).Error
	if isForeignKeyViolation(err) {
		return nil, ErrPacienteInexistente
	}
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

// isForeignKeyViolation reporta SQLSTATE 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func DeleteConsulta(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM consultas WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsultaLembrete é uma consulta agendada ainda sem lembrete, com telefone do paciente.
type ConsultaLembrete struct {
	ID            uuid.UUID
	Paciente      string
	Telefone      string
	Data          string
	Horario       string
	Especialidade *string
}

// ConsultasParaLembrete lista as consultas agendadas em date (YYYY-MM-DD) que ainda não
// receberam lembrete e cujo paciente tem telefone.
func ConsultasParaLembrete(ctx context.Context, db *gorm.DB, date string) ([]ConsultaLembrete, error) {
	var list []ConsultaLembrete
	err := db.WithContext(ctx).Raw(`
		SELECT c.id, p.nome AS paciente, p.telefone, c.data::text AS data,
		       to_char(c.horario, 'HH24:MI') AS horario, c.especialidade
		FROM consultas c
		JOIN pacientes p ON p.id = c.paciente_id
		WHERE c.data = ?::date AND c.status = ? AND c.lembrete_enviado_em IS NULL
		  AND p.telefone IS NOT NULL AND p.telefone <> ''
		ORDER BY c.horario
	`, date, ConsultaAgendada).Scan(&list).Error
	return list, err
}

func MarkLembreteEnviado(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`UPDATE consultas SET lembrete_enviado_em = now(), updated_at = now() WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DashboardCounts resume o dia corrente (today em YYYY-MM-DD).
type DashboardCounts struct {
	ConsultasHoje         int
	PacientesUnicos       int
	ConsultasAgendadas    int
	SolicitacoesPendentes int
}

func Dashboard(ctx context.Context, db *gorm.DB, today string) (*DashboardCounts, error) {
	var d DashboardCounts
	err := db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM consultas WHERE data = ?::date) AS consultas_hoje,
			(SELECT COUNT(DISTINCT lower(COALESCE(p.nome, c.paciente)))
			   FROM consultas c LEFT JOIN pacientes p ON p.id = c.paciente_id) AS pacientes_unicos,
			(SELECT COUNT(*) FROM consultas WHERE status = ?) AS consultas_agendadas,
			(SELECT COUNT(*) FROM solicitacoes WHERE status = ?) AS solicitacoes_pendentes
	`, today, ConsultaAgendada, SolicitacaoPendente).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}
