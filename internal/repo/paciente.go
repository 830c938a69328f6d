package repo

import (
	"context"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/codigo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GeneroMasculino = "masculino"
	GeneroFeminino  = "feminino"
	GeneroOutro     = "outro"
)

type Paciente struct {
	ID               uuid.UUID
	CodigoProntuario string
	Nome             string
	Genero           *string
	Setor            *string
	Email            *string
	Telefone         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PacienteInput struct {
	Nome     string
	Genero   *string
	Setor    *string
	Email    *string
	Telefone *string
}

// PacientePatch: campos nil não são alterados.
type PacientePatch struct {
	Nome     *string
	Genero   *string
	Setor    *string
	Email    *string
	Telefone *string
}

const pacienteCols = `id, codigo_prontuario, nome, genero, setor, email, telefone, created_at, updated_at`

// ListPacientes retorna os pacientes mais recentes primeiro. limit 0 = sem limite.
func ListPacientes(ctx context.Context, db *gorm.DB, limit, offset int) ([]Paciente, error) {
	return SearchPacientes(ctx, db, "", limit, offset)
}

// SearchPacientes filtra por trecho do nome ou do código de prontuário, sem diferenciar maiúsculas.
func SearchPacientes(ctx context.Context, db *gorm.DB, q string, limit, offset int) ([]Paciente, error) {
	sql := `SELECT ` + pacienteCols + ` FROM pacientes`
	var args []interface{}
	if q != "" {
		sql += ` WHERE nome ILIKE ? OR codigo_prontuario ILIKE ?`
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like)
	}
	sql += ` ORDER BY created_at DESC`
	if limit > 0 {
		sql += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []Paciente
	err := db.WithContext(ctx).Raw(sql, args...).Scan(&list).Error
	return list, err
}

func CountPacientes(ctx context.Context, db *gorm.DB) (int, error) {
	var n int
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM pacientes`).Scan(&n).Error
	return n, err
}

func PacienteByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Paciente, error) {
	return pacienteWhere(ctx, db, `id = ?`, id)
}

func PacienteByCodigo(ctx context.Context, db *gorm.DB, code string) (*Paciente, error) {
	return pacienteWhere(ctx, db, `codigo_prontuario = upper(?)`, code)
}

// PacienteByNome busca pelo nome exato sem diferenciar maiúsculas; havendo homônimos, o mais antigo.
func PacienteByNome(ctx context.Context, db *gorm.DB, nome string) (*Paciente, error) {
	return pacienteWhere(ctx, db, `lower(nome) = lower(?) ORDER BY created_at LIMIT 1`, nome)
}

func pacienteWhere(ctx context.Context, db *gorm.DB, cond string, args ...interface{}) (*Paciente, error) {
	var p Paciente
	err := db.WithContext(ctx).Raw(`SELECT `+pacienteCols+` FROM pacientes WHERE `+cond, args...).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// CreatePaciente insere o paciente com o próximo código de prontuário livre.
func CreatePaciente(ctx context.Context, db *gorm.DB, in PacienteInput) (*Paciente, error) {
	var p Paciente
	err := insertWithCodigo(ctx, db, codigo.PrefixProntuario, "pacientes", "codigo_prontuario", func(tx *gorm.DB, code string) error {
		return tx.Raw(`
			INSERT INTO pacientes (codigo_prontuario, nome, genero, setor, email, telefone)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING `+pacienteCols,
			code, in.Nome, in.Genero, in.Setor, in.Email, in.Telefone).Scan(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func UpdatePaciente(ctx context.Context, db *gorm.DB, id uuid.UUID, patch PacientePatch) (*Paciente, error) {
	var p Paciente
	err := db.WithContext(ctx).Raw(`
		UPDATE pacientes SET
			nome = COALESCE(?, nome),
			genero = COALESCE(?, genero),
			setor = COALESCE(?, setor),
			email = COALESCE(?, email),
			telefone = COALESCE(?, telefone),
			updated_at = now()
		WHERE id = ?
		RETURNING `+pacienteCols,
		patch.Nome, patch.Genero, patch.Setor, patch.Email, patch.Telefone, id).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// DeletePaciente remove as consultas do paciente e depois o próprio paciente.
func DeletePaciente(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM consultas WHERE paciente_id = ?`, id).Error; err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM pacientes WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
