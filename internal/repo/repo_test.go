package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/codigo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pacienteColumns = []string{"id", "codigo_prontuario", "nome", "genero", "setor", "email", "telefone", "created_at", "updated_at"}

func fastPolicy(t *testing.T) {
	t.Helper()
	old := CodigoPolicy
	CodigoPolicy = codigo.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	t.Cleanup(func() { CodigoPolicy = old })
}

func TestCreatePaciente_NextCode(t *testing.T) {
	fastPolicy(t)
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT codigo_prontuario FROM pacientes WHERE codigo_prontuario LIKE \$1 ORDER BY length`).
		WithArgs("P-%").
		WillReturnRows(sqlmock.NewRows([]string{"codigo_prontuario"}).AddRow("P-00007"))
	mock.ExpectQuery(`INSERT INTO pacientes`).
		WithArgs("P-00008", "Maria Souza", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(pacienteColumns).AddRow(id, "P-00008", "Maria Souza", "feminino", "RH", nil, nil, now, now))
	mock.ExpectCommit()

	genero := GeneroFeminino
	p, err := CreatePaciente(context.Background(), db, PacienteInput{Nome: "Maria Souza", Genero: &genero})
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "P-00008", p.CodigoProntuario)
	require.NotNil(t, p.Setor)
	assert.Equal(t, "RH", *p.Setor)
	assert.Nil(t, p.Email)
}

func TestCreatePaciente_FirstCode(t *testing.T) {
	fastPolicy(t)
	db, mock := testutil.MockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT codigo_prontuario FROM pacientes`).
		WillReturnRows(sqlmock.NewRows([]string{"codigo_prontuario"}))
	mock.ExpectQuery(`INSERT INTO pacientes`).
		WithArgs("P-00001", "João", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(pacienteColumns).AddRow(uuid.New(), "P-00001", "João", nil, nil, nil, nil, now, now))
	mock.ExpectCommit()

	p, err := CreatePaciente(context.Background(), db, PacienteInput{Nome: "João"})
	require.NoError(t, err)
	assert.Equal(t, "P-00001", p.CodigoProntuario)
}

func TestCreatePaciente_RetriesOnUniqueViolation(t *testing.T) {
	fastPolicy(t)
	db, mock := testutil.MockDB(t)
	now := time.Now()
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT codigo_prontuario FROM pacientes`).
		WillReturnRows(sqlmock.NewRows([]string{"codigo_prontuario"}).AddRow("P-00001"))
	mock.ExpectQuery(`INSERT INTO pacientes`).WithArgs("P-00002", "Ana", nil, nil, nil, nil).WillReturnError(dup)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT codigo_prontuario FROM pacientes`).
		WillReturnRows(sqlmock.NewRows([]string{"codigo_prontuario"}).AddRow("P-00002"))
	mock.ExpectQuery(`INSERT INTO pacientes`).WithArgs("P-00003", "Ana", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(pacienteColumns).AddRow(uuid.New(), "P-00003", "Ana", nil, nil, nil, nil, now, now))
	mock.ExpectCommit()

	p, err := CreatePaciente(context.Background(), db, PacienteInput{Nome: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "P-00003", p.CodigoProntuario)
}

func TestCreateSolicitacao_ExhaustsRetries(t *testing.T) {
	fastPolicy(t)
	CodigoPolicy.MaxAttempts = 2
	db, mock := testutil.MockDB(t)
	dup := &pgconn.PgError{Code: "23505"}
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT codigo_rastreamento FROM solicitacoes`).
			WithArgs("S-%").
			WillReturnRows(sqlmock.NewRows([]string{"codigo_rastreamento"}).AddRow("S-00041"))
		mock.ExpectQuery(`INSERT INTO solicitacoes`).WillReturnError(dup)
		mock.ExpectRollback()
	}
	_, err := CreateSolicitacao(context.Background(), db, SolicitacaoInput{NomeFuncionario: "Ana", Setor: "TI", Motivo: "Ansiedade"})
	assert.ErrorIs(t, err, codigo.ErrExhausted)
}

func TestPacienteByID_NotFound(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectQuery(`SELECT id, codigo_prontuario, nome .* FROM pacientes WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(pacienteColumns))
	_, err := PacienteByID(context.Background(), db, id)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestSearchPacientes_EscapesLike(t *testing.T) {
	db, mock := testutil.MockDB(t)
	mock.ExpectQuery(`FROM pacientes WHERE nome ILIKE \$1 OR codigo_prontuario ILIKE \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(`%50\%%`, `%50\%%`, 10, 0).
		WillReturnRows(sqlmock.NewRows(pacienteColumns))
	list, err := SearchPacientes(context.Background(), db, "50%", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeletePaciente_RemovesConsultasFirst(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM consultas WHERE paciente_id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM pacientes WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, DeletePaciente(context.Background(), db, id))
}

func TestDeletePaciente_NotFoundRollsBack(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM consultas`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM pacientes`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err := DeletePaciente(context.Background(), db, id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteConsulta_NotFound(t *testing.T) {
	db, mock := testutil.MockDB(t)
	mock.ExpectExec(`DELETE FROM consultas WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, DeleteConsulta(context.Background(), db, uuid.New()), gorm.ErrRecordNotFound)
}

func TestCountSolicitacoesByStatus_FillsMissing(t *testing.T) {
	db, mock := testutil.MockDB(t)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM solicitacoes GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("pendente", 4).AddRow("aprovada", 2))
	got, err := CountSolicitacoesByStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pendente": 4, "aprovada": 2, "rejeitada": 0}, got)
}

func TestRejeitarSolicitacao_Conflict(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	cols := []string{"id", "codigo_rastreamento", "nome_funcionario", "setor", "motivo", "status", "created_at", "updated_at"}
	mock.ExpectQuery(`UPDATE solicitacoes SET status = \$1`).
		WithArgs(SolicitacaoRejeitada, sqlmock.AnyArg(), id, SolicitacaoPendente).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(`FROM solicitacoes WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(id, "S-00001", "Ana", "TI", "Estresse", SolicitacaoAprovada, time.Now(), time.Now()))

	obs := "fora do escopo"
	_, err := RejeitarSolicitacao(context.Background(), db, id, &obs)
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestRejeitarSolicitacao_NotFound(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectQuery(`UPDATE solicitacoes SET status`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM solicitacoes WHERE id = \$1`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := RejeitarSolicitacao(context.Background(), db, id, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAprovarSolicitacao_NotPendente(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM solicitacoes WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(SolicitacaoRejeitada))
	mock.ExpectRollback()
	_, err := AprovarSolicitacao(context.Background(), db, id, Aprovacao{Data: "2026-03-10", Horario: "09:00"})
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestConsultasParaLembrete_Query(t *testing.T) {
	db, mock := testutil.MockDB(t)
	id := uuid.New()
	mock.ExpectQuery(`JOIN pacientes p ON p.id = c.paciente_id\s+WHERE c.data = \$1::date AND c.status = \$2 AND c.lembrete_enviado_em IS NULL`).
		WithArgs("2026-03-10", ConsultaAgendada).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paciente", "telefone", "data", "horario", "especialidade"}).
			AddRow(id, "Ana", "+5511999990000", "2026-03-10", "09:00", nil))
	list, err := ConsultasParaLembrete(context.Background(), db, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "+5511999990000", list[0].Telefone)
	assert.Equal(t, "09:00", list[0].Horario)
}
