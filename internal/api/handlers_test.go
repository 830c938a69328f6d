package api

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/auth"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/cache"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/codigo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/config"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/crypto"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/email"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/middleware"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/testutil"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

var testSecret = []byte("test-secret-with-at-least-32-chars!!")

type recordingHub struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recordingHub) Publish(e ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingHub) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	h      *Handler
	mock   sqlmock.Sqlmock
	hub    *recordingHub
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock := testutil.MockDB(t)
	cfg := &config.Config{
		Version:        "test",
		JWTSecret:      testSecret,
		CORSOrigins:    []string{"http://localhost:5173"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		AppPublicURL:   "http://localhost:5173",
		ReminderTZ:     "America/Sao_Paulo",
	}
	store := cache.New(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	hub := &recordingHub{}
	h := &Handler{
		DB:       db,
		Cfg:      cfg,
		Cache:    store,
		Hub:      hub,
		Verifier: auth.NewVerifier(testSecret, nil, "", ""),
		Log:      zap.NewNop(),
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, nil)
	return &testEnv{h: h, mock: mock, hub: hub, router: NewRouter(h, nil, limiter)}
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := auth.BuildJWT(testSecret, "psicologa", role, "Psi", time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var solicitacaoColumns = []string{"id", "codigo_rastreamento", "nome_funcionario", "genero", "setor", "motivo",
	"descricao", "descricao_encrypted", "descricao_nonce", "descricao_key_version",
	"data_preferencial", "horario_preferencial", "email", "telefone",
	"status", "observacoes_psicologo", "created_at", "updated_at"}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	e := newTestEnv(t)
	e.h.ping = func(_ context.Context) error { return errNoDatabase }
	assert.Equal(t, http.StatusServiceUnavailable, e.do(t, http.MethodGet, "/ready", "", nil).Code)
	e.h.ping = func(_ context.Context) error { return nil }
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusServiceUnavailable, e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Senha: "x"}).Code)

	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	require.NoError(t, err)
	e.h.SetPasswordHash(string(hash))

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{}).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Senha: "errada"}).Code)

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Senha: "segredo"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, auth.RolePsicologa, resp.Role)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), resp.ExpiresAt, time.Minute)

	me := e.do(t, http.MethodGet, "/api/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, auth.RolePsicologa, decode(t, me)["role"])
}

func TestConfigurePassword(t *testing.T) {
	h := &Handler{Cfg: &config.Config{PsicologaPassword: "abc12345"}}
	require.NoError(t, h.ConfigurePassword())
	assert.True(t, auth.CheckPassword(h.passwordHash, "abc12345"))

	h = &Handler{Cfg: &config.Config{PsicologaPasswordHash: "$2a$12$pre-hashed", PsicologaPassword: "ignored"}}
	require.NoError(t, h.ConfigurePassword())
	assert.Equal(t, "$2a$12$pre-hashed", h.passwordHash)
}

func TestProtectedRoutes(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/pacientes", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/pacientes", "not-a-jwt", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/pacientes", token(t, auth.RoleFuncionario), nil).Code)
	// funcionário autenticado ainda acessa /api/me
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/me", token(t, auth.RoleFuncionario), nil).Code)
}

func TestGetPaciente_NotFound(t *testing.T) {
	e := newTestEnv(t)
	id := uuid.New()
	e.mock.ExpectQuery(`FROM pacientes WHERE id = \$1`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rec := e.do(t, http.MethodGet, "/api/pacientes/"+id.String(), token(t, auth.RolePsicologa), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Paciente not found", decode(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/api/pacientes/not-a-uuid", token(t, auth.RolePsicologa), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPacientes_PaginatedSetsTotal(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now()
	e.mock.ExpectQuery(`FROM pacientes ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).WithArgs(1, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "codigo_prontuario", "nome", "created_at", "updated_at"}).
			AddRow(uuid.New(), "P-00002", "Bia", now, now))
	e.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM pacientes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	rec := e.do(t, http.MethodGet, "/api/pacientes?limit=1", token(t, auth.RolePsicologa), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "P-00002", list[0]["codigoProntuario"])
}

func TestCreatePaciente_Validation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/pacientes", token(t, auth.RolePsicologa), map[string]string{
		"nome": "  ", "genero": "x", "email": "sem-arroba",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]interface{})
	assert.Contains(t, details, "nome")
	assert.Contains(t, details, "genero")
	assert.Contains(t, details, "email")
}

func TestCreateConsulta_Validation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/consultas", token(t, auth.RolePsicologa), map[string]string{
		"data": "10/03/2026", "status": "marcada", "compareceu": "talvez",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]interface{})
	for _, k := range []string{"data", "horario", "paciente", "status", "compareceu"} {
		assert.Contains(t, details, k)
	}
}

func TestCreateConsulta_UnknownPacienteID(t *testing.T) {
	e := newTestEnv(t)
	id := uuid.New()
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`FROM pacientes WHERE id = \$1`).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	e.mock.ExpectRollback()
	rec := e.do(t, http.MethodPost, "/api/consultas", token(t, auth.RolePsicologa), map[string]string{
		"pacienteId": id.String(), "data": "2026-03-10", "horario": "09:00",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["details"], "pacienteId")
	assert.Empty(t, e.hub.types())
}

func TestCreateSolicitacao_Validation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/solicitacoes", "", map[string]string{
		"nomeFuncionario": "Ana", "setor": "TI", "motivo": "Ansiedade", "descricao": "curta",
		"dataPreferencial": "amanhã",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]interface{})
	assert.Contains(t, details, "descricao")
	assert.Contains(t, details, "dataPreferencial")
}

// nilArg e bytesArg conferem que a descrição vai cifrada, nunca em texto.
type nilArg struct{}

func (nilArg) Match(v driver.Value) bool { return v == nil }

type bytesArg struct{}

func (bytesArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	return ok && len(b) > 0
}

func TestCreateSolicitacao_EncryptsAndForcesPendente(t *testing.T) {
	old := repo.CodigoPolicy
	repo.CodigoPolicy = codigo.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	t.Cleanup(func() { repo.CodigoPolicy = old })

	e := newTestEnv(t)
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))
	kr, err := crypto.NewKeyring("v1:"+key, "v1")
	require.NoError(t, err)
	e.h.Keyring = kr

	id := uuid.New()
	now := time.Now()
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`SELECT codigo_rastreamento FROM solicitacoes`).
		WillReturnRows(sqlmock.NewRows([]string{"codigo_rastreamento"}).AddRow("S-00009"))
	e.mock.ExpectQuery(`INSERT INTO solicitacoes`).
		WithArgs("S-00010", "Ana", nil, "TI", "Ansiedade", nilArg{}, bytesArg{}, bytesArg{}, "v1",
			nil, nil, nil, nil, repo.SolicitacaoPendente).
		WillReturnRows(sqlmock.NewRows(solicitacaoColumns).AddRow(
			id, "S-00010", "Ana", nil, "TI", "Ansiedade", nil, []byte("x"), []byte("y"), "v1",
			nil, nil, nil, nil, repo.SolicitacaoPendente, nil, now, now))
	e.mock.ExpectCommit()

	rec := e.do(t, http.MethodPost, "/api/solicitacoes", "", map[string]string{
		"nomeFuncionario": "Ana", "setor": "TI", "motivo": "Ansiedade",
		"descricao": "Tenho tido crises de ansiedade no trabalho", "status": "aprovada",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "S-00010", body["codigoRastreamento"])
	assert.Equal(t, repo.SolicitacaoPendente, body["status"])
	assert.Equal(t, "Tenho tido crises de ansiedade no trabalho", body["descricao"])
	assert.Equal(t, []string{ws.SolicitacaoCriada}, e.hub.types())
}

func TestRastreamento_HidesDescricao(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now()
	e.mock.ExpectQuery(`FROM solicitacoes WHERE codigo_rastreamento = upper\(\$1\)`).WithArgs("s-00003").
		WillReturnRows(sqlmock.NewRows(solicitacaoColumns).AddRow(
			uuid.New(), "S-00003", "Ana", nil, "TI", "Estresse", "texto confidencial", nil, nil, nil,
			"2026-03-10", "Manhã (8h-12h)", "ana@empresa.com", nil, repo.SolicitacaoAprovada, "Até breve", now, now))
	rec := e.do(t, http.MethodGet, "/api/solicitacoes/codigo/s-00003", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "S-00003", body["codigoRastreamento"])
	assert.Equal(t, "Até breve", body["observacoesPsicologo"])
	assert.NotContains(t, body, "descricao")
	assert.NotContains(t, body, "email")
}

func TestComprovante(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now()
	e.mock.ExpectQuery(`FROM solicitacoes WHERE codigo_rastreamento`).
		WillReturnRows(sqlmock.NewRows(solicitacaoColumns).AddRow(
			uuid.New(), "S-00004", "Ana", nil, "TI", "Estresse", nil, nil, nil, nil,
			nil, nil, nil, nil, repo.SolicitacaoPendente, nil, now, now))
	rec := e.do(t, http.MethodGet, "/api/solicitacoes/codigo/S-00004/comprovante.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestListSolicitacoes_InvalidStatus(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/solicitacoes?status=arquivada", token(t, auth.RolePsicologa), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAprovar_Conflict(t *testing.T) {
	e := newTestEnv(t)
	id := uuid.New()
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`SELECT status FROM solicitacoes WHERE id = \$1 FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(repo.SolicitacaoAprovada))
	e.mock.ExpectRollback()
	rec := e.do(t, http.MethodPost, "/api/solicitacoes/"+id.String()+"/aprovar", token(t, auth.RolePsicologa),
		map[string]string{"data": "2026-03-10", "horario": "09:00"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, e.hub.types())
}

func TestAprovar_Validation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/solicitacoes/"+uuid.NewString()+"/aprovar", token(t, auth.RolePsicologa),
		map[string]string{"horario": "25:00"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]interface{})
	assert.Contains(t, details, "data")
	assert.Contains(t, details, "horario")
}

func TestAprovar_SendsEmailAfterCommit(t *testing.T) {
	e := newTestEnv(t)
	id, pid, cid := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(repo.SolicitacaoPendente))
	e.mock.ExpectQuery(`UPDATE solicitacoes SET status`).
		WillReturnRows(sqlmock.NewRows(solicitacaoColumns).AddRow(
			id, "S-00005", "Ana Lima", nil, "TI", "Estresse", "desc", nil, nil, nil,
			nil, nil, "ana@empresa.com", nil, repo.SolicitacaoAprovada, "ok", now, now))
	e.mock.ExpectQuery(`FROM pacientes WHERE lower\(nome\) = lower\(\$1\)`).WithArgs("Ana Lima").
		WillReturnRows(sqlmock.NewRows([]string{"id", "codigo_prontuario", "nome", "created_at", "updated_at"}).
			AddRow(pid, "P-00001", "Ana Lima", now, now))
	e.mock.ExpectQuery(`INSERT INTO consultas`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paciente_id", "paciente", "data", "horario", "status", "compareceu", "created_at", "updated_at"}).
			AddRow(cid, pid, "Ana Lima", "2026-03-10", "09:00", repo.ConsultaAgendada, repo.CompareceuPendente, now, now))
	e.mock.ExpectCommit()

	var sent []email.Aprovacao
	e.h.sendAprovacao = func(a email.Aprovacao) error {
		sent = append(sent, a)
		return email.ErrNotConfigured
	}
	rec := e.do(t, http.MethodPost, "/api/solicitacoes/"+id.String()+"/aprovar", token(t, auth.RolePsicologa),
		map[string]string{"data": "2026-03-10", "horario": "9:00", "observacoes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, repo.SolicitacaoAprovada, body["solicitacao"].(map[string]interface{})["status"])
	assert.Equal(t, "P-00001", body["paciente"].(map[string]interface{})["codigoProntuario"])
	require.Len(t, sent, 1)
	assert.Equal(t, email.Aprovacao{To: "ana@empresa.com", NomeFuncionario: "Ana Lima", Data: "2026-03-10", Horario: "09:00"}, sent[0])
	assert.Equal(t, []string{ws.ConsultaCriada, ws.SolicitacaoAtualizada}, e.hub.types())
}

func TestRelatorios_CachedUntilWrite(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, auth.RolePsicologa)
	now := time.Now()
	consultaCols := []string{"id", "paciente", "data", "horario", "status", "compareceu", "especialidade", "created_at", "updated_at"}
	e.mock.ExpectQuery(`FROM consultas c\s+LEFT JOIN pacientes p`).
		WillReturnRows(sqlmock.NewRows(consultaCols).
			AddRow(uuid.New(), "Ana", "2026-03-10", "09:00", repo.ConsultaRealizada, repo.CompareceuSim, "TCC", now, now).
			AddRow(uuid.New(), "Bia", "2026-04-02", "14:00", repo.ConsultaAgendada, nil, "TCC", now, now))
	e.mock.ExpectQuery(`GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("pendente", 3))

	first := e.do(t, http.MethodGet, "/api/relatorios", tok, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := e.do(t, http.MethodGet, "/api/relatorios", tok, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	body := decode(t, first)
	assert.EqualValues(t, 2, body["total"])
	assert.Equal(t, map[string]interface{}{"sim": 1.0, "nao": 0.0, "pendente": 1.0}, body["comparecimento"])
	assert.EqualValues(t, 3, body["solicitacoes"].(map[string]interface{})["pendente"])

	e.h.changed(context.Background(), ws.Event{Type: ws.ConsultaAtualizada})
	assert.Nil(t, e.h.Cache.Get(context.Background(), keyRelatorio))
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)
	e.mock.ExpectQuery(`AS consultas_hoje`).
		WithArgs(sqlmock.AnyArg(), repo.ConsultaAgendada, repo.SolicitacaoPendente).
		WillReturnRows(sqlmock.NewRows([]string{"consultas_hoje", "pacientes_unicos", "consultas_agendadas", "solicitacoes_pendentes"}).
			AddRow(2, 7, 4, 1))
	rec := e.do(t, http.MethodGet, "/api/dashboard", token(t, auth.RolePsicologa), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"consultasHoje":2,"pacientesUnicos":7,"consultasAgendadas":4,"solicitacoesPendentes":1}`, rec.Body.String())
}

func TestPublicRateLimit(t *testing.T) {
	e := newTestEnv(t)
	limiter := middleware.NewRateLimiter(0.001, 1, nil)
	router := NewRouter(e.h, nil, limiter)
	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
