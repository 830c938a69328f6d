// Package seed insere dados de demonstração num banco vazio.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/crypto"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
)

type demoPaciente struct {
	nome, genero, setor, telefone string
}

var pacientes = []demoPaciente{
	{"Maria Souza", repo.GeneroFeminino, "RH", "+5511999990001"},
	{"João Pereira", repo.GeneroMasculino, "Produção", "+5511999990002"},
	{"Ana Lima", repo.GeneroFeminino, "Logística", ""},
	{"Carlos Alberto", repo.GeneroMasculino, "TI", "+5511999990004"},
}

type demoConsulta struct {
	paciente      int
	dias          int
	horario       string
	status        string
	compareceu    string
	especialidade string
	motivo        string
}

// dias é relativo a hoje.
var consultas = []demoConsulta{
	{0, -30, "09:00", repo.ConsultaRealizada, repo.CompareceuSim, "Terapia Cognitivo-Comportamental", "Ansiedade"},
	{1, -21, "14:00", repo.ConsultaRealizada, repo.CompareceuNao, "Psicologia Organizacional", "Conflitos no trabalho"},
	{2, -7, "19:00", repo.ConsultaCancelada, "", "Psicologia Clínica", "Estresse"},
	{0, 0, "10:30", repo.ConsultaAgendada, repo.CompareceuPendente, "Terapia Cognitivo-Comportamental", "Ansiedade"},
	{3, 1, "15:00", repo.ConsultaAgendada, repo.CompareceuPendente, "Psicologia Clínica", "Luto"},
}

type demoSolicitacao struct {
	nome, setor, motivo, descricao, horario string
}

var solicitacoes = []demoSolicitacao{
	{"Fernanda Costa", "Financeiro", "Ansiedade", "Tenho sentido muita ansiedade antes das reuniões semanais.", "Manhã (8h-12h)"},
	{"Roberto Dias", "Produção", "Estresse", "Turnos extras seguidos estão afetando meu sono.", "Tarde (13h-17h)"},
}

// Run popula o banco quando não há pacientes. kr pode ser nil (descrições em texto).
func Run(ctx context.Context, db *gorm.DB, kr *crypto.Keyring, log *zap.Logger) error {
	n, err := repo.CountPacientes(ctx, db)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("seed: pacientes já existem, nada a fazer", zap.Int("pacientes", n))
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created := make([]*repo.Paciente, len(pacientes))
		for i, d := range pacientes {
			in := repo.PacienteInput{Nome: d.nome, Genero: str(d.genero), Setor: str(d.setor), Telefone: str(d.telefone)}
			p, err := repo.CreatePaciente(ctx, tx, in)
			if err != nil {
				return fmt.Errorf("seed paciente %s: %w", d.nome, err)
			}
			created[i] = p
		}
		today := time.Now()
		for _, d := range consultas {
			p := created[d.paciente]
			_, err := repo.CreateConsulta(ctx, tx, repo.ConsultaInput{
				PacienteID:    &p.ID,
				Paciente:      p.Nome,
				Genero:        p.Genero,
				Setor:         p.Setor,
				Data:          today.AddDate(0, 0, d.dias).Format("2006-01-02"),
				Horario:       d.horario,
				Status:        d.status,
				Compareceu:    str(d.compareceu),
				Especialidade: str(d.especialidade),
				Motivo:        str(d.motivo),
			})
			if err != nil {
				return fmt.Errorf("seed consulta: %w", err)
			}
		}
		for _, d := range solicitacoes {
			in := repo.SolicitacaoInput{
				NomeFuncionario:     d.nome,
				Setor:               d.setor,
				Motivo:              d.motivo,
				HorarioPreferencial: str(d.horario),
			}
			if kr.Enabled() {
				ct, nonce, ver, err := kr.Seal([]byte(d.descricao))
				if err != nil {
					return err
				}
				in.DescricaoEncrypted, in.DescricaoNonce, in.DescricaoKeyVersion = ct, nonce, &ver
			} else {
				in.Descricao = str(d.descricao)
			}
			if _, err := repo.CreateSolicitacao(ctx, tx, in); err != nil {
				return fmt.Errorf("seed solicitacao: %w", err)
			}
		}
		log.Info("seed: dados de demonstração criados",
			zap.Int("pacientes", len(pacientes)),
			zap.Int("consultas", len(consultas)),
			zap.Int("solicitacoes", len(solicitacoes)))
		return nil
	})
}

func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
