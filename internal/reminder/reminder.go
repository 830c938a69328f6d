// Package reminder envia lembretes de WhatsApp para as consultas do dia seguinte.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/metrics"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/whatsapp"
)

// Sender envia um lembrete a um telefone.
type Sender interface {
	SendReminder(ctx context.Context, phone, nome, dateStr, timeStr, especialidade string) error
}

// Store lista as consultas pendentes de lembrete e marca as enviadas. Em produção é o repo.
type Store interface {
	ConsultasParaLembrete(ctx context.Context, date string) ([]repo.ConsultaLembrete, error)
	MarkLembreteEnviado(ctx context.Context, id uuid.UUID) error
}

type dbStore struct{ db *gorm.DB }

// NewStore adapta o repo para a interface Store.
func NewStore(db *gorm.DB) Store { return dbStore{db: db} }

func (s dbStore) ConsultasParaLembrete(ctx context.Context, date string) ([]repo.ConsultaLembrete, error) {
	return repo.ConsultasParaLembrete(ctx, s.db, date)
}

func (s dbStore) MarkLembreteEnviado(ctx context.Context, id uuid.UUID) error {
	return repo.MarkLembreteEnviado(ctx, s.db, id)
}

type Job struct {
	Store  Store
	Sender Sender
	Loc    *time.Location
	Log    *zap.Logger
	// Now é substituído nos testes.
	Now func() time.Time
}

// NewJob monta o job com o fuso tz (ex.: America/Sao_Paulo). Fuso inválido cai em UTC.
func NewJob(store Store, sender Sender, tz string, log *zap.Logger) *Job {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid reminder timezone, using UTC", zap.String("tz", tz), zap.Error(err))
		loc = time.UTC
	}
	return &Job{Store: store, Sender: sender, Loc: loc, Log: log, Now: time.Now}
}

// TargetDate é o dia seguinte a now no fuso loc.
func TargetDate(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, loc)
}

// Run envia os lembretes das consultas de amanhã.
func (j *Job) Run(ctx context.Context) (sent, skipped int, err error) {
	return j.RunFor(ctx, TargetDate(j.Now(), j.Loc))
}

// RunFor envia um lembrete por consulta agendada em date. Falhas por destinatário são
// registradas e contadas como skipped; só consultas entregues são marcadas.
func (j *Job) RunFor(ctx context.Context, date time.Time) (sent, skipped int, err error) {
	rows, err := j.Store.ConsultasParaLembrete(ctx, date.Format("2006-01-02"))
	if err != nil {
		return 0, 0, fmt.Errorf("list consultas: %w", err)
	}
	dateStr := date.Format("02/01/2006")
	for _, r := range rows {
		if ctx.Err() != nil {
			return sent, skipped, ctx.Err()
		}
		esp := ""
		if r.Especialidade != nil {
			esp = *r.Especialidade
		}
		if err := j.Sender.SendReminder(ctx, r.Telefone, r.Paciente, dateStr, r.Horario, esp); err != nil {
			skipped++
			metrics.RecordReminder(false)
			if errors.Is(err, whatsapp.ErrNotConfigured) {
				continue
			}
			j.Log.Warn("reminder send failed", zap.String("consulta_id", r.ID.String()), zap.Error(err))
			continue
		}
		if err := j.Store.MarkLembreteEnviado(ctx, r.ID); err != nil {
			j.Log.Error("mark reminder sent", zap.String("consulta_id", r.ID.String()), zap.Error(err))
		}
		sent++
		metrics.RecordReminder(true)
	}
	j.Log.Info("reminders processed", zap.String("date", date.Format("2006-01-02")),
		zap.Int("sent", sent), zap.Int("skipped", skipped))
	return sent, skipped, nil
}

// Schedule registra o job no cron com a expressão spec (5 campos, no fuso do job).
// O chamador inicia e para o cron.
func (j *Job) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(j.Loc))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, _, err := j.Run(ctx); err != nil {
			j.Log.Error("reminder job failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reminder cron %q: %w", spec, err)
	}
	return c, nil
}
