package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
)

var (
	ErrInvalidEmail   = errors.New("invalid email")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidHorario = errors.New("invalid horario")
)

// emailRegex valida formato de e-mail (uma @ e domínio com ponto).
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minDescricao = 10

// fieldErrors acumula mensagens por campo; vazio = válido.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) required(field, v, msg string) {
	if strings.TrimSpace(v) == "" {
		f.add(field, msg)
	}
}

func (f fieldErrors) enum(field string, v *string, allowed ...string) {
	if v == nil {
		return
	}
	for _, a := range allowed {
		if *v == a {
			return
		}
	}
	f.add(field, "valor inválido: use "+strings.Join(allowed, ", "))
}

func (f fieldErrors) email(field string, v *string) {
	if v != nil && *v != "" && ValidateEmailRegex(*v) != nil {
		f.add(field, "e-mail inválido")
	}
}

func (f fieldErrors) date(field string, v *string) {
	if v != nil && *v != "" {
		if _, err := ParseDate(*v); err != nil {
			f.add(field, "data inválida (use AAAA-MM-DD)")
		}
	}
}

func (f fieldErrors) horario(field string, v *string) {
	if v != nil && *v != "" {
		if _, err := NormalizeHorario(*v); err != nil {
			f.add(field, "horário inválido (use HH:MM)")
		}
	}
}

// write responde 400 com os detalhes e devolve true se houve erro.
func (f fieldErrors) write(w http.ResponseWriter) bool {
	if len(f) == 0 {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Invalid data", "details": f})
	return true
}

// ValidateEmailRegex valida formato de e-mail com o regex padrão do backend.
func ValidateEmailRegex(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ParseDate aceita apenas YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// NormalizeHorario aceita HH:MM ou HH:MM:SS e devolve HH:MM.
func NormalizeHorario(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", ErrInvalidHorario
}

var (
	generos        = []string{repo.GeneroMasculino, repo.GeneroFeminino, repo.GeneroOutro}
	consultaStatus = []string{repo.ConsultaAgendada, repo.ConsultaRealizada, repo.ConsultaCancelada}
	compareceus    = []string{repo.CompareceuSim, repo.CompareceuNao, repo.CompareceuPendente}
	solicStatus    = []string{repo.SolicitacaoPendente, repo.SolicitacaoAprovada, repo.SolicitacaoRejeitada}
)

// trimPtr remove espaços; string vazia vira nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
