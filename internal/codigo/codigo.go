// Package codigo gera os códigos sequenciais legíveis (P-00001, S-00001)
// de prontuário e de rastreamento.
package codigo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	PrefixProntuario   = "P"
	PrefixRastreamento = "S"

	digits = 5
)

var (
	ErrMalformed = errors.New("codigo: malformed code")
	// ErrExhausted é retornado quando todas as tentativas colidiram na constraint unique.
	ErrExhausted = errors.New("codigo: retry attempts exhausted")

	codeRe = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)
)

// Format monta o código com o número completado com zeros à esquerda (5 dígitos).
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s-%0*d", prefix, digits, n)
}

// Parse extrai o número de um código com o prefixo informado.
func Parse(prefix, code string) (int, error) {
	m := codeRe.FindStringSubmatch(code)
	if m == nil || m[1] != prefix {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, code)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, code)
	}
	return n, nil
}

// Next devolve o código seguinte a last. last vazio ou inválido recomeça em 1.
func Next(prefix, last string) string {
	n, err := Parse(prefix, last)
	if err != nil {
		return Format(prefix, 1)
	}
	return Format(prefix, n+1)
}

// IsUniqueViolation reporta se err é uma violação de unique (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry é chamado antes de cada espera; opcional.
	OnRetry     func(attempt int, err error)
}

var DefaultPolicy = Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond}

// WithRetry executa attempt até ele não colidir numa constraint unique.
// Entre tentativas espera BaseDelay * número da tentativa.
func WithRetry(ctx context.Context, p Policy, attempt func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	var last error
	for i := 1; i <= p.MaxAttempts; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}
		last = err
		if i == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(i, err)
		}
		t := time.NewTimer(p.BaseDelay * time.Duration(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, p.MaxAttempts, last)
}
