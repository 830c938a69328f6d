package codigo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "P-00001", Format(PrefixProntuario, 1))
	assert.Equal(t, "S-00042", Format(PrefixRastreamento, 42))
	assert.Equal(t, "P-99999", Format(PrefixProntuario, 99999))
	assert.Equal(t, "P-100000", Format(PrefixProntuario, 100000))
}

func TestParse(t *testing.T) {
	cases := []struct {
		prefix, code string
		want         int
		ok           bool
	}{
		{"P", "P-00001", 1, true},
		{"S", "S-00123", 123, true},
		{"P", "P-100000", 100000, true},
		{"P", "S-00001", 0, false},
		{"P", "P-", 0, false},
		{"P", "P-12a", 0, false},
		{"P", "", 0, false},
		{"P", "p-00001", 0, false},
	}
	for _, c := range cases {
		got, err := Parse(c.prefix, c.code)
		if c.ok {
			require.NoError(t, err, c.code)
			assert.Equal(t, c.want, got, c.code)
		} else {
			assert.ErrorIs(t, err, ErrMalformed, c.code)
		}
	}
}

func TestNext(t *testing.T) {
	assert.Equal(t, "P-00001", Next("P", ""))
	assert.Equal(t, "P-00001", Next("P", "lixo"))
	assert.Equal(t, "P-00002", Next("P", "P-00001"))
	assert.Equal(t, "S-00010", Next("S", "S-00009"))
	assert.Equal(t, "P-100000", Next("P", "P-99999"))
}

func uniqueErr() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(uniqueErr()))
	assert.True(t, IsUniqueViolation(errors.Join(errors.New("insert"), uniqueErr())))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestWithRetry_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	var retries []int
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, OnRetry: func(a int, _ error) { retries = append(retries, a) }}
	err := WithRetry(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return uniqueErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestWithRetry_Exhausted(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return uniqueErr()
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 5, calls)
}

func TestWithRetry_OtherErrorReturnedImmediately(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	err := WithRetry(context.Background(), DefaultPolicy, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return uniqueErr()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
