package repo

import (
	"context"
	"fmt"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/codigo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/metrics"
	"gorm.io/gorm"
)

// CodigoPolicy controla as tentativas de gerar um código sem colisão.
var CodigoPolicy = codigo.DefaultPolicy

// insertWithCodigo lê o maior código existente, calcula o próximo e chama insert.
// Cada tentativa roda numa transação própria (savepoint quando db já está em transação),
// então uma colisão na unique não invalida a transação externa.
func insertWithCodigo(ctx context.Context, db *gorm.DB, prefix, table, column string, insert func(tx *gorm.DB, code string) error) error {
	p := CodigoPolicy
	p.OnRetry = func(int, error) { metrics.RecordCodeRetry(prefix) }
	q := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE %[2]s LIKE ? ORDER BY length(%[2]s) DESC, %[2]s DESC LIMIT 1`, table, column)
	err := codigo.WithRetry(ctx, p, func(ctx context.Context) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last string
			if err := tx.Raw(q, prefix+"-%").Scan(&last).Error; err != nil {
				return err
			}
			return insert(tx, codigo.Next(prefix, last))
		})
	})
	if err != nil {
		return err
	}
	metrics.RecordCodeGenerated(prefix)
	return nil
}
