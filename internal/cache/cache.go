// Package cache guarda respostas já serializadas (JSON, PDF) por um tempo curto.
package cache

import "context"

// Prefix agrupa as chaves dos relatórios, invalidadas a cada escrita.
const Prefix = "consulta:relatorio:"

// Store é implementado pelo cache em memória (TTL) e pelo Redis.
type Store interface {
	// Get retorna nil quando a chave não existe ou expirou.
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, value []byte)
	DeletePrefix(ctx context.Context, prefix string)
	Close() error
}
