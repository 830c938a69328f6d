package api

import (
	"net/http"
	"strconv"
)

const maxLimit = 500

// ParseLimitOffset lê limit e offset da query. Sem limit a lista vem completa (limit 0).
func ParseLimitOffset(r *http.Request) (limit, offset int) {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// setTotal publica o total em X-Total-Count quando a lista é paginada.
func setTotal(w http.ResponseWriter, limit, total int) {
	if limit > 0 {
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
	}
}
