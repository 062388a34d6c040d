package repositories

import (
	"fmt"
	"strings"

	"cloakroom-backend/internal/models"
)

// whereClause renders f as a parameterized WHERE clause. Arguments are
// numbered from 1. An empty filter yields an empty clause.
func whereClause(f models.RecordFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if len(f.Events) > 0 {
		add("event_name = ANY($%d)", f.Events)
	}
	if len(f.Locations) > 0 {
		add("location = ANY($%d)", f.Locations)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if f.From != nil {
		add("deposited_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("deposited_at <= $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
