package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

// beginTx starts a transaction on the pool, logging failures with the caller's logger.
func beginTx(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// listColumns maps the field names accepted by list endpoints to SQL columns.
type listColumns struct {
	sortable         map[string]string
	searchable       map[string]string
	defaultSort      string
	defaultSearchCol string
}

// listClause builds the WHERE, ORDER BY and LIMIT/OFFSET tail of a list query.
// Unknown sort and search fields are ignored; args continue the caller's numbering.
func listClause(cols listColumns, q model.ListQuery, where []string, args []any) (string, []any) {
	q = q.Normalise()

	if q.Search != "" {
		col, ok := cols.searchable[q.SearchCol]
		if !ok {
			col = cols.searchable[cols.defaultSearchCol]
		}
		if col != "" {
			args = append(args, "%"+escapeLike(q.Search)+"%")
			where = append(where, fmt.Sprintf("%s::text ILIKE $%d", col, len(args)))
		}
	}

	var b strings.Builder
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(cols, q.Sort))

	args = append(args, q.Limit, q.Offset())
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return b.String(), args
}

// orderBy turns "price,-name" into "price ASC, name DESC, id ASC".
func orderBy(cols listColumns, sort string) string {
	var terms []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := cols.sortable[field]; ok {
			terms = append(terms, col+" "+dir)
		}
	}
	if len(terms) == 0 && cols.defaultSort != "" {
		terms = append(terms, cols.defaultSort)
	}
	terms = append(terms, "id ASC")
	return strings.Join(terms, ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
