package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"lodging/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct{ q querier }

func (r repos) Lodgings() domain.LodgingRepository { return lodgingRepo{q: r.q} }
func (r repos) Rentals() domain.Repository[domain.Rental] { return rentalRepo{q: r.q} }
func (r repos) Reviews() domain.Repository[domain.Review] { return reviewRepo{q: r.q} }
func (r repos) Images() domain.ImageRepository          { return imageRepo{q: r.q} }

// Repo reads straight from the pool; writes belong in a unit of work from Begin.
type Repo struct {
	repos
	db *sql.DB
}

func New(db *sql.DB) *Repo { return &Repo{repos: repos{q: db}, db: db} }

func (r *Repo) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{repos: repos{q: tx}, tx: tx}, nil
}

type unitOfWork struct {
	repos
	tx *sql.Tx
}

func (u *unitOfWork) Commit() error { return u.tx.Commit() }

func (u *unitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// ---- helpers ----

// mapErr turns driver errors callers can act on into domain errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062: // duplicate key
			return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
		case 1452: // parent row missing
			return fmt.Errorf("%w: referenced row does not exist", domain.ErrConflict)
		}
	}
	return err
}

func lastID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func exists(ctx context.Context, q querier, table string, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	return mapErr(err)
}

func deleteByID(ctx context.Context, q querier, table string, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func valInt64(p int64) any {
	if p == 0 {
		return nil
	}
	return p
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// inClause renders "IN (?,?,...)" with matching args.
func inClause(ids []int64) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return "IN (" + strings.Join(ph, ",") + ")", args
}

// ---- query builder ----

type queryBuilder struct {
	conditions []string
	args       []any
}

func (qb *queryBuilder) addCondition(cond string, arg any) {
	qb.conditions = append(qb.conditions, cond)
	qb.args = append(qb.args, arg)
}

func (qb *queryBuilder) build() (string, []any) {
	if len(qb.conditions) == 0 {
		return "", qb.args
	}
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}

var addressColumns = map[domain.AddressField]string{
	domain.FieldCity:          "a.city",
	domain.FieldStateProvince: "a.state_province",
	domain.FieldCountry:       "a.country",
}

// exactCollation keeps accents and trailing spaces significant; the table
// default (utf8mb4_0900_ai_ci) would let "zurich" match "Zürich".
const exactCollation = "utf8mb4_0900_as_cs"

// applyLocationFilter adds one equality per constrained field, comparing the
// lower-cased column with the already lower-cased criterion value.
func applyLocationFilter(qb *queryBuilder, f domain.LocationFilter) {
	for _, c := range f.Criteria() {
		qb.addCondition("LOWER("+addressColumns[c.Field]+") COLLATE "+exactCollation+" = ?", c.Value)
	}
}
