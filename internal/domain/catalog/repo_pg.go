package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternacare/maternacare/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, name, category, unit_price, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, item *ChargeItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO charge_item (id, name, category, unit_price, active)
		VALUES ($1,$2,$3,$4,$5)`,
		item.ID, item.Name, item.Category, item.UnitPrice, item.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChargeItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM charge_item WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, item *ChargeItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE charge_item SET
			name=$2, category=$3, unit_price=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Name, item.Category, item.UnitPrice, item.Active,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]*ChargeItem, int, error) {
	where := `WHERE ($1 = '' OR category = $1) AND (NOT $2 OR active)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM charge_item `+where, category, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM charge_item `+where+` ORDER BY category, name LIMIT $3 OFFSET $4`,
		category, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ChargeItem
	for rows.Next() {
		var it ChargeItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.UnitPrice, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &it)
	}
	return items, total, nil
}

func scanItem(row pgx.Row) (*ChargeItem, error) {
	var it ChargeItem
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.UnitPrice, &it.Active, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
