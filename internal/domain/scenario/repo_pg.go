package scenario

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exermed/exermed/internal/sim"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(_ context.Context) queryable { return r.pool }

const templateCols = `id, name, description, config, builtin, created_at, updated_at`

func (r *repoPG) scanTemplate(row pgx.Row) (*Template, error) {
	var (
		t   Template
		cfg []byte
	)
	err := row.Scan(&t.ID, &t.Name, &t.Description, &cfg, &t.Builtin, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &t.Config); err != nil {
		return nil, fmt.Errorf("scenario: decode config for %s: %w", t.ID, err)
	}
	return &t, nil
}

func encodeConfig(cfg sim.ScenarioConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario: encode config: %w", err)
	}
	return data, nil
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	cfg, err := encodeConfig(t.Config)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO scenario_template (id, name, description, config, builtin)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.Description, cfg, t.Builtin)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM scenario_template WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Template, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM scenario_template WHERE name = $1`, name))
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	cfg, err := encodeConfig(t.Config)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE scenario_template SET name=$2, description=$3, config=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, cfg)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM scenario_template WHERE id = $1 AND builtin = FALSE`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM scenario_template`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM scenario_template ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
