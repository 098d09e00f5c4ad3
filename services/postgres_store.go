package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"menu-admin/db"
	"menu-admin/models"
)

const pgForeignKeyViolation = "23503"

// PostgresStore is the MenuStore backed by the categories and menu_items
// tables. Row atomicity comes from single statements and transactions.
type PostgresStore struct {
	db db.DBTX
}

func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{db: conn}
}

const itemColumns = `
	mi.id, mi.name, mi.description, mi.price::text, mi.image_url,
	mi.is_available, mi.category_id, c.name, mi.created_at, mi.updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `SELECT 1`)
	return err
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, created_at FROM categories
		ORDER BY name, id`,
	)
	if err != nil {
		return nil, transient("list categories", err)
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, transient("list categories", err)
		}
		cats = append(cats, c)
	}
	return cats, transient("list categories", rows.Err())
}

func (s *PostgresStore) EnsureCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		name,
	).Scan(&id)
	return id, transient("ensure category", err)
}

func (s *PostgresStore) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+itemColumns+`
		FROM menu_items mi
		JOIN categories c ON c.id = mi.category_id
		ORDER BY c.name, mi.name, mi.id`,
	)
	if err != nil {
		return nil, transient("list menu items", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, transient("list menu items", err)
		}
		items = append(items, *item)
	}
	return items, transient("list menu items", rows.Err())
}

func (s *PostgresStore) GetItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	item, err := scanItem(s.db.QueryRow(ctx, `
		SELECT`+itemColumns+`
		FROM menu_items mi
		JOIN categories c ON c.id = mi.category_id
		WHERE mi.id = $1`,
		id,
	))
	return item, transient("get menu item", classify(err))
}

func (s *PostgresStore) InsertItem(ctx context.Context, rec models.MenuItemRecord) (*models.MenuItem, error) {
	item, err := scanItem(s.db.QueryRow(ctx, `
		WITH mi AS (
			INSERT INTO menu_items (name, description, price, image_url, is_available, category_id, updated_at)
			VALUES ($1, $2, $3::text::numeric, $4, $5, $6, now())
			RETURNING *
		)
		SELECT`+itemColumns+`
		FROM mi JOIN categories c ON c.id = mi.category_id`,
		rec.Name, rec.Description, rec.Price.StringFixed(2), rec.ImageURL, rec.IsAvailable, rec.CategoryID,
	))
	return item, transient("insert menu item", classify(err))
}

func (s *PostgresStore) ReplaceItem(ctx context.Context, id int64, rec models.MenuItemRecord) (*models.MenuItem, error) {
	item, err := replaceItem(ctx, s.db, id, rec)
	return item, transient("update menu item", err)
}

func (s *PostgresStore) SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error) {
	var out *models.MenuItem
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		cur, err := scanItem(tx.QueryRow(ctx, `
			SELECT`+itemColumns+`
			FROM menu_items mi
			JOIN categories c ON c.id = mi.category_id
			WHERE mi.id = $1
			FOR UPDATE OF mi`,
			id,
		))
		if err != nil {
			return classify(err)
		}
		rec := recordOf(cur)
		rec.IsAvailable = available
		out, err = replaceItem(ctx, tx, id, rec)
		return err
	})
	return out, transient("set availability", err)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// replaceItem overwrites every column of the row in one statement.
func replaceItem(ctx context.Context, q queryRower, id int64, rec models.MenuItemRecord) (*models.MenuItem, error) {
	item, err := scanItem(q.QueryRow(ctx, `
		WITH mi AS (
			UPDATE menu_items SET
				name = $2,
				description = $3,
				price = $4::text::numeric,
				image_url = $5,
				is_available = $6,
				category_id = $7,
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT`+itemColumns+`
		FROM mi JOIN categories c ON c.id = mi.category_id`,
		id, rec.Name, rec.Description, rec.Price.StringFixed(2), rec.ImageURL, rec.IsAvailable, rec.CategoryID,
	))
	return item, classify(err)
}

func scanItem(row pgx.Row) (*models.MenuItem, error) {
	var (
		m     models.MenuItem
		price string
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &price, &m.ImageURL,
		&m.IsAvailable, &m.CategoryID, &m.CategoryName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("scan price %q: %w", price, err)
	}
	return &m, nil
}

// classify maps driver errors onto the service taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrConstraint
	}
	return err
}
