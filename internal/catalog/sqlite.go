package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepository keeps the catalog in a SQLite database. Products are
// returned in id order, which is also insertion order.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every connection to ":memory:" opens its own database
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations() error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts products when the table has no rows yet.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, products []domain.Product) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range products {
		if _, err := r.AddProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, price, image_url
		FROM products
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// AddProduct inserts product. A zero id lets SQLite assign the next one.
func (r *SQLiteRepository) AddProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := Validate(product); err != nil {
		return domain.Product{}, err
	}

	var (
		res sql.Result
		err error
	)
	if product.ID == 0 {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO products (name, price, image_url) VALUES ($1, $2, $3)`,
			product.Name, product.Price, product.ImageURL)
	} else {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO products (id, name, price, image_url) VALUES ($1, $2, $3, $4)`,
			product.ID, product.Name, product.Price, product.ImageURL)
	}
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Product{}, fmt.Errorf("%w: id %d", ErrDuplicateProduct, product.ID)
		}
		return domain.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}

	if product.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return domain.Product{}, fmt.Errorf("failed to read product id: %w", err)
		}
		product.ID = id
	}
	return product, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
