// Package portfolio owns portfolio records and their aggregate views.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// ErrNotFound is returned when a portfolio id does not resolve.
var ErrNotFound = fmt.Errorf("portfolio not found")

// Repository handles portfolio database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

func scanPortfolio(row interface{ Scan(...interface{}) error }) (domain.Portfolio, error) {
	var (
		p         domain.Portfolio
		cashStr   string
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &cashStr, &p.InitialCurrency, &createdAt); err != nil {
		return domain.Portfolio{}, err
	}

	var err error
	p.InitialCash, err = decimal.NewFromString(cashStr)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("invalid initial cash for portfolio %s: %w", p.ID, err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}

// GetAll returns all portfolios.
func (r *Repository) GetAll() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`SELECT id, name, initial_cash, initial_currency, created_at
		FROM portfolios ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var result []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return result, nil
}

// GetByID returns one portfolio, or ErrNotFound.
func (r *Repository) GetByID(id string) (domain.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(
		`SELECT id, name, initial_cash, initial_currency, created_at FROM portfolios WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return domain.Portfolio{}, ErrNotFound
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}
	return p, nil
}

// Insert persists a new portfolio.
func (r *Repository) Insert(p domain.Portfolio) error {
	_, err := r.db.Exec(`INSERT INTO portfolios (id, name, initial_cash, initial_currency, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.InitialCash.String(), p.InitialCurrency, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// Update renames a portfolio.
func (r *Repository) Update(id, name string) error {
	res, err := r.db.Exec(`UPDATE portfolios SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of portfolio %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a portfolio row. Assets and fund rows are owned by their
// own repositories; the service coordinates the cascade.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of portfolio %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
