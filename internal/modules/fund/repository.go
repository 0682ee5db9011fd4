// Package fund owns the per-portfolio invest fund: a pooled balance
// transactions may draw from or deposit into.
package fund

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// ErrNotFound is returned when a portfolio has no fund row.
var ErrNotFound = fmt.Errorf("invest fund not found")

// Repository handles invest fund database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new invest fund repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "fund").Logger(),
	}
}

type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Init creates the fund row for a new portfolio at zero balance.
func (r *Repository) Init(portfolioID, currencyCode string) error {
	return r.initWith(r.db, portfolioID, currencyCode)
}

// InitTx is Init inside an existing transaction.
func (r *Repository) InitTx(tx *sql.Tx, portfolioID, currencyCode string) error {
	return r.initWith(tx, portfolioID, currencyCode)
}

func (r *Repository) initWith(q querier, portfolioID, currencyCode string) error {
	_, err := q.Exec(`INSERT OR IGNORE INTO invest_funds (portfolio_id, amount, currency_code, last_changed)
		VALUES (?, '0', ?, ?)`,
		portfolioID, currencyCode, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to init invest fund for %s: %w", portfolioID, err)
	}
	return nil
}

// Get returns the fund for a portfolio.
func (r *Repository) Get(portfolioID string) (domain.InvestFund, error) {
	return r.getWith(r.db, portfolioID)
}

// GetTx is Get inside an existing transaction.
func (r *Repository) GetTx(tx *sql.Tx, portfolioID string) (domain.InvestFund, error) {
	return r.getWith(tx, portfolioID)
}

func (r *Repository) getWith(q querier, portfolioID string) (domain.InvestFund, error) {
	var (
		f           domain.InvestFund
		amountStr   string
		lastChanged int64
	)

	err := q.QueryRow(`SELECT portfolio_id, amount, currency_code, last_changed
		FROM invest_funds WHERE portfolio_id = ?`, portfolioID).
		Scan(&f.PortfolioID, &amountStr, &f.CurrencyCode, &lastChanged)
	if err == sql.ErrNoRows {
		return domain.InvestFund{}, ErrNotFound
	}
	if err != nil {
		return domain.InvestFund{}, fmt.Errorf("failed to get invest fund for %s: %w", portfolioID, err)
	}

	f.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return domain.InvestFund{}, fmt.Errorf("invalid fund amount for %s: %w", portfolioID, err)
	}
	f.LastChanged = time.Unix(lastChanged, 0).UTC()
	return f, nil
}

// SetBalanceTx writes a new fund balance inside an existing transaction.
// The balance may never go negative; callers check before writing, and the
// guard here is the last line of defense.
func (r *Repository) SetBalanceTx(tx *sql.Tx, portfolioID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("invest fund for %s would go negative", portfolioID)
	}

	res, err := tx.Exec(`UPDATE invest_funds SET amount = ?, last_changed = ? WHERE portfolio_id = ?`,
		amount.String(), time.Now().UTC().Unix(), portfolioID)
	if err != nil {
		return fmt.Errorf("failed to update invest fund for %s: %w", portfolioID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check fund update for %s: %w", portfolioID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
