// Package transactions owns the money-movement taxonomy: validation,
// authoritative application against asset and fund balances, and the
// immutable ledger trail.
package transactions

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Repository appends to and reads from the ledger database. Ledger rows
// are never updated or deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

const txColumns = `id, portfolio_id, transaction_type, amount, destination_amount,
	currency_code, referential_asset_type, referential_asset_id, referential_asset_name,
	destination_asset_type, destination_asset_id, destination_asset_name,
	fee, tax, is_transferring_all, is_using_fund_as_source, created_at`

// Append writes one transaction and returns it with its assigned id.
func (r *Repository) Append(t domain.Transaction) (domain.Transaction, error) {
	var refType, dstType interface{}
	if t.ReferentialAssetType != nil {
		refType = string(*t.ReferentialAssetType)
	}
	if t.DestinationAssetType != nil {
		dstType = string(*t.DestinationAssetType)
	}

	res, err := r.db.Exec(`INSERT INTO transactions
		(portfolio_id, transaction_type, amount, destination_amount, currency_code,
		 referential_asset_type, referential_asset_id, referential_asset_name,
		 destination_asset_type, destination_asset_id, destination_asset_name,
		 fee, tax, is_transferring_all, is_using_fund_as_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PortfolioID, string(t.TransactionType), t.Amount.String(),
		t.AmountInDestinationAssetUnit.String(), t.CurrencyCode,
		refType, t.ReferentialAssetID, t.ReferentialAssetName,
		dstType, t.DestinationAssetID, t.DestinationAssetName,
		t.Fee.String(), t.Tax.String(),
		boolToInt(t.IsTransferringAll), boolToInt(t.IsUsingFundAsSource),
		t.CreatedAt.Unix())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to get transaction id: %w", err)
	}
	t.ID = id
	return t, nil
}

// ListByPortfolio returns a portfolio's full history, oldest first.
func (r *Repository) ListByPortfolio(portfolioID string) ([]domain.Transaction, error) {
	rows, err := r.db.Query(`SELECT `+txColumns+` FROM transactions
		WHERE portfolio_id = ? ORDER BY created_at, id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByAsset returns one page of the transactions touching an asset,
// newest first. Type "in" selects rows where the asset is the destination,
// "out" where it is the source.
func (r *Repository) ListByAsset(req ListRequest) ([]domain.Transaction, error) {
	req.normalize()

	var where []string
	var args []interface{}

	where = append(where, "portfolio_id = ?")
	args = append(args, req.PortfolioID)

	switch req.Type {
	case "in":
		where = append(where, "destination_asset_type = ? AND destination_asset_id = ?")
		args = append(args, req.AssetType, req.AssetID)
	case "out":
		where = append(where, "referential_asset_type = ? AND referential_asset_id = ?")
		args = append(args, req.AssetType, req.AssetID)
	default:
		where = append(where, `((referential_asset_type = ? AND referential_asset_id = ?)
			OR (destination_asset_type = ? AND destination_asset_id = ?))`)
		args = append(args, req.AssetType, req.AssetID, req.AssetType, req.AssetID)
	}

	if req.StartDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, req.StartDate.Unix())
	}
	if req.EndDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, req.EndDate.Unix())
	}

	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, req.PageSize, (req.PageNumber-1)*req.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var result []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return result, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		t                  domain.Transaction
		txType             string
		amountStr, dstStr  string
		feeStr, taxStr     string
		refType, dstType   sql.NullString
		refID, dstID       sql.NullInt64
		transferAll, usesF int
		createdAt          int64
	)

	err := rows.Scan(&t.ID, &t.PortfolioID, &txType, &amountStr, &dstStr,
		&t.CurrencyCode, &refType, &refID, &t.ReferentialAssetName,
		&dstType, &dstID, &t.DestinationAssetName,
		&feeStr, &taxStr, &transferAll, &usesF, &createdAt)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.TransactionType = domain.TransactionType(txType)
	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount in transaction %d: %w", t.ID, err)
	}
	if t.AmountInDestinationAssetUnit, err = decimal.NewFromString(dstStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid destination amount in transaction %d: %w", t.ID, err)
	}
	if t.Fee, err = decimal.NewFromString(feeStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid fee in transaction %d: %w", t.ID, err)
	}
	if t.Tax, err = decimal.NewFromString(taxStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid tax in transaction %d: %w", t.ID, err)
	}

	if refType.Valid {
		at := domain.AssetType(refType.String)
		t.ReferentialAssetType = &at
	}
	if refID.Valid {
		id := refID.Int64
		t.ReferentialAssetID = &id
	}
	if dstType.Valid {
		at := domain.AssetType(dstType.String)
		t.DestinationAssetType = &at
	}
	if dstID.Valid {
		id := dstID.Int64
		t.DestinationAssetID = &id
	}
	t.IsTransferringAll = transferAll != 0
	t.IsUsingFundAsSource = usesF != 0
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
