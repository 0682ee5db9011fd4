// Package assets owns the asset collections of a portfolio: storage,
// validation and the balance mutations transactions apply to them.
package assets

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// ErrNotFound is returned when an asset id does not resolve to a live row.
var ErrNotFound = fmt.Errorf("asset not found")

// Repository handles asset database operations. All asset variants share
// one table; variant fields are stored as a JSON document.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new asset repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "assets").Logger(),
	}
}

const assetColumns = `id, portfolio_id, asset_type, name, input_day, description,
	currency_code, amount, data, is_deleted, last_changed`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (domain.Asset, error) {
	var (
		a           domain.Asset
		assetType   string
		amountStr   string
		dataJSON    string
		isDeleted   int
		lastChanged int64
	)

	err := row.Scan(&a.ID, &a.PortfolioID, &assetType, &a.Name, &a.InputDay,
		&a.Description, &a.CurrencyCode, &amountStr, &dataJSON, &isDeleted, &lastChanged)
	if err != nil {
		return domain.Asset{}, err
	}

	a.Type = domain.AssetType(assetType)
	a.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("invalid amount for asset %d: %w", a.ID, err)
	}
	a.IsDeleted = isDeleted != 0
	a.LastChanged = time.Unix(lastChanged, 0).UTC()

	if err := unmarshalVariant(&a, dataJSON); err != nil {
		return domain.Asset{}, fmt.Errorf("invalid variant data for asset %d: %w", a.ID, err)
	}

	return a, nil
}

func unmarshalVariant(a *domain.Asset, dataJSON string) error {
	switch a.Type {
	case domain.AssetTypeStock:
		a.Stock = &domain.StockDetails{}
		return json.Unmarshal([]byte(dataJSON), a.Stock)
	case domain.AssetTypeCrypto:
		a.Crypto = &domain.CryptoDetails{}
		return json.Unmarshal([]byte(dataJSON), a.Crypto)
	case domain.AssetTypeBankSaving:
		a.BankSaving = &domain.BankSavingDetails{}
		return json.Unmarshal([]byte(dataJSON), a.BankSaving)
	case domain.AssetTypeRealEstate:
		a.RealEstate = &domain.RealEstateDetails{}
		return json.Unmarshal([]byte(dataJSON), a.RealEstate)
	case domain.AssetTypeCustom:
		a.Custom = &domain.CustomDetails{}
		return json.Unmarshal([]byte(dataJSON), a.Custom)
	}
	return nil
}

func marshalVariant(a domain.Asset) (string, error) {
	var v interface{}
	switch a.Type {
	case domain.AssetTypeStock:
		v = a.Stock
	case domain.AssetTypeCrypto:
		v = a.Crypto
	case domain.AssetTypeBankSaving:
		v = a.BankSaving
	case domain.AssetTypeRealEstate:
		v = a.RealEstate
	case domain.AssetTypeCustom:
		v = a.Custom
	}
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal variant data: %w", err)
	}
	return string(data), nil
}

// ListByType returns the non-deleted assets of one type in a portfolio.
func (r *Repository) ListByType(portfolioID string, assetType domain.AssetType) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE portfolio_id = ? AND asset_type = ? AND is_deleted = 0
		ORDER BY id`

	rows, err := r.db.Query(query, portfolioID, string(assetType))
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return result, nil
}

// ListAll returns every non-deleted asset in a portfolio across all types.
func (r *Repository) ListAll(portfolioID string) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE portfolio_id = ? AND is_deleted = 0
		ORDER BY asset_type, id`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return result, nil
}

// GetByID returns one non-deleted asset, or ErrNotFound.
func (r *Repository) GetByID(portfolioID string, assetType domain.AssetType, id int64) (domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE id = ? AND portfolio_id = ? AND asset_type = ? AND is_deleted = 0`

	a, err := scanAsset(r.db.QueryRow(query, id, portfolioID, string(assetType)))
	if err == sql.ErrNoRows {
		return domain.Asset{}, ErrNotFound
	}
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get asset %d: %w", id, err)
	}
	return a, nil
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *Repository) GetByIDTx(tx *sql.Tx, portfolioID string, assetType domain.AssetType, id int64) (domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE id = ? AND portfolio_id = ? AND asset_type = ? AND is_deleted = 0`

	a, err := scanAsset(tx.QueryRow(query, id, portfolioID, string(assetType)))
	if err == sql.ErrNoRows {
		return domain.Asset{}, ErrNotFound
	}
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get asset %d: %w", id, err)
	}
	return a, nil
}

// Insert persists a new asset and returns it with its assigned id.
func (r *Repository) Insert(a domain.Asset) (domain.Asset, error) {
	return r.insert(r.db, a)
}

// InsertTx is Insert inside an existing transaction.
func (r *Repository) InsertTx(tx *sql.Tx, a domain.Asset) (domain.Asset, error) {
	return r.insert(tx, a)
}

type execQuerier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) insert(q execQuerier, a domain.Asset) (domain.Asset, error) {
	dataJSON, err := marshalVariant(a)
	if err != nil {
		return domain.Asset{}, err
	}

	now := time.Now().UTC()
	res, err := q.Exec(`INSERT INTO assets
		(portfolio_id, asset_type, name, input_day, description, currency_code, amount, data, is_deleted, last_changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		a.PortfolioID, string(a.Type), a.Name, a.InputDay, a.Description,
		a.CurrencyCode, a.Amount.String(), dataJSON, now.Unix())
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get inserted asset id: %w", err)
	}

	a.ID = id
	a.LastChanged = now
	return a, nil
}

// Update persists the editable fields and variant document of an asset.
func (r *Repository) Update(a domain.Asset) error {
	dataJSON, err := marshalVariant(a)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`UPDATE assets
		SET name = ?, input_day = ?, description = ?, amount = ?, data = ?, last_changed = ?
		WHERE id = ? AND portfolio_id = ? AND is_deleted = 0`,
		a.Name, a.InputDay, a.Description, a.Amount.String(), dataJSON,
		time.Now().UTC().Unix(), a.ID, a.PortfolioID)
	if err != nil {
		return fmt.Errorf("failed to update asset %d: %w", a.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of asset %d: %w", a.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBalanceTx writes a new balance (and variant document, which carries
// holdings for stock and crypto) inside an existing transaction. Balances
// may never go negative; callers check before writing, and the guard here
// is the last line of defense.
func (r *Repository) SetBalanceTx(tx *sql.Tx, a domain.Asset) error {
	if a.Amount.IsNegative() {
		return fmt.Errorf("asset %d balance would go negative", a.ID)
	}

	dataJSON, err := marshalVariant(a)
	if err != nil {
		return err
	}

	res, err := tx.Exec(`UPDATE assets
		SET amount = ?, data = ?, last_changed = ?
		WHERE id = ? AND portfolio_id = ? AND is_deleted = 0`,
		a.Amount.String(), dataJSON, time.Now().UTC().Unix(), a.ID, a.PortfolioID)
	if err != nil {
		return fmt.Errorf("failed to set balance of asset %d: %w", a.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update of asset %d: %w", a.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags an asset as deleted. History referencing it stays valid;
// it simply stops appearing in collections and projections.
func (r *Repository) SoftDelete(portfolioID string, assetType domain.AssetType, id int64) error {
	res, err := r.db.Exec(`UPDATE assets SET is_deleted = 1, last_changed = ?
		WHERE id = ? AND portfolio_id = ? AND asset_type = ? AND is_deleted = 0`,
		time.Now().UTC().Unix(), id, portfolioID, string(assetType))
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of asset %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
