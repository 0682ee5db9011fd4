package domain

import "fmt"

// AssetType discriminates the asset variants a portfolio can hold.
// AssetTypeFund is a pseudo-type: it is only valid as a transaction
// source/destination reference, never as a stored asset.
type AssetType string

const (
	AssetTypeCash       AssetType = "cash"
	AssetTypeStock      AssetType = "stock"
	AssetTypeCrypto     AssetType = "cryptoCurrency"
	AssetTypeBankSaving AssetType = "bankSaving"
	AssetTypeRealEstate AssetType = "realEstate"
	AssetTypeCustom     AssetType = "custom"
	AssetTypeFund       AssetType = "fund"
)

// StorableAssetTypes lists the variants that exist as rows in the assets
// table, in the order collections are fetched.
var StorableAssetTypes = []AssetType{
	AssetTypeCash,
	AssetTypeStock,
	AssetTypeCrypto,
	AssetTypeBankSaving,
	AssetTypeRealEstate,
	AssetTypeCustom,
}

// ParseAssetType validates an asset type from the API boundary.
// Pass allowFund=true for transaction references, where the fund
// pseudo-type is legal.
func ParseAssetType(s string, allowFund bool) (AssetType, error) {
	t := AssetType(s)
	switch t {
	case AssetTypeCash, AssetTypeStock, AssetTypeCrypto,
		AssetTypeBankSaving, AssetTypeRealEstate, AssetTypeCustom:
		return t, nil
	case AssetTypeFund:
		if allowFund {
			return t, nil
		}
		return "", fmt.Errorf("asset type %q is only valid as a transaction reference", s)
	}
	return "", fmt.Errorf("unknown asset type: %q", s)
}

// IsStorable reports whether the type exists as a concrete asset row.
func (t AssetType) IsStorable() bool {
	for _, s := range StorableAssetTypes {
		if t == s {
			return true
		}
	}
	return false
}

// TransactionType is the taxonomy of money movements.
type TransactionType string

const (
	TransactionTypeNewAsset          TransactionType = "newAsset"
	TransactionTypeAddValue          TransactionType = "addValue"
	TransactionTypeWithdrawValue     TransactionType = "withdrawValue"
	TransactionTypeWithdrawToCash    TransactionType = "withdrawToCash"
	TransactionTypeWithdrawToOutside TransactionType = "withdrawToOutside"
	TransactionTypeBuyFromOutside    TransactionType = "buyFromOutside"
	TransactionTypeBuyFromFund       TransactionType = "buyFromFund"
	TransactionTypeBuyFromCash       TransactionType = "buyFromCash"
	TransactionTypeSellAsset         TransactionType = "sellAsset"
	TransactionTypeMoveToFund        TransactionType = "moveToFund"
)

// ParseTransactionType validates a transaction type from the API boundary.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	switch t {
	case TransactionTypeNewAsset, TransactionTypeAddValue,
		TransactionTypeWithdrawValue, TransactionTypeWithdrawToCash,
		TransactionTypeWithdrawToOutside, TransactionTypeBuyFromOutside,
		TransactionTypeBuyFromFund, TransactionTypeBuyFromCash,
		TransactionTypeSellAsset, TransactionTypeMoveToFund:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type: %q", s)
}

// IsOutflow reports whether the transaction moves value out of its
// referential (source) asset.
func (t TransactionType) IsOutflow() bool {
	switch t {
	case TransactionTypeWithdrawValue, TransactionTypeWithdrawToCash,
		TransactionTypeWithdrawToOutside, TransactionTypeSellAsset,
		TransactionTypeMoveToFund:
		return true
	}
	return false
}
