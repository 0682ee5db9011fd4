package transactions

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Conservation laws for the movement matrix: whatever a transaction
// credits anywhere never exceeds what it debits from the source, and the
// difference is exactly the fees.
func TestMovementFor_ConservationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Amounts are generated as cents to stay on exact decimals.
	amountGen := gen.Int64Range(1, 100_000_000)
	feesGen := gen.Int64Range(0, 1_000_000)

	internalTransfers := []domain.TransactionType{
		domain.TransactionTypeWithdrawToCash,
		domain.TransactionTypeBuyFromFund,
		domain.TransactionTypeBuyFromCash,
	}

	properties.Property("transfers paying fees from the source debit amount plus fees and credit amount", prop.ForAll(
		func(amountCents, feesCents int64, typeIdx int) bool {
			txType := internalTransfers[typeIdx%len(internalTransfers)]
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, fundCredit := movementFor(txType, sourceAsset, amount, fees)
			return srcDebit.Equal(amount.Add(fees)) &&
				dstCredit.Equal(amount) &&
				fundCredit.IsZero()
		},
		amountGen, feesGen, gen.IntRange(0, 2),
	))

	properties.Property("selling debits the sale amount and credits it minus fees", prop.ForAll(
		func(amountCents, feesCents int64) bool {
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, fundCredit := movementFor(domain.TransactionTypeSellAsset, sourceAsset, amount, fees)
			return srcDebit.Equal(amount) &&
				dstCredit.Equal(amount.Sub(fees)) &&
				fundCredit.IsZero()
		},
		amountGen, feesGen,
	))

	properties.Property("fund transfers credit the fund with amount minus fees", prop.ForAll(
		func(amountCents, feesCents int64) bool {
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, fundCredit := movementFor(domain.TransactionTypeMoveToFund, sourceAsset, amount, fees)
			return srcDebit.Equal(amount) &&
				dstCredit.IsZero() &&
				fundCredit.Equal(amount.Sub(fees))
		},
		amountGen, feesGen,
	))

	properties.Property("withdrawals debit amount plus fees and credit nothing", prop.ForAll(
		func(amountCents, feesCents int64, toOutside bool) bool {
			txType := domain.TransactionTypeWithdrawValue
			if toOutside {
				txType = domain.TransactionTypeWithdrawToOutside
			}
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, fundCredit := movementFor(txType, sourceAsset, amount, fees)
			return srcDebit.Equal(amount.Add(fees)) &&
				dstCredit.IsZero() && fundCredit.IsZero()
		},
		amountGen, feesGen, gen.Bool(),
	))

	properties.Property("outside money debits nothing without an internal source", prop.ForAll(
		func(amountCents, feesCents int64) bool {
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, _ := movementFor(domain.TransactionTypeBuyFromOutside, sourceNone, amount, fees)
			return srcDebit.IsZero() && dstCredit.Equal(amount)
		},
		amountGen, feesGen,
	))

	properties.Property("no transaction type creates money", prop.ForAll(
		func(amountCents, feesCents int64, typeIdx int) bool {
			allTypes := []domain.TransactionType{
				domain.TransactionTypeNewAsset,
				domain.TransactionTypeAddValue,
				domain.TransactionTypeWithdrawValue,
				domain.TransactionTypeWithdrawToCash,
				domain.TransactionTypeWithdrawToOutside,
				domain.TransactionTypeBuyFromOutside,
				domain.TransactionTypeBuyFromFund,
				domain.TransactionTypeBuyFromCash,
				domain.TransactionTypeSellAsset,
				domain.TransactionTypeMoveToFund,
			}
			txType := allTypes[typeIdx%len(allTypes)]
			amount := decimal.New(amountCents, -2)
			fees := decimal.New(feesCents, -2)

			srcDebit, dstCredit, fundCredit := movementFor(txType, sourceAsset, amount, fees)
			return dstCredit.Add(fundCredit).LessThanOrEqual(srcDebit)
		},
		amountGen, feesGen, gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
