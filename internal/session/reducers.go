package session

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// The reducers below are pure: they never mutate their inputs and always
// return a fresh slice, so a render holding the prior slice stays valid.

// removeAsset drops the item whose ID matches, leaving every other item in
// place. Returns the input unchanged (copied) when no item matches.
func removeAsset(items []domain.Asset, id int64) []domain.Asset {
	next := make([]domain.Asset, 0, len(items))
	for _, item := range items {
		if item.ID == id {
			continue
		}
		next = append(next, item)
	}
	return next
}

// upsertAsset replaces the item with the same ID, or appends when absent.
func upsertAsset(items []domain.Asset, asset domain.Asset) []domain.Asset {
	next := make([]domain.Asset, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ID == asset.ID {
			next[i] = asset
			return next
		}
	}
	return append(next, asset)
}

// creditAsset adds delta to the matching item's amount. Pass a negative
// delta to debit. Holdings on stock and crypto variants are untouched; the
// server is authoritative for units and the next re-fetch reconciles them.
func creditAsset(items []domain.Asset, id int64, delta decimal.Decimal) []domain.Asset {
	next := make([]domain.Asset, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ID == id {
			next[i].Amount = next[i].Amount.Add(delta)
		}
	}
	return next
}

// recomputePie rebuilds the allocation projection from the cached
// collections and fund, mirroring the server-side shape: one slice per
// asset type with a positive total, plus a fund slice, percentages of the
// grand total rounded to two places. An all-zero portfolio yields an empty
// slice rather than NaN percentages.
func recomputePie(collections map[domain.AssetType][]domain.Asset, fund *domain.InvestFund) []domain.PieChartItem {
	sums := make(map[domain.AssetType]decimal.Decimal)
	total := decimal.Zero

	for assetType, items := range collections {
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.Amount)
		}
		if sum.IsPositive() {
			sums[assetType] = sum
			total = total.Add(sum)
		}
	}
	if fund != nil && fund.Amount.IsPositive() {
		sums[domain.AssetTypeFund] = fund.Amount
		total = total.Add(fund.Amount)
	}

	if !total.IsPositive() {
		return []domain.PieChartItem{}
	}

	items := make([]domain.PieChartItem, 0, len(sums))
	for assetType, sum := range sums {
		items = append(items, domain.PieChartItem{
			AssetType:  assetType,
			SumValue:   sum,
			Percentage: sum.Mul(decimal.NewFromInt(100)).Div(total).Round(2),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AssetType < items[j].AssetType
	})
	return items
}
