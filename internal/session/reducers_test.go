package session

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRemoveAsset_DropsOnlyMatchingID(t *testing.T) {
	prior := []domain.Asset{
		{ID: 1, Name: "BTC"},
		{ID: 2, Name: "ETH"},
		{ID: 3, Name: "SOL"},
	}

	next := removeAsset(prior, 2)

	require.Len(t, next, 2)
	assert.Equal(t, int64(1), next[0].ID)
	assert.Equal(t, int64(3), next[1].ID)
	assert.Len(t, prior, 3, "input slice must not be mutated")
}

func TestRemoveAsset_NoMatchReturnsEqualSlice(t *testing.T) {
	prior := []domain.Asset{{ID: 1}, {ID: 2}}
	next := removeAsset(prior, 99)
	assert.Equal(t, prior, next)
}

func TestUpsertAsset_ReplacesInPlaceOrAppends(t *testing.T) {
	prior := []domain.Asset{{ID: 1, Name: "old"}}

	replaced := upsertAsset(prior, domain.Asset{ID: 1, Name: "new"})
	require.Len(t, replaced, 1)
	assert.Equal(t, "new", replaced[0].Name)
	assert.Equal(t, "old", prior[0].Name)

	appended := upsertAsset(prior, domain.Asset{ID: 2, Name: "fresh"})
	assert.Len(t, appended, 2)
}

func TestCreditAsset_AdjustsOnlyMatchingItem(t *testing.T) {
	prior := []domain.Asset{
		{ID: 1, Amount: dec("100")},
		{ID: 2, Amount: dec("50")},
	}

	next := creditAsset(prior, 1, dec("-43"))

	assert.True(t, next[0].Amount.Equal(dec("57")))
	assert.True(t, next[1].Amount.Equal(dec("50")))
	assert.True(t, prior[0].Amount.Equal(dec("100")), "input slice must not be mutated")
}

func TestRecomputePie_PercentagesSumFromCollectionsAndFund(t *testing.T) {
	collections := map[domain.AssetType][]domain.Asset{
		domain.AssetTypeCash:  {{ID: 1, Amount: dec("300")}},
		domain.AssetTypeStock: {{ID: 2, Amount: dec("400")}, {ID: 3, Amount: dec("200")}},
	}
	fund := &domain.InvestFund{Amount: dec("100")}

	pie := recomputePie(collections, fund)

	require.Len(t, pie, 3)
	byType := make(map[domain.AssetType]domain.PieChartItem)
	for _, item := range pie {
		byType[item.AssetType] = item
	}
	assert.True(t, byType[domain.AssetTypeCash].Percentage.Equal(dec("30")))
	assert.True(t, byType[domain.AssetTypeStock].Percentage.Equal(dec("60")))
	assert.True(t, byType[domain.AssetTypeFund].Percentage.Equal(dec("10")))
}

func TestRecomputePie_ZeroTotalYieldsEmptySeries(t *testing.T) {
	collections := map[domain.AssetType][]domain.Asset{
		domain.AssetTypeCash: {{ID: 1, Amount: decimal.Zero}},
	}

	pie := recomputePie(collections, nil)

	assert.NotNil(t, pie)
	assert.Empty(t, pie)
}
