package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// SankeyGraph mirrors the node/link shape the sankey endpoint returns.
type SankeyGraph struct {
	Nodes []domain.SankeyNode `json:"nodes"`
	Links []domain.SankeyLink `json:"links"`
}

// TransferRequest is the payload of the fund-transfer endpoint.
type TransferRequest struct {
	ReferentialAssetID   int64           `json:"referentialAssetId"`
	ReferentialAssetType domain.AssetType `json:"referentialAssetType"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	IsTransferringAll    bool            `json:"isTransferringAll"`
}

// PortfolioStore holds the client-side view of one portfolio: the six
// asset collections, the invest fund, and the chart projections. Mutations
// go to the server first; local state only changes after the server
// confirms, so a failed request leaves the view exactly as it was.
//
// A collection whose fetch failed is marked unavailable rather than
// presented as empty. All reads and writes go through the store mutex, so
// a mutation is fully applied before the next read observes anything.
type PortfolioStore struct {
	client   *Client
	notifier domain.Notifier
	loading  domain.LoadingIndicator
	log      zerolog.Logger

	mu          sync.RWMutex
	portfolioID string
	collections map[domain.AssetType][]domain.Asset
	unavailable map[domain.AssetType]bool
	fund        *domain.InvestFund
	fundStale   bool
	pie         []domain.PieChartItem
	sankey      SankeyGraph
}

// NewPortfolioStore builds a store over the given API client. notifier and
// loading must be non-nil; use no-op implementations when the embedding
// application has no UI for them.
func NewPortfolioStore(client *Client, notifier domain.Notifier, loading domain.LoadingIndicator, log zerolog.Logger) *PortfolioStore {
	return &PortfolioStore{
		client:      client,
		notifier:    notifier,
		loading:     loading,
		log:         log.With().Str("component", "portfolio_store").Logger(),
		collections: make(map[domain.AssetType][]domain.Asset),
		unavailable: make(map[domain.AssetType]bool),
	}
}

// Load fetches every collection, the fund, and both chart projections for
// the portfolio concurrently. A failed fetch marks only that piece
// unavailable; the rest of the view still populates. Any number of
// failures produces exactly one aggregated error notification.
func (s *PortfolioStore) Load(ctx context.Context, portfolioID string) {
	s.loading.StartLoading()
	defer s.loading.StopLoading()

	type fetchResult struct {
		name  string
		apply func()
		err   error
	}

	fetches := make([]func() fetchResult, 0, len(domain.StorableAssetTypes)+3)
	for _, assetType := range domain.StorableAssetTypes {
		assetType := assetType
		fetches = append(fetches, func() fetchResult {
			var items []domain.Asset
			err := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/%s", portfolioID, assetType), &items)
			return fetchResult{
				name: string(assetType),
				err:  err,
				apply: func() {
					if err != nil {
						s.unavailable[assetType] = true
						return
					}
					delete(s.unavailable, assetType)
					s.collections[assetType] = items
				},
			}
		})
	}
	fetches = append(fetches, func() fetchResult {
		var fund domain.InvestFund
		err := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/fund", portfolioID), &fund)
		return fetchResult{
			name: "fund",
			err:  err,
			apply: func() {
				if err != nil {
					s.fundStale = true
					return
				}
				s.fundStale = false
				s.fund = &fund
			},
		}
	})
	fetches = append(fetches, func() fetchResult {
		var pie []domain.PieChartItem
		err := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/pieChart", portfolioID), &pie)
		return fetchResult{
			name: "pieChart",
			err:  err,
			apply: func() {
				if err == nil {
					s.pie = pie
				}
			},
		}
	})
	fetches = append(fetches, func() fetchResult {
		var graph SankeyGraph
		err := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/sankey", portfolioID), &graph)
		return fetchResult{
			name: "sankey",
			err:  err,
			apply: func() {
				if err == nil {
					s.sankey = graph
				}
			},
		}
	})

	results := make([]fetchResult, len(fetches))
	var wg sync.WaitGroup
	for i, fetch := range fetches {
		wg.Add(1)
		go func(i int, fetch func() fetchResult) {
			defer wg.Done()
			results[i] = fetch()
		}(i, fetch)
	}
	wg.Wait()

	var failed []string
	s.mu.Lock()
	s.portfolioID = portfolioID
	for _, result := range results {
		result.apply()
		if result.err != nil {
			failed = append(failed, result.name)
			s.log.Error().Err(result.err).Str("collection", result.name).Msg("Failed to load collection")
		}
	}
	s.mu.Unlock()

	if len(failed) > 0 {
		s.notifier.RaiseError(fmt.Sprintf("failed to load: %s", strings.Join(failed, ", ")))
	}
}

// ApplyTransaction submits a transaction and, on success, patches the
// cached collections with the same movement the server applied, then
// recomputes the pie projection. On failure local state is untouched and
// the returned error carries the server's field messages for the form.
func (s *PortfolioStore) ApplyTransaction(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	s.loading.StartLoading()
	defer s.loading.StopLoading()

	s.mu.RLock()
	portfolioID := s.portfolioID
	s.mu.RUnlock()

	var tx domain.Transaction
	if err := s.client.Post(ctx, fmt.Sprintf("/api/portfolio/%s/transactions", portfolioID), req, &tx); err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	s.applyMovementLocked(tx)
	s.pie = recomputePie(s.collections, s.fund)
	s.mu.Unlock()

	s.notifier.RaiseNotification("transaction recorded", domain.NotificationSuccess)
	return tx, nil
}

// UpdateAsset edits one asset on the server and, on success, replaces the
// cached item with the server's version and recomputes the pie projection.
// On failure the cached state is untouched.
func (s *PortfolioStore) UpdateAsset(ctx context.Context, assetType domain.AssetType, id int64, patch interface{}) (domain.Asset, error) {
	s.loading.StartLoading()
	defer s.loading.StopLoading()

	s.mu.RLock()
	portfolioID := s.portfolioID
	s.mu.RUnlock()

	var updated domain.Asset
	if err := s.client.Put(ctx, fmt.Sprintf("/api/portfolio/%s/%s/%d", portfolioID, assetType, id), patch, &updated); err != nil {
		s.notifier.RaiseError("failed to update asset")
		return domain.Asset{}, err
	}

	s.mu.Lock()
	s.collections[assetType] = upsertAsset(s.collections[assetType], updated)
	s.pie = recomputePie(s.collections, s.fund)
	s.mu.Unlock()

	s.notifier.RaiseNotification("asset updated", domain.NotificationSuccess)
	return updated, nil
}

// DeleteAsset deletes one asset on the server and, on success, removes
// exactly that item from its collection and recomputes the pie projection.
// On failure the store raises a generic notification and leaves the cached
// state untouched.
func (s *PortfolioStore) DeleteAsset(ctx context.Context, assetType domain.AssetType, id int64) error {
	s.loading.StartLoading()
	defer s.loading.StopLoading()

	s.mu.RLock()
	portfolioID := s.portfolioID
	s.mu.RUnlock()

	if err := s.client.Delete(ctx, fmt.Sprintf("/api/portfolio/%s/%s/%d", portfolioID, assetType, id)); err != nil {
		s.notifier.RaiseError("failed to delete asset")
		return err
	}

	s.mu.Lock()
	s.collections[assetType] = removeAsset(s.collections[assetType], id)
	s.pie = recomputePie(s.collections, s.fund)
	s.mu.Unlock()

	s.notifier.RaiseNotification("asset deleted", domain.NotificationSuccess)
	return nil
}

// TransferToFund moves value from an asset into the invest fund. On
// success the source collection and the fund are re-fetched rather than
// patched, so the view matches the server's post-transfer state exactly.
func (s *PortfolioStore) TransferToFund(ctx context.Context, req TransferRequest) error {
	s.loading.StartLoading()
	defer s.loading.StopLoading()

	s.mu.RLock()
	portfolioID := s.portfolioID
	s.mu.RUnlock()

	if err := s.client.Post(ctx, fmt.Sprintf("/api/portfolio/%s/fund", portfolioID), req, nil); err != nil {
		s.notifier.RaiseError("failed to transfer to fund")
		return err
	}

	var items []domain.Asset
	var fund domain.InvestFund
	itemsErr := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/%s", portfolioID, req.ReferentialAssetType), &items)
	fundErr := s.client.Get(ctx, fmt.Sprintf("/api/portfolio/%s/fund", portfolioID), &fund)

	s.mu.Lock()
	if itemsErr == nil {
		s.collections[req.ReferentialAssetType] = items
		delete(s.unavailable, req.ReferentialAssetType)
	}
	if fundErr == nil {
		s.fund = &fund
		s.fundStale = false
	}
	s.pie = recomputePie(s.collections, s.fund)
	s.mu.Unlock()

	if itemsErr != nil || fundErr != nil {
		s.notifier.RaiseError("transfer recorded but refresh failed")
		if itemsErr != nil {
			return itemsErr
		}
		return fundErr
	}
	s.notifier.RaiseNotification("transferred to fund", domain.NotificationSuccess)
	return nil
}

// applyMovementLocked patches the cached collections with the movement a
// confirmed transaction represents. Must be called with mu held.
func (s *PortfolioStore) applyMovementLocked(tx domain.Transaction) {
	fees := tx.Fee.Add(tx.Tax)
	fundIsSource := tx.IsUsingFundAsSource ||
		(tx.ReferentialAssetType != nil && *tx.ReferentialAssetType == domain.AssetTypeFund)

	var srcDebit, dstCredit, fundCredit decimal.Decimal
	switch tx.TransactionType {
	case domain.TransactionTypeWithdrawValue, domain.TransactionTypeWithdrawToOutside:
		srcDebit = tx.Amount.Add(fees)
	case domain.TransactionTypeWithdrawToCash:
		srcDebit = tx.Amount.Add(fees)
		dstCredit = tx.Amount
	case domain.TransactionTypeSellAsset:
		srcDebit = tx.Amount
		dstCredit = tx.Amount.Sub(fees)
	case domain.TransactionTypeMoveToFund:
		srcDebit = tx.Amount
		fundCredit = tx.Amount.Sub(fees)
	case domain.TransactionTypeBuyFromFund, domain.TransactionTypeBuyFromCash:
		srcDebit = tx.Amount.Add(fees)
		dstCredit = tx.Amount
	case domain.TransactionTypeNewAsset, domain.TransactionTypeAddValue,
		domain.TransactionTypeBuyFromOutside:
		if fundIsSource || tx.ReferentialAssetID != nil {
			srcDebit = tx.Amount.Add(fees)
		}
		dstCredit = tx.Amount
	}

	if !srcDebit.IsZero() {
		if fundIsSource {
			s.adjustFundLocked(srcDebit.Neg())
		} else if tx.ReferentialAssetType != nil && tx.ReferentialAssetID != nil {
			t := *tx.ReferentialAssetType
			s.collections[t] = creditAsset(s.collections[t], *tx.ReferentialAssetID, srcDebit.Neg())
		}
	}
	if !fundCredit.IsZero() {
		s.adjustFundLocked(fundCredit)
	}
	if !dstCredit.IsZero() && tx.DestinationAssetType != nil {
		if *tx.DestinationAssetType == domain.AssetTypeFund {
			s.adjustFundLocked(dstCredit)
		} else if tx.DestinationAssetID != nil {
			t := *tx.DestinationAssetType
			s.collections[t] = creditAsset(s.collections[t], *tx.DestinationAssetID, dstCredit)
		}
	}
}

func (s *PortfolioStore) adjustFundLocked(delta decimal.Decimal) {
	if s.fund == nil {
		return
	}
	patched := *s.fund
	patched.Amount = patched.Amount.Add(delta)
	s.fund = &patched
}

// Collection returns the cached items for one asset type and whether the
// collection is available. The returned slice must not be mutated.
func (s *PortfolioStore) Collection(assetType domain.AssetType) ([]domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable[assetType] {
		return nil, false
	}
	return s.collections[assetType], true
}

// Fund returns the cached invest fund, or nil when it has not loaded.
func (s *PortfolioStore) Fund() *domain.InvestFund {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fund == nil {
		return nil
	}
	fund := *s.fund
	return &fund
}

// PieChart returns the cached allocation projection.
func (s *PortfolioStore) PieChart() []domain.PieChartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pie
}

// Sankey returns the cached flow graph.
func (s *PortfolioStore) Sankey() SankeyGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sankey
}

// CashAsset resolves a cash asset from the cached cash collection.
func (s *PortfolioStore) CashAsset(id int64) (domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.collections[domain.AssetTypeCash] {
		if item.ID == id && !item.IsDeleted {
			return item, true
		}
	}
	return domain.Asset{}, false
}

// AssetBalance returns the cached amount of one asset, or false when the
// asset is not in the cached view.
func (s *PortfolioStore) AssetBalance(assetType domain.AssetType, id int64) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if assetType == domain.AssetTypeFund {
		if s.fund == nil {
			return decimal.Zero, false
		}
		return s.fund.Amount, true
	}
	for _, item := range s.collections[assetType] {
		if item.ID == id {
			return item.Amount, true
		}
	}
	return decimal.Zero, false
}
