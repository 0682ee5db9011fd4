// Package charts builds presentation-ready projections from asset and
// transaction data.
package charts

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
	"github.com/portfolio-management-app/money-master/internal/modules/transactions"
)

// Interval selects the grouping granularity of the profit/loss series.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ParseInterval validates an interval from the API boundary.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalDay, IntervalMonth, IntervalYear:
		return Interval(s), nil
	case "":
		return IntervalMonth, nil
	}
	return "", fmt.Errorf("invalid interval: %s (must be day, month or year)", s)
}

// SankeyGraph is the node/link shape chart libraries consume.
type SankeyGraph struct {
	Nodes []domain.SankeyNode `json:"nodes"`
	Links []domain.SankeyLink `json:"links"`
}

// Service computes chart projections. All methods are stateless transforms
// over repository reads.
type Service struct {
	assetRepo *assets.Repository
	txRepo    *transactions.Repository
	fundRepo  *fund.Repository
	log       zerolog.Logger
}

// NewService creates a new charts service
func NewService(assetRepo *assets.Repository, txRepo *transactions.Repository,
	fundRepo *fund.Repository, log zerolog.Logger) *Service {
	return &Service{
		assetRepo: assetRepo,
		txRepo:    txRepo,
		fundRepo:  fundRepo,
		log:       log.With().Str("service", "charts").Logger(),
	}
}

// PieChart groups current asset values by type, with the invest fund as its
// own slice. A zero-total portfolio yields an empty series.
func (s *Service) PieChart(portfolioID string) ([]domain.PieChartItem, error) {
	all, err := s.assetRepo.ListAll(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	sums := make(map[domain.AssetType]decimal.Decimal)
	for _, a := range all {
		sums[a.Type] = sums[a.Type].Add(a.Amount)
	}

	f, err := s.fundRepo.Get(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to read invest fund: %w", err)
	}
	if f.Amount.IsPositive() {
		sums[domain.AssetTypeFund] = f.Amount
	}

	total := decimal.Zero
	for _, v := range sums {
		total = total.Add(v)
	}
	if !total.IsPositive() {
		return []domain.PieChartItem{}, nil
	}

	items := make([]domain.PieChartItem, 0, len(sums))
	hundred := decimal.NewFromInt(100)
	for assetType, sum := range sums {
		items = append(items, domain.PieChartItem{
			AssetType:  assetType,
			SumValue:   sum,
			Percentage: sum.Mul(hundred).Div(total).Round(2),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AssetType < items[j].AssetType
	})
	return items, nil
}

// nodeKey composes the deduplication key of a sankey endpoint.
func nodeKey(t domain.AssetType, name string) string {
	return string(t) + "@@" + name
}

// Sankey derives the money-flow graph from the transaction trail. An edge
// whose source or target cannot be resolved is dropped rather than rendered
// half-connected. Identical input always produces identical output.
func (s *Service) Sankey(portfolioID string) (SankeyGraph, error) {
	trail, err := s.txRepo.ListByPortfolio(portfolioID)
	if err != nil {
		return SankeyGraph{}, fmt.Errorf("failed to list transactions: %w", err)
	}

	type pair struct{ src, dst string }
	flows := make(map[pair]decimal.Decimal)
	var order []pair

	for _, tx := range trail {
		if tx.ReferentialAssetType == nil || tx.DestinationAssetType == nil {
			continue
		}
		p := pair{
			src: nodeKey(*tx.ReferentialAssetType, tx.ReferentialAssetName),
			dst: nodeKey(*tx.DestinationAssetType, tx.DestinationAssetName),
		}
		if _, seen := flows[p]; !seen {
			order = append(order, p)
		}
		flows[p] = flows[p].Add(tx.Amount)
	}

	graph := SankeyGraph{Nodes: []domain.SankeyNode{}, Links: []domain.SankeyLink{}}
	seen := make(map[string]bool)
	addNode := func(key string) {
		if !seen[key] {
			seen[key] = true
			graph.Nodes = append(graph.Nodes, domain.SankeyNode{Name: key})
		}
	}
	for _, p := range order {
		addNode(p.src)
		addNode(p.dst)
		graph.Links = append(graph.Links, domain.SankeyLink{
			Source: p.src,
			Target: p.dst,
			Value:  flows[p],
		})
	}
	return graph, nil
}

// ProfitLoss groups the transaction trail by period and emits ordered
// (period, net value) pairs. Inflows count positive, outflows negative;
// only periods that saw activity appear.
func (s *Service) ProfitLoss(portfolioID string, interval Interval) ([]domain.ProfitLossPoint, error) {
	trail, err := s.txRepo.ListByPortfolio(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var layout string
	switch interval {
	case IntervalDay:
		layout = "2006-01-02"
	case IntervalMonth:
		layout = "2006-01"
	case IntervalYear:
		layout = "2006"
	default:
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	buckets := make(map[string]decimal.Decimal)
	for _, tx := range trail {
		period := tx.CreatedAt.Format(layout)
		delta := tx.Amount
		if tx.TransactionType.IsOutflow() {
			delta = delta.Neg()
		}
		buckets[period] = buckets[period].Add(delta)
	}

	points := make([]domain.ProfitLossPoint, 0, len(buckets))
	for period, value := range buckets {
		points = append(points, domain.ProfitLossPoint{Period: period, Value: value})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Period < points[j].Period
	})
	return points, nil
}
