package service

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

const (
	recentInvoicesLimit     = 5
	recentTransactionsLimit = 10
)

type StatsService interface {
	GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	// GetRecentActivity merges the newest invoices and transactions of the owner, newest first
	GetRecentActivity(ctx context.Context) (*dto.RecentActivityResponse, error)
}

type statsService struct {
	ServiceParams
}

func NewStatsService(params ServiceParams) StatsService {
	return &statsService{ServiceParams: params}
}

func (s *statsService) GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.GenerateKey(cache.PrefixOwnerStats, ownerID)
	if cached, ok := cache.GetJSON[dto.DashboardStatsResponse](ctx, s.Cache, key); ok {
		return cached, nil
	}

	stats, err := s.InvoiceRepo.GetOwnerStats(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	gasUsed, err := s.TransactionRepo.SumSponsoredGas(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	gasPrice, err := decimal.NewFromString(s.Config.Stats.GasPriceUSD)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Configured gas price is not a decimal number").
			Mark(ierr.ErrSystem)
	}

	resp := &dto.DashboardStatsResponse{
		TotalInvoices:   stats.TotalInvoices,
		PaidInvoices:    stats.PaidInvoices,
		OverdueCount:    stats.OverdueCount,
		TotalPaid:       stats.TotalPaid,
		TotalPending:    stats.TotalPending,
		SuccessRate:     successRate(stats),
		AvgPaymentHours: stats.AvgPaymentHours.Round(1),
		GasSavedUSD:     gasUsed.Mul(gasPrice).Round(2),
	}

	cache.SetJSON(ctx, s.Cache, key, resp, 0)
	return resp, nil
}

// successRate is paid over total invoices in percent, one decimal place
func successRate(stats *invoice.OwnerStats) decimal.Decimal {
	if stats.TotalInvoices == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(stats.PaidInvoices)).
		Div(decimal.NewFromInt(int64(stats.TotalInvoices))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}

func (s *statsService) GetRecentActivity(ctx context.Context) (*dto.RecentActivityResponse, error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	invoiceFilter := types.NewInvoiceFilter()
	invoiceFilter.Limit = lo.ToPtr(recentInvoicesLimit)
	invoiceFilter.OwnerID = ownerID
	invoices, err := s.InvoiceRepo.List(ctx, invoiceFilter)
	if err != nil {
		return nil, err
	}

	txnFilter := types.NewTransactionFilter()
	txnFilter.Limit = lo.ToPtr(recentTransactionsLimit)
	txnFilter.UserID = ownerID
	txns, err := s.TransactionRepo.List(ctx, txnFilter)
	if err != nil {
		return nil, err
	}

	explorer := s.Config.Chain.ExplorerURL
	items := make([]*dto.ActivityItem, 0, len(invoices)*2+len(txns))
	for _, inv := range invoices {
		items = append(items, invoiceActivity(inv))
		if inv.InvoiceStatus == types.InvoiceStatusPaid && inv.PaidAt != nil {
			paid := &dto.ActivityItem{
				Kind:       dto.ActivityInvoicePaid,
				InvoiceID:  inv.ID,
				Title:      inv.Title,
				Amount:     inv.Amount,
				Status:     string(inv.InvoiceStatus),
				TxHash:     lo.FromPtr(inv.PaymentTxHash),
				OccurredAt: *inv.PaidAt,
			}
			if paid.TxHash != "" && explorer != "" {
				paid.ExplorerURL = dto.ExplorerTxURL(explorer, paid.TxHash)
			}
			items = append(items, paid)
		}
	}
	for _, txn := range txns {
		items = append(items, transactionActivity(txn, explorer))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})
	if len(items) > recentTransactionsLimit {
		items = items[:recentTransactionsLimit]
	}

	return &dto.RecentActivityResponse{Items: items}, nil
}

func invoiceActivity(inv *invoice.Invoice) *dto.ActivityItem {
	return &dto.ActivityItem{
		Kind:       dto.ActivityInvoiceCreated,
		InvoiceID:  inv.ID,
		Title:      inv.Title,
		Amount:     inv.Amount,
		Status:     string(inv.InvoiceStatus),
		OccurredAt: inv.CreatedAt,
	}
}

func transactionActivity(txn *transaction.Transaction, explorer string) *dto.ActivityItem {
	item := &dto.ActivityItem{
		Kind:       dto.ActivityTransaction,
		InvoiceID:  lo.FromPtr(txn.InvoiceID),
		Title:      string(txn.TransactionType),
		Amount:     txn.Amount,
		Status:     string(txn.TransactionStatus),
		TxHash:     lo.CoalesceOrEmpty(txn.Metadata.ChainTxHash, txn.TxHash),
		OccurredAt: txn.CreatedAt,
	}
	if explorer != "" {
		item.ExplorerURL = dto.ExplorerTxURL(explorer, item.TxHash)
	}
	return item
}
