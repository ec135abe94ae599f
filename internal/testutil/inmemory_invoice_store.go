package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/invoice"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	seqMu sync.Mutex
	seq   map[int]int64
}

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore(copyInvoice),
		seq:           make(map[int]int64),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.ContractInvoiceID = copyPtr(inv.ContractInvoiceID)
	c.TxHash = copyPtr(inv.TxHash)
	c.PaymentTxHash = copyPtr(inv.PaymentTxHash)
	c.SentAt = copyPtr(inv.SentAt)
	c.PaidAt = copyPtr(inv.PaidAt)
	c.Items = lo.Map(inv.Items, func(li *invoice.LineItem, _ int) *invoice.LineItem {
		item := *li
		return &item
	})
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return inv.Status == types.StatusPublished
	}
	if string(inv.Status) != f.GetStatus() {
		return false
	}
	if f.OwnerID != "" && inv.OwnerID != f.OwnerID {
		return false
	}
	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}
	if f.Client != "" {
		needle := strings.ToLower(f.Client)
		if !strings.Contains(strings.ToLower(inv.ClientEmail), needle) &&
			!strings.Contains(strings.ToLower(inv.ClientWallet), needle) &&
			!strings.Contains(strings.ToLower(inv.ClientName), needle) {
			return false
		}
	}
	if f.DueBefore != nil && !inv.DueDate.Before(*f.DueBefore) {
		return false
	}
	return true
}

func invoiceSortFn(order string) SortFunc[*invoice.Invoice] {
	return func(a, b *invoice.Invoice) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if order == types.OrderAsc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}
	if _, err := s.GetByPaymentLinkID(ctx, inv.PaymentLinkID); err == nil {
		return ierr.NewError("payment link id already exists").
			WithHint("Payment link id must be unique").
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != types.StatusPublished {
		return nil, notFound(id)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetByPaymentLinkID(ctx context.Context, linkID string) (*invoice.Invoice, error) {
	return s.Find(ctx, linkID, func(inv *invoice.Invoice) bool {
		return inv.PaymentLinkID == linkID && inv.Status == types.StatusPublished
	})
}

// normalizeInvoiceFilter fills in the query filter so pagination helpers never see a nil embed
func normalizeInvoiceFilter(filter *types.InvoiceFilter) *types.InvoiceFilter {
	if filter == nil {
		return types.NewNoLimitInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		f := *filter
		f.QueryFilter = types.NewNoLimitQueryFilter()
		return &f
	}
	return filter
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	filter = normalizeInvoiceFilter(filter)
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn(filter.GetOrder()))
	if err != nil {
		return nil, err
	}
	// list pages come without items, like the database query
	for _, inv := range items {
		inv.Items = nil
	}
	return items, nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, normalizeInvoiceFilter(filter), invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	changed, _ := s.Mutate(ctx, inv.ID, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || !cur.InvoiceStatus.IsEditable() {
			return false
		}
		cur.Title = inv.Title
		cur.Description = inv.Description
		cur.DueDate = inv.DueDate
		cur.Metadata = inv.Metadata
		cur.UpdatedAt = time.Now().UTC()
		cur.UpdatedBy = types.GetUserID(ctx)
		return true
	})
	if !changed {
		return notFound(inv.ID)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	changed, _ := s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || cur.InvoiceStatus == types.InvoiceStatusPaid {
			return false
		}
		cur.Status = types.StatusDeleted
		cur.UpdatedAt = time.Now().UTC()
		return true
	})
	if !changed {
		return notFound(id)
	}
	return nil
}

func (s *InMemoryInvoiceStore) UpdateStatus(ctx context.Context, id string, from []types.InvoiceStatus, to types.InvoiceStatus) (bool, error) {
	return s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || !lo.Contains(from, cur.InvoiceStatus) {
			return false
		}
		now := time.Now().UTC()
		cur.InvoiceStatus = to
		if to == types.InvoiceStatusSent && cur.SentAt == nil {
			cur.SentAt = &now
		}
		cur.UpdatedAt = now
		return true
	})
}

func (s *InMemoryInvoiceStore) MarkPaid(ctx context.Context, id string, paymentTxHash string, paidAt time.Time, from []types.InvoiceStatus) (bool, error) {
	return s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || !lo.Contains(from, cur.InvoiceStatus) {
			return false
		}
		cur.InvoiceStatus = types.InvoiceStatusPaid
		cur.PaidAt = lo.ToPtr(paidAt)
		cur.PaymentTxHash = lo.ToPtr(paymentTxHash)
		cur.UpdatedAt = time.Now().UTC()
		return true
	})
}

func (s *InMemoryInvoiceStore) MarkOnChain(ctx context.Context, id string, txHash string) (bool, error) {
	return s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || cur.IsOnChain || !cur.InvoiceStatus.IsEditable() {
			return false
		}
		now := time.Now().UTC()
		cur.IsOnChain = true
		cur.GasSponsored = true
		cur.TxHash = lo.ToPtr(txHash)
		if cur.InvoiceStatus == types.InvoiceStatusDraft {
			cur.InvoiceStatus = types.InvoiceStatusSent
		}
		if cur.SentAt == nil {
			cur.SentAt = &now
		}
		cur.UpdatedAt = now
		return true
	})
}

func (s *InMemoryInvoiceStore) MarkPaymentSubmitted(ctx context.Context, id string, gasSponsored bool) (bool, error) {
	return s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || !cur.InvoiceStatus.IsPayable() {
			return false
		}
		cur.InvoiceStatus = types.InvoiceStatusPending
		cur.GasSponsored = cur.GasSponsored || gasSponsored
		cur.UpdatedAt = time.Now().UTC()
		return true
	})
}

func (s *InMemoryInvoiceStore) SetContractInvoiceID(ctx context.Context, id string, contractInvoiceID int64) error {
	_, err := s.Mutate(ctx, id, func(cur *invoice.Invoice) bool {
		if cur.ContractInvoiceID != nil {
			return false
		}
		cur.ContractInvoiceID = lo.ToPtr(contractInvoiceID)
		return true
	})
	return err
}

func (s *InMemoryInvoiceStore) MarkOverdue(ctx context.Context, now time.Time) ([]string, error) {
	return s.MutateAll(ctx, func(cur *invoice.Invoice) bool {
		if cur.Status != types.StatusPublished || !cur.InvoiceStatus.IsPayable() || !cur.DueDate.Before(now) {
			return false
		}
		cur.InvoiceStatus = types.InvoiceStatusOverdue
		cur.UpdatedAt = time.Now().UTC()
		return true
	}), nil
}

func (s *InMemoryInvoiceStore) GetNextInvoiceNumber(ctx context.Context, year int) (string, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[year]++
	return invoice.FormatInvoiceNumber(year, s.seq[year]), nil
}

func (s *InMemoryInvoiceStore) GetOwnerStats(ctx context.Context, ownerID string) (*invoice.OwnerStats, error) {
	all, err := s.InMemoryStore.List(ctx, normalizeInvoiceFilter(&types.InvoiceFilter{OwnerID: ownerID}), invoiceFilterFn, nil)
	if err != nil {
		return nil, err
	}

	stats := &invoice.OwnerStats{
		TotalPaid:       decimal.Zero,
		TotalPending:    decimal.Zero,
		AvgPaymentHours: decimal.Zero,
	}
	hours := decimal.Zero
	for _, inv := range all {
		stats.TotalInvoices++
		switch inv.InvoiceStatus {
		case types.InvoiceStatusPaid:
			stats.PaidInvoices++
			stats.TotalPaid = stats.TotalPaid.Add(inv.Amount)
			if inv.PaidAt != nil {
				hours = hours.Add(decimal.NewFromFloat(inv.PaidAt.Sub(inv.CreatedAt).Hours()))
			}
		case types.InvoiceStatusOverdue:
			stats.OverdueCount++
		case types.InvoiceStatusSent, types.InvoiceStatusPending:
			stats.TotalPending = stats.TotalPending.Add(inv.Amount)
		}
	}
	if stats.PaidInvoices > 0 {
		stats.AvgPaymentHours = hours.Div(decimal.NewFromInt(int64(stats.PaidInvoices))).Round(1)
	}
	return stats, nil
}
