package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryTransactionStore implements transaction.Repository
type InMemoryTransactionStore struct {
	*InMemoryStore[*transaction.Transaction]
	settleMu sync.Mutex
}

var _ transaction.Repository = (*InMemoryTransactionStore)(nil)

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{
		InMemoryStore: NewInMemoryStore(copyTransaction),
	}
}

func copyTransaction(txn *transaction.Transaction) *transaction.Transaction {
	if txn == nil {
		return nil
	}
	c := *txn
	c.BlockNumber = copyPtr(txn.BlockNumber)
	c.GasUsed = copyPtr(txn.GasUsed)
	c.GasPrice = copyPtr(txn.GasPrice)
	c.InvoiceID = copyPtr(txn.InvoiceID)
	c.UserID = copyPtr(txn.UserID)
	c.ConfirmedAt = copyPtr(txn.ConfirmedAt)
	c.Metadata.ContractInvoiceID = copyPtr(txn.Metadata.ContractInvoiceID)
	return &c
}

func normalizeTransactionFilter(filter *types.TransactionFilter) *types.TransactionFilter {
	if filter == nil {
		return types.NewNoLimitTransactionFilter()
	}
	if filter.QueryFilter == nil {
		f := *filter
		f.QueryFilter = types.NewNoLimitQueryFilter()
		return &f
	}
	return filter
}

func transactionFilterFn(ctx context.Context, txn *transaction.Transaction, filter interface{}) bool {
	f, ok := filter.(*types.TransactionFilter)
	if !ok || f == nil {
		return txn.Status == types.StatusPublished
	}
	if txn.Status != types.StatusPublished {
		return false
	}
	if f.UserID != "" && lo.FromPtr(txn.UserID) != f.UserID {
		return false
	}
	if f.InvoiceID != "" && lo.FromPtr(txn.InvoiceID) != f.InvoiceID {
		return false
	}
	if len(f.TransactionType) > 0 && !lo.Contains(f.TransactionType, txn.TransactionType) {
		return false
	}
	if len(f.TransactionStatus) > 0 && !lo.Contains(f.TransactionStatus, txn.TransactionStatus) {
		return false
	}
	if f.Sponsored != nil && txn.IsSponsored != *f.Sponsored {
		return false
	}
	return true
}

func transactionSortFn(order string) SortFunc[*transaction.Transaction] {
	return func(a, b *transaction.Transaction) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if order == types.OrderAsc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
}

func (s *InMemoryTransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	if txn == nil {
		return ierr.NewError("transaction cannot be nil").Mark(ierr.ErrValidation)
	}
	if _, err := s.GetByHash(ctx, txn.TxHash); err == nil {
		return ierr.NewError("transaction hash already tracked").
			WithHint("A transaction with this hash already exists").
			WithReportableDetails(map[string]any{"tx_hash": txn.TxHash}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, txn.ID, txn)
}

func (s *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTransactionStore) GetByHash(ctx context.Context, txHash string) (*transaction.Transaction, error) {
	return s.Find(ctx, txHash, func(txn *transaction.Transaction) bool {
		return txn.TxHash == txHash
	})
}

func (s *InMemoryTransactionStore) FindByCorrelation(ctx context.Context, opHash string) (*transaction.Transaction, error) {
	return s.Find(ctx, opHash, func(txn *transaction.Transaction) bool {
		return txn.TxHash == opHash ||
			(txn.Metadata.UserOpHash != "" && txn.Metadata.UserOpHash == opHash) ||
			(txn.Metadata.SubmittedHash != "" && txn.Metadata.SubmittedHash == opHash)
	})
}

func (s *InMemoryTransactionStore) List(ctx context.Context, filter *types.TransactionFilter) ([]*transaction.Transaction, error) {
	filter = normalizeTransactionFilter(filter)
	return s.InMemoryStore.List(ctx, filter, transactionFilterFn, transactionSortFn(filter.GetOrder()))
}

func (s *InMemoryTransactionStore) Count(ctx context.Context, filter *types.TransactionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, normalizeTransactionFilter(filter), transactionFilterFn)
}

func (s *InMemoryTransactionStore) Settle(ctx context.Context, id string, st *transaction.Settlement) (bool, error) {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	// at most one confirmed payment per invoice
	if st.Status == types.TransactionStatusConfirmed {
		txn, err := s.Get(ctx, id)
		if err != nil {
			return false, nil
		}
		if txn.TransactionType == types.TransactionTypeInvoicePaid && txn.InvoiceID != nil {
			_, err := s.Find(ctx, *txn.InvoiceID, func(other *transaction.Transaction) bool {
				return other.ID != id &&
					other.TransactionType == types.TransactionTypeInvoicePaid &&
					other.TransactionStatus == types.TransactionStatusConfirmed &&
					lo.FromPtr(other.InvoiceID) == *txn.InvoiceID
			})
			if err == nil {
				return false, ierr.NewError("invoice already has a confirmed payment").
					WithHint("The invoice already has a confirmed payment").
					WithReportableDetails(map[string]any{
						"transaction_id": id,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	return s.Mutate(ctx, id, func(cur *transaction.Transaction) bool {
		if cur.TransactionStatus != types.TransactionStatusPending {
			return false
		}
		cur.TransactionStatus = st.Status
		if st.BlockNumber != nil {
			cur.BlockNumber = copyPtr(st.BlockNumber)
		}
		if st.GasUsed != nil {
			cur.GasUsed = copyPtr(st.GasUsed)
		}
		if st.GasPrice != nil {
			cur.GasPrice = copyPtr(st.GasPrice)
		}
		if st.Status == types.TransactionStatusConfirmed {
			cur.ConfirmedAt = lo.ToPtr(st.SettledAt)
		}
		cur.Metadata = st.Metadata
		cur.UpdatedAt = time.Now().UTC()
		cur.UpdatedBy = types.GetUserID(ctx)
		return true
	})
}

func (s *InMemoryTransactionStore) UpdateMetadata(ctx context.Context, id string, metadata types.TransactionMetadata) error {
	changed, err := s.Mutate(ctx, id, func(cur *transaction.Transaction) bool {
		cur.Metadata = metadata
		cur.UpdatedAt = time.Now().UTC()
		return true
	})
	if err != nil {
		return err
	}
	if !changed {
		return notFound(id)
	}
	return nil
}

func (s *InMemoryTransactionStore) SumSponsoredGas(ctx context.Context, userID string) (decimal.Decimal, error) {
	txns, err := s.List(ctx, &types.TransactionFilter{
		UserID:    userID,
		Sponsored: lo.ToPtr(true),
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, txn := range txns {
		if txn.GasUsed != nil {
			total = total.Add(decimal.NewFromInt(*txn.GasUsed))
		}
	}
	return total, nil
}
