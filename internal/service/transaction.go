package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/metrics"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// ConfirmParams carries what the chain reported about a confirmed operation
type ConfirmParams struct {
	BlockNumber *int64
	GasUsed     *int64
	GasPrice    *decimal.Decimal
	// ContractInvoiceID is set when confirming an invoice registration
	ContractInvoiceID *int64
	// ChainTxHash is the bundle transaction hash when it differs from the tracked hash
	ChainTxHash string
}

// TransactionService tracks submitted operations until they are confirmed or failed
type TransactionService interface {
	RecordTransaction(ctx context.Context, req *dto.RecordTransactionRequest) (*dto.TransactionResponse, error)
	// ConfirmTransaction settles the tracked transaction matching hash.
	// A confirmed payment marks its invoice paid and a confirmed registration stores the contract invoice id.
	ConfirmTransaction(ctx context.Context, hash string, params ConfirmParams) (*transaction.Transaction, error)
	FailTransaction(ctx context.Context, hash string, reason string) (*transaction.Transaction, error)
	FindByCorrelation(ctx context.Context, hash string) (*transaction.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, filter *types.TransactionFilter) (*dto.ListTransactionsResponse, error)
}

type transactionService struct {
	ServiceParams
	invoices InvoiceService
}

func NewTransactionService(params ServiceParams, invoices InvoiceService) TransactionService {
	return &transactionService{
		ServiceParams: params,
		invoices:      invoices,
	}
}

func (s *transactionService) RecordTransaction(ctx context.Context, req *dto.RecordTransactionRequest) (*dto.TransactionResponse, error) {
	var txn *transaction.Transaction
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		txn, err = s.recordTransaction(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewTransactionResponse(txn, s.Config.Chain.ExplorerURL), nil
}

func (s *transactionService) FindByCorrelation(ctx context.Context, hash string) (*transaction.Transaction, error) {
	if hash == "" {
		return nil, ierr.NewError("transaction hash is required").
			WithHint("Provide a transaction or operation hash").
			Mark(ierr.ErrValidation)
	}
	return s.TransactionRepo.FindByCorrelation(ctx, hash)
}

func (s *transactionService) ConfirmTransaction(ctx context.Context, hash string, params ConfirmParams) (*transaction.Transaction, error) {
	txn, err := s.FindByCorrelation(ctx, hash)
	if err != nil {
		return nil, err
	}

	if txn.TransactionStatus.IsTerminal() {
		if missingContractInvoiceID(txn) {
			return s.completeRegistration(ctx, txn, params)
		}
		s.Logger.Debugw("transaction already settled",
			"transaction_id", txn.ID,
			"transaction_status", txn.TransactionStatus,
		)
		return txn, nil
	}

	metadata := txn.Metadata
	if params.ChainTxHash != "" {
		metadata.ChainTxHash = params.ChainTxHash
	}
	if params.ContractInvoiceID != nil {
		metadata.ContractInvoiceID = params.ContractInvoiceID
	}

	settled, changed, err := s.settle(ctx, txn, &transaction.Settlement{
		Status:      types.TransactionStatusConfirmed,
		BlockNumber: params.BlockNumber,
		GasUsed:     params.GasUsed,
		GasPrice:    params.GasPrice,
		SettledAt:   time.Now().UTC(),
		Metadata:    metadata,
	})
	if ierr.IsAlreadyExists(err) {
		// the invoice already has a confirmed payment, this one is left pending for manual review
		s.Logger.Errorw("second confirmed payment for invoice rejected",
			"transaction_id", txn.ID,
			"invoice_id", lo.FromPtr(txn.InvoiceID),
			"tx_hash", txn.TxHash,
			"chain_tx_hash", metadata.ChainTxHash,
		)
		s.Sentry.CaptureException(err)
		return txn, nil
	}
	if err != nil {
		return nil, err
	}

	if changed {
		s.onConfirmed(ctx, settled)
	}
	return settled, nil
}

// onConfirmed applies the invoice side effects of a confirmation this call made
func (s *transactionService) onConfirmed(ctx context.Context, txn *transaction.Transaction) {
	if txn.InvoiceID == nil {
		return
	}
	invoiceID := *txn.InvoiceID

	switch txn.TransactionType {
	case types.TransactionTypeInvoicePaid:
		hash := lo.CoalesceOrEmpty(txn.Metadata.ChainTxHash, txn.TxHash)
		if err := s.invoices.MarkPaid(ctx, invoiceID, hash); err != nil {
			// the transaction stays confirmed, a chain sync repairs the invoice
			s.Logger.Errorw("failed to mark invoice paid after confirmation",
				"invoice_id", invoiceID,
				"transaction_id", txn.ID,
				"error", err,
			)
			s.Sentry.CaptureException(err)
		}
	case types.TransactionTypeInvoiceCreated:
		if txn.Metadata.ContractInvoiceID == nil {
			id := s.resolveContractInvoiceID(ctx, txn.ID, lo.CoalesceOrEmpty(txn.Metadata.ChainTxHash, txn.TxHash))
			if id == nil {
				return
			}
			metadata := txn.Metadata
			metadata.ContractInvoiceID = id
			if err := s.TransactionRepo.UpdateMetadata(ctx, txn.ID, metadata); err != nil {
				s.Logger.Errorw("failed to store resolved contract invoice id on transaction",
					"transaction_id", txn.ID,
					"error", err,
				)
			}
			txn.Metadata = metadata
		}
		s.storeContractInvoiceID(ctx, txn)
	}
}

// missingContractInvoiceID reports a confirmed registration whose contract id is still unknown
func missingContractInvoiceID(txn *transaction.Transaction) bool {
	return txn.TransactionType == types.TransactionTypeInvoiceCreated &&
		txn.TransactionStatus == types.TransactionStatusConfirmed &&
		txn.Metadata.ContractInvoiceID == nil
}

// completeRegistration fills in the contract id of an already confirmed registration,
// from params when the caller knows it or from the registration receipt otherwise
func (s *transactionService) completeRegistration(ctx context.Context, txn *transaction.Transaction, params ConfirmParams) (*transaction.Transaction, error) {
	metadata := txn.Metadata
	if metadata.ChainTxHash == "" && params.ChainTxHash != "" {
		metadata.ChainTxHash = params.ChainTxHash
	}

	metadata.ContractInvoiceID = params.ContractInvoiceID
	if metadata.ContractInvoiceID == nil {
		metadata.ContractInvoiceID = s.resolveContractInvoiceID(ctx, txn.ID, lo.CoalesceOrEmpty(metadata.ChainTxHash, txn.TxHash))
		if metadata.ContractInvoiceID == nil {
			return txn, nil
		}
	}

	if err := s.TransactionRepo.UpdateMetadata(ctx, txn.ID, metadata); err != nil {
		return nil, err
	}
	txn.Metadata = metadata

	s.Logger.Infow("contract invoice id filled in after confirmation",
		"transaction_id", txn.ID,
		"contract_invoice_id", *metadata.ContractInvoiceID,
	)
	s.storeContractInvoiceID(ctx, txn)
	return txn, nil
}

// resolveContractInvoiceID reads the registration event from the chain, nil when it cannot be found yet
func (s *transactionService) resolveContractInvoiceID(ctx context.Context, transactionID, hash string) *int64 {
	id, err := s.Chain.GetRegisteredInvoiceID(ctx, hash)
	if err != nil {
		s.Logger.Warnw("registration confirmed without contract invoice id",
			"transaction_id", transactionID,
			"chain_tx_hash", hash,
			"error", err,
		)
		return nil
	}
	return &id
}

func (s *transactionService) storeContractInvoiceID(ctx context.Context, txn *transaction.Transaction) {
	if txn.InvoiceID == nil || txn.Metadata.ContractInvoiceID == nil {
		return
	}
	if err := s.invoices.SetContractInvoiceID(ctx, *txn.InvoiceID, *txn.Metadata.ContractInvoiceID); err != nil {
		s.Logger.Errorw("failed to store contract invoice id",
			"invoice_id", *txn.InvoiceID,
			"transaction_id", txn.ID,
			"error", err,
		)
		s.Sentry.CaptureException(err)
	}
}

func (s *transactionService) FailTransaction(ctx context.Context, hash string, reason string) (*transaction.Transaction, error) {
	txn, err := s.FindByCorrelation(ctx, hash)
	if err != nil {
		return nil, err
	}

	if txn.TransactionStatus.IsTerminal() {
		return txn, nil
	}

	metadata := txn.Metadata
	metadata.FailureReason = reason

	settled, _, err := s.settle(ctx, txn, &transaction.Settlement{
		Status:    types.TransactionStatusFailed,
		SettledAt: time.Now().UTC(),
		Metadata:  metadata,
	})
	return settled, err
}

// settle applies the settlement with a compare and swap on pending.
// When another writer won it returns the stored transaction and false.
func (s *transactionService) settle(ctx context.Context, txn *transaction.Transaction, settlement *transaction.Settlement) (*transaction.Transaction, bool, error) {
	changed, err := s.TransactionRepo.Settle(ctx, txn.ID, settlement)
	if err != nil {
		return nil, false, err
	}

	if !changed {
		current, err := s.TransactionRepo.Get(ctx, txn.ID)
		return current, false, err
	}

	txn.TransactionStatus = settlement.Status
	txn.BlockNumber = settlement.BlockNumber
	txn.GasUsed = settlement.GasUsed
	txn.GasPrice = settlement.GasPrice
	txn.Metadata = settlement.Metadata
	if settlement.Status == types.TransactionStatusConfirmed {
		txn.ConfirmedAt = lo.ToPtr(settlement.SettledAt)
	}

	for _, hash := range lo.Uniq(lo.Compact([]string{txn.TxHash, txn.Metadata.UserOpHash, txn.Metadata.SubmittedHash})) {
		s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOpStatus, hash))
	}
	metrics.RecordTransactionSettlement(string(txn.TransactionType), string(settlement.Status))
	s.Logger.Infow("transaction settled",
		"transaction_id", txn.ID,
		"tx_hash", txn.TxHash,
		"transaction_type", txn.TransactionType,
		"transaction_status", settlement.Status,
		"failure_reason", settlement.Metadata.FailureReason,
	)
	return txn, true, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if lo.FromPtr(txn.UserID) != userID {
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction %s was not found", id).
			WithReportableDetails(map[string]any{
				"transaction_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}

	return dto.NewTransactionResponse(txn, s.Config.Chain.ExplorerURL), nil
}

func (s *transactionService) ListTransactions(ctx context.Context, filter *types.TransactionFilter) (*dto.ListTransactionsResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		filter = types.NewTransactionFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	filter.UserID = userID

	if err := filter.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation)
	}

	txns, err := s.TransactionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.TransactionRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListTransactionsResponse{
		Items: lo.Map(txns, func(t *transaction.Transaction, _ int) *dto.TransactionResponse {
			return dto.NewTransactionResponse(t, s.Config.Chain.ExplorerURL)
		}),
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}
