package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/domain/transaction"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/metrics"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/security"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

const (
	StatusSourceCache    = "cache"
	StatusSourceDatabase = "database"
	StatusSourceRelay    = "relay"
)

// ReconciliationService converges local state with the relay and the chain.
// Webhooks are the push path, PollStatus is the pull path and both settle through TransactionService.
type ReconciliationService interface {
	// HandleWebhook verifies, stores and dispatches one inbound event.
	// Dispatch failures are kept on the stored event for replay and are not returned.
	HandleWebhook(ctx context.Context, eventType types.WebhookEventType, body []byte, signature string) (*dto.WebhookResponse, error)
	// ReplayWebhooks dispatches stored events that were never processed, oldest first
	ReplayWebhooks(ctx context.Context) (*dto.ReplayResponse, error)
	PollStatus(ctx context.Context, opHash string) (*dto.PaymentStatusResponse, error)
	SweepOverdue(ctx context.Context, now time.Time) ([]string, error)
}

type reconciliationService struct {
	ServiceParams
	invoices     InvoiceService
	transactions TransactionService
	verifier     *security.SignatureVerifier
}

func NewReconciliationService(params ServiceParams, invoices InvoiceService, transactions TransactionService) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
		invoices:      invoices,
		transactions:  transactions,
		verifier:      security.NewSignatureVerifier(params.Config),
	}
}

func (s *reconciliationService) HandleWebhook(ctx context.Context, eventType types.WebhookEventType, body []byte, signature string) (*dto.WebhookResponse, error) {
	if err := s.verifier.Verify(body, signature); err != nil {
		s.Logger.Warnw("rejected webhook with invalid signature",
			"event_type", eventType,
			"error", err,
		)
		metrics.RecordWebhookEvent(string(eventType), "rejected")
		return nil, err
	}

	payload := types.Payload(body)
	if !json.Valid(body) {
		// keep the raw body for inspection, dispatch will report it as invalid
		raw, _ := json.Marshal(string(body))
		payload = types.Payload(raw)
	}

	event := &webhookevent.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventType: eventType,
		Payload:   payload,
		Signature: signature,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.WebhookEventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	resp := &dto.WebhookResponse{
		EventID:   event.ID,
		EventType: eventType,
	}

	if !eventType.IsKnown() {
		s.Logger.Warnw("stored webhook event with unknown type",
			"webhook_event_id", event.ID,
			"event_type", eventType,
		)
		metrics.RecordWebhookEvent(string(eventType), metrics.OutcomeNoop)
		return resp, nil
	}

	if err := s.process(ctx, event); err != nil {
		resp.Error = err.Error()
		return resp, nil
	}

	resp.Processed = true
	return resp, nil
}

// process dispatches event and records the outcome on the stored row
func (s *reconciliationService) process(ctx context.Context, event *webhookevent.WebhookEvent) error {
	span, ctx := s.Sentry.MonitorWebhookProcessing(ctx, string(event.EventType), event.CreatedAt, map[string]interface{}{
		"webhook_event_id": event.ID,
	})
	if span != nil {
		defer span.Finish()
	}

	if err := s.dispatch(ctx, event); err != nil {
		s.Logger.Errorw("failed to process webhook event",
			"webhook_event_id", event.ID,
			"event_type", event.EventType,
			"error", err,
		)
		if recErr := s.WebhookEventRepo.RecordFailure(ctx, event.ID, err.Error()); recErr != nil {
			s.Logger.Errorw("failed to record webhook failure",
				"webhook_event_id", event.ID,
				"error", recErr,
			)
		}
		metrics.RecordWebhookEvent(string(event.EventType), metrics.OutcomeError)
		return err
	}

	if err := s.WebhookEventRepo.MarkProcessed(ctx, event.ID); err != nil {
		return err
	}

	metrics.RecordWebhookEvent(string(event.EventType), metrics.OutcomeSuccess)
	s.Logger.Infow("webhook event processed",
		"webhook_event_id", event.ID,
		"event_type", event.EventType,
	)
	return nil
}

func (s *reconciliationService) dispatch(ctx context.Context, event *webhookevent.WebhookEvent) error {
	if event.EventType == types.WebhookEventGasSponsored {
		return nil
	}

	payload, err := event.Decode()
	if err != nil {
		return err
	}

	txn, err := s.lookup(ctx, payload)
	if err != nil {
		return err
	}

	switch event.EventType {
	case types.WebhookEventInvoicePaid, types.WebhookEventTransactionConfirmed:
		params := ConfirmParams{
			BlockNumber:       payload.BlockNumber,
			GasUsed:           payload.GasUsed,
			ContractInvoiceID: payload.ContractInvoiceID,
		}
		if payload.TransactionHash != "" && payload.TransactionHash != txn.TxHash {
			params.ChainTxHash = payload.TransactionHash
		}
		if payload.GasPrice != "" {
			price, err := decimal.NewFromString(payload.GasPrice)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Webhook gas price must be a decimal number").
					WithReportableDetails(map[string]any{
						"webhook_event_id": event.ID,
						"gas_price":        payload.GasPrice,
					}).
					Mark(ierr.ErrValidation)
			}
			params.GasPrice = &price
		}
		_, err = s.transactions.ConfirmTransaction(ctx, txn.TxHash, params)
		return err
	case types.WebhookEventTransactionFailed:
		_, err = s.transactions.FailTransaction(ctx, txn.TxHash, payload.Reason)
		return err
	}
	return nil
}

// lookup finds the tracked transaction of payload, by operation hash first
func (s *reconciliationService) lookup(ctx context.Context, payload *webhookevent.Payload) (*transaction.Transaction, error) {
	var lastErr error
	for _, hash := range lo.Compact([]string{payload.UserOpHash, payload.TransactionHash}) {
		txn, err := s.transactions.FindByCorrelation(ctx, hash)
		if err == nil {
			return txn, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, ierr.WithError(lastErr).
		WithHintf("No tracked transaction matches %s", payload.Reference()).
		WithReportableDetails(map[string]any{
			"transaction_hash": payload.TransactionHash,
			"user_op_hash":     payload.UserOpHash,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *reconciliationService) ReplayWebhooks(ctx context.Context) (*dto.ReplayResponse, error) {
	resp := &dto.ReplayResponse{}
	batchSize := s.Config.Reconciliation.ReplayBatchSize

	filter := types.NewUnprocessedWebhookEventFilter(batchSize)
	filter.EventType = []types.WebhookEventType{
		types.WebhookEventInvoicePaid,
		types.WebhookEventTransactionConfirmed,
		types.WebhookEventTransactionFailed,
		types.WebhookEventGasSponsored,
	}

	for {
		events, err := s.WebhookEventRepo.List(ctx, filter)
		if err != nil {
			metrics.RecordReconciliationRun("webhook_replay", err)
			return resp, err
		}

		failed := 0
		for _, event := range events {
			resp.Attempted++
			if err := s.process(ctx, event); err != nil {
				failed++
				continue
			}
			resp.Processed++
		}
		resp.Failed += failed

		if len(events) < batchSize {
			break
		}
		// processed rows leave the result set, failed ones stay ahead of the next page
		filter.Offset = lo.ToPtr(filter.GetOffset() + failed)
	}

	metrics.RecordReconciliationRun("webhook_replay", nil)
	if resp.Attempted > 0 {
		s.Logger.Infow("replayed webhook events",
			"attempted", resp.Attempted,
			"processed", resp.Processed,
			"failed", resp.Failed,
		)
	}
	return resp, nil
}

func (s *reconciliationService) PollStatus(ctx context.Context, opHash string) (*dto.PaymentStatusResponse, error) {
	if opHash == "" {
		return nil, ierr.NewError("operation hash is required").
			WithHint("Provide the user operation hash to poll").
			Mark(ierr.ErrValidation)
	}

	key := cache.GenerateKey(cache.PrefixOpStatus, opHash)
	if cached, ok := cache.GetJSON[dto.PaymentStatusResponse](ctx, s.Cache, key); ok {
		cached.Source = StatusSourceCache
		metrics.RecordOpStatusLookup(StatusSourceCache)
		return cached, nil
	}

	txn, err := s.transactions.FindByCorrelation(ctx, opHash)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if txn != nil && txn.TransactionStatus.IsTerminal() {
		resp := s.statusFromTransaction(opHash, txn)
		cache.SetJSON(ctx, s.Cache, key, resp, s.Config.Cache.OpStatusTTL)
		metrics.RecordOpStatusLookup(StatusSourceDatabase)
		return resp, nil
	}

	status, err := s.Relay.Status(ctx, opHash)
	if err != nil {
		if txn == nil {
			return nil, err
		}
		s.Logger.Warnw("relay status unavailable, answering from database",
			"op_hash", opHash,
			"error", err,
		)
		metrics.RecordOpStatusLookup(StatusSourceDatabase)
		return s.statusFromTransaction(opHash, txn), nil
	}

	if status.Status == relay.OpStateNotFound {
		if txn == nil {
			return nil, ierr.NewError("operation not found").
				WithHintf("No operation %s is known", opHash).
				WithReportableDetails(map[string]any{
					"op_hash": opHash,
				}).
				Mark(ierr.ErrNotFound)
		}
		metrics.RecordOpStatusLookup(StatusSourceDatabase)
		return s.statusFromTransaction(opHash, txn), nil
	}

	if status.Status.IsFinal() && txn != nil {
		s.reconcile(ctx, txn, status)
	}

	resp := &dto.PaymentStatusResponse{
		UserOpHash:  opHash,
		Status:      status.Status,
		TxHash:      status.TxHash,
		BlockNumber: status.BlockNumber,
		GasUsed:     status.GasUsed,
		Reason:      status.Reason,
		Source:      StatusSourceRelay,
	}
	if status.TxHash != "" && s.Config.Chain.ExplorerURL != "" {
		resp.ExplorerURL = dto.ExplorerTxURL(s.Config.Chain.ExplorerURL, status.TxHash)
	}

	cache.SetJSON(ctx, s.Cache, key, resp, s.Config.Cache.OpStatusTTL)
	metrics.RecordOpStatusLookup(StatusSourceRelay)
	return resp, nil
}

// reconcile settles txn from a final relay status. Failures are logged, the webhook path or the next poll retries.
func (s *reconciliationService) reconcile(ctx context.Context, txn *transaction.Transaction, status *relay.OpStatus) {
	var err error
	switch status.Status {
	case relay.OpStateSuccess:
		_, err = s.transactions.ConfirmTransaction(ctx, txn.TxHash, ConfirmParams{
			BlockNumber: status.BlockNumber,
			GasUsed:     status.GasUsed,
			ChainTxHash: status.TxHash,
		})
	case relay.OpStateReverted:
		_, err = s.transactions.FailTransaction(ctx, txn.TxHash, lo.CoalesceOrEmpty(status.Reason, "operation reverted"))
	}
	if err != nil {
		s.Logger.Errorw("failed to reconcile polled operation",
			"transaction_id", txn.ID,
			"op_hash", status.OpHash,
			"status", status.Status,
			"error", err,
		)
		s.Sentry.CaptureException(err)
	}
}

func (s *reconciliationService) statusFromTransaction(opHash string, txn *transaction.Transaction) *dto.PaymentStatusResponse {
	resp := &dto.PaymentStatusResponse{
		UserOpHash:  opHash,
		Status:      relay.OpStatePending,
		BlockNumber: txn.BlockNumber,
		GasUsed:     txn.GasUsed,
		Source:      StatusSourceDatabase,
	}

	switch txn.TransactionStatus {
	case types.TransactionStatusConfirmed:
		resp.Status = relay.OpStateSuccess
		resp.TxHash = lo.CoalesceOrEmpty(txn.Metadata.ChainTxHash, txn.TxHash)
	case types.TransactionStatusFailed:
		resp.Status = relay.OpStateReverted
		resp.TxHash = txn.Metadata.ChainTxHash
		resp.Reason = txn.Metadata.FailureReason
	}

	if resp.TxHash != "" && s.Config.Chain.ExplorerURL != "" {
		resp.ExplorerURL = dto.ExplorerTxURL(s.Config.Chain.ExplorerURL, resp.TxHash)
	}
	return resp
}

func (s *reconciliationService) SweepOverdue(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.invoices.MarkOverdue(ctx, now)
	metrics.RecordReconciliationRun("overdue_sweep", err)
	if err != nil {
		s.Logger.Errorw("overdue sweep failed", "error", err)
		return nil, err
	}
	return ids, nil
}
