package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/security"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/settlehq/settle/internal/types"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceSuite struct {
	serviceSuite
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) sign(body []byte) string {
	return security.NewSignatureVerifier(s.GetConfig()).Sign(body)
}

func (s *ReconciliationServiceSuite) body(p webhookevent.Payload) []byte {
	raw, err := json.Marshal(p)
	s.Require().NoError(err)
	return raw
}

func (s *ReconciliationServiceSuite) storedEvents() []*webhookevent.WebhookEvent {
	events, err := s.GetStores().WebhookEventRepo.List(s.GetContext(), nil)
	s.Require().NoError(err)
	return events
}

func (s *ReconciliationServiceSuite) TestWebhookRejectsBadSignature() {
	body := s.body(webhookevent.Payload{TransactionHash: "0xabc"})

	_, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventTransactionConfirmed, body, "sha256=deadbeef")
	s.True(ierr.IsUnauthenticated(err))

	_, err = s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventTransactionConfirmed, body, "")
	s.True(ierr.IsUnauthenticated(err))

	s.Empty(s.storedEvents(), "unsigned events are not stored")
}

func (s *ReconciliationServiceSuite) TestInvoicePaidWebhook() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 21)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	body := s.body(webhookevent.Payload{
		TransactionHash: "0xbundle",
		UserOpHash:      pay.UserOpHash,
		BlockNumber:     lo.ToPtr(int64(777)),
		GasUsed:         lo.ToPtr(int64(90000)),
		GasPrice:        "1.5",
	})
	resp, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventInvoicePaid, body, s.sign(body))
	s.Require().NoError(err)
	s.True(resp.Processed)
	s.Empty(resp.Error)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), pay.TransactionID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusConfirmed, txn.TransactionStatus)
	s.Equal("0xbundle", txn.Metadata.ChainTxHash)
	s.Equal(int64(777), lo.FromPtr(txn.BlockNumber))
	s.Equal("1.5", txn.GasPrice.String())

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, stored.InvoiceStatus)
	s.Equal("0xbundle", lo.FromPtr(stored.PaymentTxHash))

	// redelivery is stored and harmless
	resp, err = s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventInvoicePaid, body, s.sign(body))
	s.Require().NoError(err)
	s.True(resp.Processed)

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.Equal(1, owner.TotalPaidInvoices)
	s.Len(s.storedEvents(), 2)
}

func (s *ReconciliationServiceSuite) TestRegistrationConfirmedWebhook() {
	s.SeedOwner()
	created, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("15"))
	s.Require().NoError(err)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)

	body := s.body(webhookevent.Payload{
		UserOpHash:        *inv.TxHash,
		TransactionHash:   "0xregistration",
		ContractInvoiceID: lo.ToPtr(int64(5)),
	})
	resp, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventTransactionConfirmed, body, s.sign(body))
	s.Require().NoError(err)
	s.True(resp.Processed)

	inv, err = s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(int64(5), lo.FromPtr(inv.ContractInvoiceID))
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus)
}

func (s *ReconciliationServiceSuite) TestTransactionFailedWebhook() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 22)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	body := s.body(webhookevent.Payload{UserOpHash: pay.UserOpHash, Reason: "AA21 didn't pay prefund"})
	resp, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventTransactionFailed, body, s.sign(body))
	s.Require().NoError(err)
	s.True(resp.Processed)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), pay.TransactionID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.TransactionStatus)
	s.Equal("AA21 didn't pay prefund", txn.Metadata.FailureReason)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, stored.InvoiceStatus)
}

func (s *ReconciliationServiceSuite) TestWebhookDispatchFailuresAreStored() {
	tests := []struct {
		name      string
		eventType types.WebhookEventType
		body      []byte
		processed bool
		wantError bool
	}{
		{
			name:      "unmatched transaction",
			eventType: types.WebhookEventTransactionConfirmed,
			body:      []byte(`{"transactionHash":"0xunknown"}`),
			wantError: true,
		},
		{
			name:      "malformed json",
			eventType: types.WebhookEventTransactionConfirmed,
			body:      []byte(`{not json`),
			wantError: true,
		},
		{
			name:      "no reference",
			eventType: types.WebhookEventInvoicePaid,
			body:      []byte(`{"blockNumber":1}`),
			wantError: true,
		},
		{
			name:      "unknown event type",
			eventType: "invoice_viewed",
			body:      []byte(`{"transactionHash":"0xabc"}`),
		},
		{
			name:      "gas sponsored is informational",
			eventType: types.WebhookEventGasSponsored,
			body:      []byte(`{"userOpHash":"0xabc"}`),
			processed: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.reconciliation.HandleWebhook(s.GetContext(), tt.eventType, tt.body, s.sign(tt.body))
			s.Require().NoError(err)
			s.Equal(tt.processed, resp.Processed)
			s.Equal(tt.wantError, resp.Error != "")

			event, err := s.GetStores().WebhookEventRepo.Get(s.GetContext(), resp.EventID)
			s.Require().NoError(err)
			s.Equal(tt.processed, event.Processed)
			if tt.wantError {
				s.Equal(1, event.Attempts)
				s.NotEmpty(event.LastError)
			}
			s.True(json.Valid(event.Payload), "payload is stored as valid JSON")
		})
	}
}

func (s *ReconciliationServiceSuite) TestReplayWebhooks() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 23)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	// the confirmation arrives while the transaction lookup is unmatched
	early := s.body(webhookevent.Payload{TransactionHash: "0xbundle", UserOpHash: "0xnot-yet-tracked"})
	resp, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventInvoicePaid, early, s.sign(early))
	s.Require().NoError(err)
	s.False(resp.Processed)

	good := s.body(webhookevent.Payload{UserOpHash: pay.UserOpHash})
	stored := &webhookevent.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventType: types.WebhookEventInvoicePaid,
		Payload:   types.Payload(good),
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.GetStores().WebhookEventRepo.Create(s.GetContext(), stored))

	replay, err := s.reconciliation.ReplayWebhooks(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, replay.Attempted)
	s.Equal(1, replay.Processed)
	s.Equal(1, replay.Failed)

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)

	event, err := s.GetStores().WebhookEventRepo.Get(s.GetContext(), resp.EventID)
	s.Require().NoError(err)
	s.Equal(2, event.Attempts)

	replay, err = s.reconciliation.ReplayWebhooks(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, replay.Attempted, "only the unmatched event is left")
}

func (s *ReconciliationServiceSuite) TestReplayPagesPastFailures() {
	batch := s.GetConfig().Reconciliation.ReplayBatchSize
	for i := 0; i < batch+3; i++ {
		body := []byte(`{"transactionHash":"0xunknown"}`)
		_, err := s.reconciliation.HandleWebhook(s.GetContext(), types.WebhookEventTransactionConfirmed, body, s.sign(body))
		s.Require().NoError(err)
	}

	replay, err := s.reconciliation.ReplayWebhooks(s.GetContext())
	s.Require().NoError(err)
	s.Equal(batch+3, replay.Attempted)
	s.Equal(batch+3, replay.Failed)
}

func (s *ReconciliationServiceSuite) TestPollStatus() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 24)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	status, err := s.reconciliation.PollStatus(s.GetContext(), pay.SubmittedHash)
	s.Require().NoError(err)
	s.Equal(relay.OpStatePending, status.Status)
	s.Equal(StatusSourceRelay, status.Source)

	status, err = s.reconciliation.PollStatus(s.GetContext(), pay.SubmittedHash)
	s.Require().NoError(err)
	s.Equal(StatusSourceCache, status.Source)
	calls := s.GetRelay().StatusCalls

	// settlement on the relay side is picked up once the cache entry expires
	s.GetCache().Delete(s.GetContext(), cache.GenerateKey(cache.PrefixOpStatus, pay.SubmittedHash))
	s.GetRelay().Settle(pay.SubmittedHash, relay.OpStateSuccess, "0xbundle", 900, 120000)

	status, err = s.reconciliation.PollStatus(s.GetContext(), pay.SubmittedHash)
	s.Require().NoError(err)
	s.Equal(relay.OpStateSuccess, status.Status)
	s.Equal("0xbundle", status.TxHash)
	s.Equal("https://explorer.test/tx/0xbundle", status.ExplorerURL)
	s.Equal(calls+1, s.GetRelay().StatusCalls)

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)

	// settled operations are answered without the relay
	s.GetCache().Delete(s.GetContext(), cache.GenerateKey(cache.PrefixOpStatus, pay.SubmittedHash))
	status, err = s.reconciliation.PollStatus(s.GetContext(), pay.UserOpHash)
	s.Require().NoError(err)
	s.Equal(StatusSourceDatabase, status.Source)
	s.Equal(relay.OpStateSuccess, status.Status)
	s.Equal("0xbundle", status.TxHash)
	s.Equal(calls+1, s.GetRelay().StatusCalls)
}

func (s *ReconciliationServiceSuite) TestPollConfirmedRegistrationIsPayable() {
	s.SeedOwner()
	created, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("75"))
	s.Require().NoError(err)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(inv.TxHash)

	s.GetRelay().Settle(*inv.TxHash, relay.OpStateSuccess, "0xregistration", 800, 90000)
	s.GetChain().SetRegistration("0xregistration", 31)

	status, err := s.reconciliation.PollStatus(s.GetContext(), *inv.TxHash)
	s.Require().NoError(err)
	s.Equal(relay.OpStateSuccess, status.Status)

	registration, err := s.GetStores().TransactionRepo.GetByHash(s.GetContext(), *inv.TxHash)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusConfirmed, registration.TransactionStatus)
	s.Equal(int64(31), lo.FromPtr(registration.Metadata.ContractInvoiceID))

	registered, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(int64(31), lo.FromPtr(registered.ContractInvoiceID))

	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, pay.InvoiceStatus)

	s.GetRelay().Settle(pay.SubmittedHash, relay.OpStateSuccess, "0xpayment", 801, 120000)
	_, err = s.reconciliation.PollStatus(s.GetContext(), pay.SubmittedHash)
	s.Require().NoError(err)

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
}

func (s *ReconciliationServiceSuite) TestPollStatusReverted() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 25)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	s.GetRelay().Settle(pay.SubmittedHash, relay.OpStateReverted, "0xreverted", 901, 50000)
	status, err := s.reconciliation.PollStatus(s.GetContext(), pay.SubmittedHash)
	s.Require().NoError(err)
	s.Equal(relay.OpStateReverted, status.Status)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), pay.TransactionID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.TransactionStatus)
	s.Equal("operation reverted", txn.Metadata.FailureReason)
}

func (s *ReconciliationServiceSuite) TestPollStatusUnknownAndRelayDown() {
	_, err := s.reconciliation.PollStatus(s.GetContext(), "0xnever-seen")
	s.True(ierr.IsNotFound(err))

	_, err = s.reconciliation.PollStatus(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	s.SeedOwner()
	inv := s.createRegisteredInvoice("60", 26)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	s.GetRelay().StatusErr = testutil.ErrRelayDown
	status, err := s.reconciliation.PollStatus(s.GetContext(), pay.UserOpHash)
	s.Require().NoError(err)
	s.Equal(StatusSourceDatabase, status.Source)
	s.Equal(relay.OpStatePending, status.Status)

	_, err = s.reconciliation.PollStatus(s.GetContext(), "0xnever-seen")
	s.True(ierr.IsDependencyUnavailable(err))
}

func (s *ReconciliationServiceSuite) TestSweepOverdue() {
	s.SeedOwner()
	req := s.emailInvoiceRequest("10")
	req.Send = true
	resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	ids, err := s.reconciliation.SweepOverdue(s.GetContext(), s.GetNow().Add(8*24*time.Hour))
	s.NoError(err)
	s.Equal([]string{resp.ID}, ids)
}

func (s *ReconciliationServiceSuite) TestSchedulerRunsJobs() {
	s.SeedOwner()
	req := s.emailInvoiceRequest("10")
	req.Send = true
	resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	// due date in the past, written directly since the service refuses it
	_, err = s.GetStores().InvoiceRepo.Mutate(s.GetContext(), resp.ID, func(inv *invoice.Invoice) bool {
		inv.DueDate = s.GetNow().Add(-time.Hour)
		return true
	})
	s.Require().NoError(err)

	cfg := *s.GetConfig()
	cfg.Reconciliation.OverdueSweepInterval = 10 * time.Millisecond
	cfg.Reconciliation.ReplayInterval = 10 * time.Millisecond
	scheduler := NewScheduler(s.reconciliation, &cfg, s.GetLogger())
	scheduler.Start()
	scheduler.Start()

	s.Eventually(func() bool {
		inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
		return err == nil && inv.InvoiceStatus == types.InvoiceStatusOverdue
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.NoError(scheduler.Stop(ctx))
	s.NoError(scheduler.Stop(ctx))
}
