package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/chain"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/notification"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	serviceSuite
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	s.SeedOwner()
	year := time.Now().UTC().Year()

	tests := []struct {
		name       string
		req        func() dto.CreateInvoiceRequest
		wantStatus types.InvoiceStatus
		wantAmount string
	}{
		{
			name:       "email client stays draft",
			req:        func() dto.CreateInvoiceRequest { return s.emailInvoiceRequest("100.00") },
			wantStatus: types.InvoiceStatusDraft,
			wantAmount: "100",
		},
		{
			name: "send on create",
			req: func() dto.CreateInvoiceRequest {
				req := s.emailInvoiceRequest("42.5")
				req.Send = true
				return req
			},
			wantStatus: types.InvoiceStatusSent,
			wantAmount: "42.5",
		},
		{
			name: "amount from line items",
			req: func() dto.CreateInvoiceRequest {
				req := s.emailInvoiceRequest("1")
				req.Amount = nil
				req.Items = []dto.CreateInvoiceItemRequest{
					{Description: "Design", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("25.5")},
					{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("10")},
				}
				return req
			},
			wantStatus: types.InvoiceStatusDraft,
			wantAmount: "86.5",
		},
	}

	numbers := map[string]bool{}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.invoices.CreateInvoice(s.GetContext(), tt.req())
			s.NoError(err)
			s.Equal(tt.wantStatus, resp.InvoiceStatus)
			s.True(decimal.RequireFromString(tt.wantAmount).Equal(resp.Amount), "amount %s", resp.Amount)
			s.Equal(testutil.TestOwnerID, resp.OwnerID)
			s.True(strings.HasPrefix(resp.InvoiceNumber, fmt.Sprintf("INV-%d-", year)), resp.InvoiceNumber)
			s.False(numbers[resp.InvoiceNumber], "invoice number reused")
			numbers[resp.InvoiceNumber] = true
			s.NotEmpty(resp.PaymentLinkID)
			s.Equal(s.GetConfig().PaymentLink.BaseURL+resp.PaymentLinkID, resp.PaymentURL)
			s.Equal(1, s.GetNotifier().Count(notification.KindInvoiceCreated, resp.ID))
			s.False(resp.IsOnChain)
		})
	}

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.NoError(err)
	s.Equal(len(tests), owner.TotalInvoices)
	s.Empty(s.GetQueue().Jobs, "email invoices are not registered on chain")
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	s.SeedOwner()

	tests := []struct {
		name   string
		mutate func(*dto.CreateInvoiceRequest)
	}{
		{
			name: "no client reference",
			mutate: func(r *dto.CreateInvoiceRequest) {
				r.ClientEmail = ""
				r.ClientWallet = ""
			},
		},
		{
			name:   "malformed wallet",
			mutate: func(r *dto.CreateInvoiceRequest) { r.ClientWallet = "0x123" },
		},
		{
			name:   "due date in the past",
			mutate: func(r *dto.CreateInvoiceRequest) { r.DueDate = s.GetNow().Add(-24 * time.Hour) },
		},
		{
			name:   "missing title",
			mutate: func(r *dto.CreateInvoiceRequest) { r.Title = "" },
		},
		{
			name:   "negative amount",
			mutate: func(r *dto.CreateInvoiceRequest) { r.Amount = lo.ToPtr(decimal.NewFromInt(-5)) },
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.emailInvoiceRequest("100.00")
			tt.mutate(&req)

			_, err := s.invoices.CreateInvoice(s.GetContext(), req)
			s.Error(err)
			s.True(ierr.IsValidation(err), "expected validation error, got %v", err)

			count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), nil)
			s.NoError(err)
			s.Zero(count, "no invoice persisted")
		})
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoiceRequiresUser() {
	_, err := s.invoices.CreateInvoice(s.ContextFor(""), s.emailInvoiceRequest("10"))
	s.True(ierr.IsUnauthenticated(err))
}

func (s *InvoiceServiceSuite) TestCreateWalletInvoiceRegistersOnChain() {
	s.SeedOwner()

	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("100.50"))
	s.Require().NoError(err)
	s.Equal([]string{"register_invoice"}, s.GetQueue().Jobs)
	s.Empty(s.GetQueue().Errors)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.True(inv.IsOnChain)
	s.True(inv.GasSponsored)
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus)
	s.NotNil(inv.SentAt)
	s.Require().NotNil(inv.TxHash)

	s.Require().Len(s.GetChain().Registered, 1)
	s.Equal("100500000", s.GetChain().Registered[0].Amount.String())
	s.Equal(s.GetConfig().PaymentLink.BaseURL+inv.PaymentLinkID, s.GetChain().Registered[0].URI)

	s.Require().Len(s.GetRelay().Submitted, 1)
	s.Equal(testutil.TestOwnerSmartAccount, s.GetRelay().Submitted[0].Sender)
	s.Equal(testutil.TestPaymasterAddress, s.GetRelay().Submitted[0].PaymasterAndData)

	txn, err := s.GetStores().TransactionRepo.GetByHash(s.GetContext(), *inv.TxHash)
	s.Require().NoError(err)
	s.Equal(types.TransactionTypeInvoiceCreated, txn.TransactionType)
	s.Equal(types.TransactionStatusPending, txn.TransactionStatus)
	s.True(txn.IsSponsored)
	s.Equal(inv.ID, txn.Metadata.InvoiceID)

	// a second registration is a no-op
	s.NoError(s.invoices.RegisterOnChain(s.GetContext(), inv.ID))
	s.Len(s.GetRelay().Submitted, 1)
	s.Equal(1, s.countTransactions(types.TransactionTypeInvoiceCreated))
}

func (s *InvoiceServiceSuite) TestRegisterOnChainRelayFailureLeavesInvoiceUnchanged() {
	s.SeedOwner()
	s.GetRelay().SubmitErr = testutil.ErrRelayDown

	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("20"))
	s.Require().NoError(err, "registration failure does not fail creation")
	s.Require().Len(s.GetQueue().Errors, 1)
	s.True(ierr.IsDependencyUnavailable(s.GetQueue().Errors[0]))

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.False(inv.IsOnChain)
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
	s.Zero(s.countTransactions(types.TransactionTypeInvoiceCreated))

	// retry once the relay is back
	s.GetRelay().SubmitErr = nil
	s.NoError(s.invoices.RegisterOnChain(s.GetContext(), inv.ID))

	inv, err = s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.True(inv.IsOnChain)
	s.Equal(1, s.countTransactions(types.TransactionTypeInvoiceCreated))
}

type failingMarkOnChainRepo struct {
	invoice.Repository
	err error
}

func (r *failingMarkOnChainRepo) MarkOnChain(context.Context, string, string) (bool, error) {
	return false, r.err
}

type failingTransactionCreateRepo struct {
	transaction.Repository
	err error
}

func (r *failingTransactionCreateRepo) Create(context.Context, *transaction.Transaction) error {
	return r.err
}

func (s *InvoiceServiceSuite) connectionReset() error {
	return ierr.NewError("connection reset").
		WithHint("Database is unavailable").
		Mark(ierr.ErrDatabase)
}

// registerWithRetries creates a wallet invoice with a queue that retries failed registrations
func (s *InvoiceServiceSuite) registerWithRetries(params ServiceParams) {
	s.SeedOwner()
	s.GetQueue().Attempts = 3

	_, err := NewInvoiceService(params).CreateInvoice(s.GetContext(), s.walletInvoiceRequest("20"))
	s.Require().NoError(err)

	s.Len(s.GetRelay().Submitted, 1, "a submitted registration is never sent again")
	s.Require().Len(s.GetQueue().Errors, 1)
	s.False(worker.Retryable(s.GetQueue().Errors[0]))
}

func (s *InvoiceServiceSuite) TestRegisterOnChainMarkFailureIsNotRetried() {
	params := s.params()
	params.InvoiceRepo = &failingMarkOnChainRepo{Repository: params.InvoiceRepo, err: s.connectionReset()}
	s.registerWithRetries(params)

	s.Equal(0, s.countTransactions(types.TransactionTypeInvoiceCreated))
}

func (s *InvoiceServiceSuite) TestRegisterOnChainRecordFailureIsNotRetried() {
	params := s.params()
	params.TransactionRepo = &failingTransactionCreateRepo{Repository: params.TransactionRepo, err: s.connectionReset()}
	s.registerWithRetries(params)
}

func (s *InvoiceServiceSuite) TestRegisterOnChainRetriesBeforeSubmission() {
	s.SeedOwner()
	s.GetQueue().Attempts = 3
	s.GetRelay().SponsorErr = testutil.ErrRelayDown

	_, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("20"))
	s.Require().NoError(err)

	s.Empty(s.GetRelay().Submitted)
	s.Require().Len(s.GetQueue().Errors, 1)
	s.True(worker.Retryable(s.GetQueue().Errors[0]))
}

func (s *InvoiceServiceSuite) TestRegisterOnChainSkipsEmailInvoice() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	s.NoError(s.invoices.RegisterOnChain(s.GetContext(), resp.ID))
	s.Empty(s.GetRelay().Submitted)
}

func (s *InvoiceServiceSuite) TestOwnerScoping() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	other := s.ContextFor("user_01OTHER")
	_, err = s.invoices.GetInvoice(other, resp.ID)
	s.True(ierr.IsNotFound(err))

	list, err := s.invoices.ListInvoices(other, nil)
	s.NoError(err)
	s.Empty(list.Items)
	s.Zero(list.Pagination.Total)

	s.True(ierr.IsNotFound(s.invoices.DeleteInvoice(other, resp.ID)))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	s.SeedOwner()
	for i := 0; i < 3; i++ {
		req := s.emailInvoiceRequest("10")
		req.Send = i == 0
		_, err := s.invoices.CreateInvoice(s.GetContext(), req)
		s.Require().NoError(err)
	}

	all, err := s.invoices.ListInvoices(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(all.Items, 3)
	s.Equal(3, all.Pagination.Total)

	sent, err := s.invoices.ListInvoices(s.GetContext(), &types.InvoiceFilter{
		QueryFilter:   types.NewDefaultQueryFilter(),
		InvoiceStatus: []types.InvoiceStatus{types.InvoiceStatusSent},
	})
	s.NoError(err)
	s.Len(sent.Items, 1)

	_, err = s.invoices.ListInvoices(s.GetContext(), &types.InvoiceFilter{
		QueryFilter: &types.QueryFilter{Limit: lo.ToPtr(5000)},
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	updated, err := s.invoices.UpdateInvoice(s.GetContext(), resp.ID, dto.UpdateInvoiceRequest{
		Title: lo.ToPtr("Website redesign, phase 2"),
	})
	s.NoError(err)
	s.Equal("Website redesign, phase 2", updated.Title)

	_, err = s.invoices.UpdateInvoice(s.GetContext(), resp.ID, dto.UpdateInvoiceRequest{
		DueDate: lo.ToPtr(s.GetNow().Add(-time.Hour)),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.invoices.CancelInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	_, err = s.invoices.UpdateInvoice(s.GetContext(), resp.ID, dto.UpdateInvoiceRequest{
		Title: lo.ToPtr("too late"),
	})
	s.True(ierr.IsIllegalState(err))
}

func (s *InvoiceServiceSuite) TestSendAndCancel() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	sent, err := s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotNil(sent.SentAt)

	_, err = s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.NoError(err, "sending twice is idempotent")
	s.Equal(1, s.GetNotifier().Count(notification.KindInvoiceSent, resp.ID))

	cancelled, err := s.invoices.CancelInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, cancelled.InvoiceStatus)

	_, err = s.invoices.CancelInvoice(s.GetContext(), resp.ID)
	s.NoError(err)

	_, err = s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.True(ierr.IsIllegalState(err))
}

func (s *InvoiceServiceSuite) TestSendReminder() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	s.NoError(s.invoices.SendReminder(s.GetContext(), resp.ID))
	s.Equal(1, s.GetNotifier().Count(notification.KindInvoiceReminder, resp.ID))

	_, err = s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.invoices.MarkPaid(s.GetContext(), resp.ID, "0xpaid"))
	s.True(ierr.IsIllegalState(s.invoices.SendReminder(s.GetContext(), resp.ID)))
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	s.SeedOwner()
	draft, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	s.NoError(s.invoices.DeleteInvoice(s.GetContext(), draft.ID))
	_, err = s.invoices.GetInvoice(s.GetContext(), draft.ID)
	s.True(ierr.IsNotFound(err))

	req := s.emailInvoiceRequest("20")
	req.Send = true
	paid, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.Require().NoError(s.invoices.MarkPaid(s.GetContext(), paid.ID, "0xpaid"))
	s.True(ierr.IsIllegalState(s.invoices.DeleteInvoice(s.GetContext(), paid.ID)))
}

func (s *InvoiceServiceSuite) TestGetInvoiceForPayment() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	_, err = s.invoices.GetInvoiceForPayment(s.GetContext(), resp.PaymentLinkID)
	s.True(ierr.IsNotFound(err), "drafts are not payable")

	_, err = s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		page, err := s.invoices.GetInvoiceForPayment(s.GetContext(), resp.PaymentLinkID)
		s.Require().NoError(err)
		s.Equal(resp.ID, page.ID)
		s.Equal(testutil.TestOwnerSmartAccount, page.PayeeAddress)
	}

	link, err := s.GetStores().PaymentLinkRepo.GetByInvoiceID(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(2, link.Clicks)

	_, err = s.invoices.GetInvoiceForPayment(s.GetContext(), "missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestMarkPaidIsIdempotent() {
	s.SeedOwner()
	req := s.emailInvoiceRequest("250.75")
	req.Send = true
	resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	s.NoError(s.invoices.MarkPaid(s.GetContext(), resp.ID, "0xpayment"))
	s.NoError(s.invoices.MarkPaid(s.GetContext(), resp.ID, "0xpayment"))

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("250.75").Equal(owner.TotalEarned), "earned %s", owner.TotalEarned)
	s.Equal(1, owner.TotalPaidInvoices)
	s.Equal(1, s.GetNotifier().Count(notification.KindInvoicePaid, resp.ID))

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.NotNil(inv.PaidAt)
	s.Equal("0xpayment", lo.FromPtr(inv.PaymentTxHash))
}

func (s *InvoiceServiceSuite) TestMarkPaidRejectsIllegalStates() {
	s.SeedOwner()
	draft, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	s.True(ierr.IsIllegalState(s.invoices.MarkPaid(s.GetContext(), draft.ID, "0xpayment")))
	s.True(ierr.IsValidation(s.invoices.MarkPaid(s.GetContext(), draft.ID, "")))
}

func (s *InvoiceServiceSuite) TestInitiatePayment() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("100.50", 7)

	resp, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.Equal("100500000", resp.AmountMinorUnits)
	s.Equal("0xclientophash", resp.UserOpHash)
	s.Equal(s.GetRelay().LastSubmittedHash(), resp.SubmittedHash)
	s.True(resp.GasSponsored)

	txn, err := s.GetStores().TransactionRepo.FindByCorrelation(s.GetContext(), "0xclientophash")
	s.Require().NoError(err)
	s.Equal(resp.TransactionID, txn.ID)
	s.Equal(types.TransactionTypeInvoicePaid, txn.TransactionType)
	s.Equal(types.TransactionStatusPending, txn.TransactionStatus)
	s.Equal(resp.SubmittedHash, txn.TxHash)
	s.Equal(resp.SubmittedHash, txn.Metadata.SubmittedHash)
	s.Equal(strings.ToLower(testutil.TestOwnerSmartAccount), txn.ToAddress)

	byLink, err := s.GetStores().TransactionRepo.FindByCorrelation(s.GetContext(), resp.SubmittedHash)
	s.Require().NoError(err)
	s.Equal(txn.ID, byLink.ID)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, stored.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestInitiatePaymentOnPaidInvoice() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("10", 8)
	s.Require().NoError(s.invoices.MarkPaid(s.GetContext(), inv.ID, "0xpaid"))
	before := s.countTransactions(types.TransactionTypeInvoicePaid)

	_, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.True(ierr.IsIllegalState(err))
	s.Equal(before, s.countTransactions(types.TransactionTypeInvoicePaid))
}

func (s *InvoiceServiceSuite) TestInitiatePaymentRelayFailure() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("10", 9)

	tests := []struct {
		name  string
		setup func()
	}{
		{name: "sponsorship fails", setup: func() { s.GetRelay().SponsorErr = testutil.ErrRelayDown }},
		{name: "submission fails", setup: func() { s.GetRelay().SubmitErr = testutil.ErrRelayDown }},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.GetRelay().SponsorErr, s.GetRelay().SubmitErr = nil, nil
			tt.setup()

			_, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
			s.True(ierr.IsDependencyUnavailable(err))

			stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
			s.Require().NoError(err)
			s.Equal(types.InvoiceStatusSent, stored.InvoiceStatus)
			s.Zero(s.countTransactions(types.TransactionTypeInvoicePaid))
		})
	}
}

func (s *InvoiceServiceSuite) TestInitiatePaymentRequiresRegistration() {
	s.SeedOwner()
	req := s.emailInvoiceRequest("10")
	req.Send = true
	resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	_, err = s.invoices.InitiatePayment(s.GetContext(), resp.ID, s.paymentRequest())
	s.True(ierr.IsIllegalState(err))

	_, err = s.invoices.InitiatePayment(s.GetContext(), resp.ID, dto.InitiatePaymentRequest{PayerWallet: "0x1"})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestMarkOverdue() {
	s.SeedOwner()
	now := s.GetNow()

	mk := func(send bool) string {
		req := s.emailInvoiceRequest("10")
		req.Send = send
		resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
		s.Require().NoError(err)
		return resp.ID
	}
	draft := mk(false)
	sent := mk(true)
	paid := mk(true)
	s.Require().NoError(s.invoices.MarkPaid(s.GetContext(), paid, "0xpaid"))

	// nothing is due yet
	ids, err := s.invoices.MarkOverdue(s.GetContext(), now)
	s.NoError(err)
	s.Empty(ids)

	later := now.Add(30 * 24 * time.Hour)
	ids, err = s.invoices.MarkOverdue(s.GetContext(), later)
	s.NoError(err)
	s.Equal([]string{sent}, ids)

	for id, want := range map[string]types.InvoiceStatus{
		draft: types.InvoiceStatusDraft,
		sent:  types.InvoiceStatusOverdue,
		paid:  types.InvoiceStatusPaid,
	} {
		inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal(want, inv.InvoiceStatus)
	}

	ids, err = s.invoices.MarkOverdue(s.GetContext(), later)
	s.NoError(err)
	s.Empty(ids, "sweep is idempotent")
}

func (s *InvoiceServiceSuite) TestSyncFromChain() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("75", 11)

	resp, err := s.invoices.SyncFromChain(s.GetContext(), inv.ID)
	s.Error(err, "contract invoice unknown to the chain")
	s.Nil(resp)

	s.GetChain().SetInvoice(11, &chain.OnChainInvoice{IsPaid: false})
	resp, err = s.invoices.SyncFromChain(s.GetContext(), inv.ID)
	s.NoError(err)
	s.False(resp.Changed)
	s.Equal(types.InvoiceStatusSent, resp.InvoiceStatus)

	// overdue invoices can still be settled by the chain
	_, err = s.invoices.MarkOverdue(s.GetContext(), s.GetNow().Add(30*24*time.Hour))
	s.Require().NoError(err)

	s.GetChain().SetInvoice(11, &chain.OnChainInvoice{IsPaid: true})
	resp, err = s.invoices.SyncFromChain(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(resp.Changed)
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal("onchain:11", lo.FromPtr(stored.PaymentTxHash))

	resp, err = s.invoices.SyncFromChain(s.GetContext(), inv.ID)
	s.NoError(err)
	s.False(resp.Changed)

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.Equal(1, owner.TotalPaidInvoices)
}

func (s *InvoiceServiceSuite) TestSyncFromChainWithoutContractID() {
	s.SeedOwner()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("20"))
	s.Require().NoError(err)

	out, err := s.invoices.SyncFromChain(s.GetContext(), resp.ID)
	s.NoError(err)
	s.False(out.Changed)
	s.Equal(types.InvoiceStatusDraft, out.InvoiceStatus)
}
