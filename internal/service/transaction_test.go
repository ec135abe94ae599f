package service

import (
	"sync/atomic"
	"testing"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/notification"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
)

type TransactionServiceSuite struct {
	serviceSuite
}

func TestTransactionService(t *testing.T) {
	suite.Run(t, new(TransactionServiceSuite))
}

func (s *TransactionServiceSuite) recordRequest(hash string) *dto.RecordTransactionRequest {
	return &dto.RecordTransactionRequest{
		TxHash:      hash,
		Type:        types.TransactionTypeDeposit,
		Amount:      decimal.NewFromInt(5),
		FromAddress: testutil.TestClientWallet,
		ToAddress:   testutil.TestOwnerWallet,
		UserID:      testutil.TestOwnerID,
	}
}

func (s *TransactionServiceSuite) TestRecordTransaction() {
	resp, err := s.transactions.RecordTransaction(s.GetContext(), s.recordRequest("0xabc"))
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusPending, resp.TransactionStatus)
	s.Equal("https://explorer.test/tx/0xabc", resp.ExplorerURL)

	_, err = s.transactions.RecordTransaction(s.GetContext(), s.recordRequest("0xabc"))
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.transactions.RecordTransaction(s.GetContext(), s.recordRequest(""))
	s.True(ierr.IsValidation(err))

	bad := s.recordRequest("0xdef")
	bad.Type = "refund"
	_, err = s.transactions.RecordTransaction(s.GetContext(), bad)
	s.True(ierr.IsValidation(err))
}

func (s *TransactionServiceSuite) TestConfirmIsIdempotent() {
	_, err := s.transactions.RecordTransaction(s.GetContext(), s.recordRequest("0xabc"))
	s.Require().NoError(err)

	txn, err := s.transactions.ConfirmTransaction(s.GetContext(), "0xabc", ConfirmParams{
		BlockNumber: lo.ToPtr(int64(12)),
		GasUsed:     lo.ToPtr(int64(21000)),
	})
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusConfirmed, txn.TransactionStatus)
	s.NotNil(txn.ConfirmedAt)
	s.Equal(int64(12), lo.FromPtr(txn.BlockNumber))

	again, err := s.transactions.ConfirmTransaction(s.GetContext(), "0xabc", ConfirmParams{BlockNumber: lo.ToPtr(int64(99))})
	s.NoError(err)
	s.Equal(int64(12), lo.FromPtr(again.BlockNumber), "terminal transactions are not rewritten")

	failed, err := s.transactions.FailTransaction(s.GetContext(), "0xabc", "late failure")
	s.NoError(err)
	s.Equal(types.TransactionStatusConfirmed, failed.TransactionStatus)
}

func (s *TransactionServiceSuite) TestFailTransactionKeepsInvoicePending() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("30", 3)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	txn, err := s.transactions.FailTransaction(s.GetContext(), pay.UserOpHash, "reverted by bundler")
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.TransactionStatus)
	s.Equal("reverted by bundler", txn.Metadata.FailureReason)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, stored.InvoiceStatus)

	// a failed payment can be retried
	retry, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, dto.InitiatePaymentRequest{
		PayerWallet: testutil.TestClientWallet,
		Signature:   "0xsigned-again",
	})
	s.Require().NoError(err)
	s.Equal(retry.SubmittedHash, retry.UserOpHash)
	s.Equal(2, s.countTransactions(types.TransactionTypeInvoicePaid))
}

func (s *TransactionServiceSuite) TestConfirmUnknownHash() {
	_, err := s.transactions.ConfirmTransaction(s.GetContext(), "0xmissing", ConfirmParams{})
	s.True(ierr.IsNotFound(err))

	_, err = s.transactions.ConfirmTransaction(s.GetContext(), "", ConfirmParams{})
	s.True(ierr.IsValidation(err))
}

func (s *TransactionServiceSuite) TestConcurrentConfirm() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("40", 4)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)

	var errs atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			if _, err := s.transactions.ConfirmTransaction(s.GetContext(), pay.SubmittedHash, ConfirmParams{
				BlockNumber: lo.ToPtr(int64(50)),
			}); err != nil {
				errs.Add(1)
			}
		})
	}
	wg.Wait()
	s.Zero(errs.Load())

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), pay.TransactionID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusConfirmed, txn.TransactionStatus)

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(40).Equal(owner.TotalEarned), "earned %s", owner.TotalEarned)
	s.Equal(1, owner.TotalPaidInvoices)
	s.Equal(1, s.GetNotifier().Count(notification.KindInvoicePaid, inv.ID))
}

func (s *TransactionServiceSuite) TestPaymentEndToEnd() {
	s.SeedOwner()
	amount := decimal.RequireFromString("100.50")

	// create with a wallet client, registration runs on the queue
	created, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("100.50"))
	s.Require().NoError(err)
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.True(inv.IsOnChain)
	s.Equal(1, s.countTransactions(types.TransactionTypeInvoiceCreated))

	// the registration confirms with the contract's invoice id
	_, err = s.transactions.ConfirmTransaction(s.GetContext(), *inv.TxHash, ConfirmParams{
		BlockNumber:       lo.ToPtr(int64(1000)),
		ContractInvoiceID: lo.ToPtr(int64(42)),
	})
	s.Require().NoError(err)

	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, pay.InvoiceStatus)
	s.Equal(1, s.countTransactions(types.TransactionTypeInvoicePaid))

	txn, err := s.transactions.ConfirmTransaction(s.GetContext(), pay.SubmittedHash, ConfirmParams{
		BlockNumber: lo.ToPtr(int64(1001)),
		ChainTxHash: "0xbundle",
	})
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusConfirmed, txn.TransactionStatus)

	paid, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.NotNil(paid.PaidAt)
	s.Equal("0xbundle", lo.FromPtr(paid.PaymentTxHash))
	s.Equal(int64(42), lo.FromPtr(paid.ContractInvoiceID))

	// a duplicate confirmation does not credit the owner again
	_, err = s.transactions.ConfirmTransaction(s.GetContext(), pay.UserOpHash, ConfirmParams{})
	s.Require().NoError(err)

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.True(amount.Equal(owner.TotalEarned), "earned %s", owner.TotalEarned)
	s.Equal(1, owner.TotalPaidInvoices)
}

func (s *TransactionServiceSuite) TestListAndGetTransactions() {
	_, err := s.transactions.RecordTransaction(s.GetContext(), s.recordRequest("0x1"))
	s.Require().NoError(err)
	other := s.recordRequest("0x2")
	other.UserID = "user_01OTHER"
	otherResp, err := s.transactions.RecordTransaction(s.GetContext(), other)
	s.Require().NoError(err)

	list, err := s.transactions.ListTransactions(s.GetContext(), nil)
	s.NoError(err)
	s.Len(list.Items, 1)
	s.Equal(1, list.Pagination.Total)

	_, err = s.transactions.GetTransaction(s.GetContext(), otherResp.ID)
	s.True(ierr.IsNotFound(err))

	got, err := s.transactions.GetTransaction(s.ContextFor("user_01OTHER"), otherResp.ID)
	s.NoError(err)
	s.Equal("0x2", got.TxHash)
}

func (s *TransactionServiceSuite) TestLateContractInvoiceID() {
	s.SeedOwner()

	tests := []struct {
		name    string
		confirm func(hash string) ConfirmParams
		want    int64
	}{
		{
			name: "from a later confirmation",
			confirm: func(string) ConfirmParams {
				return ConfirmParams{ContractInvoiceID: lo.ToPtr(int64(51))}
			},
			want: 51,
		},
		{
			name: "from the registration receipt",
			confirm: func(hash string) ConfirmParams {
				s.GetChain().SetRegistration(hash, 52)
				return ConfirmParams{}
			},
			want: 52,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			created, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest("40"))
			s.Require().NoError(err)
			inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
			s.Require().NoError(err)

			// the receipt is not indexed yet when the registration confirms
			chainHash := "0xregistration-" + inv.ID
			txn, err := s.transactions.ConfirmTransaction(s.GetContext(), *inv.TxHash, ConfirmParams{ChainTxHash: chainHash})
			s.Require().NoError(err)
			s.Equal(types.TransactionStatusConfirmed, txn.TransactionStatus)
			s.Nil(txn.Metadata.ContractInvoiceID)

			_, err = s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
			s.True(ierr.IsIllegalState(err))

			txn, err = s.transactions.ConfirmTransaction(s.GetContext(), *inv.TxHash, tt.confirm(chainHash))
			s.Require().NoError(err)
			s.Equal(tt.want, lo.FromPtr(txn.Metadata.ContractInvoiceID))

			stored, err := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
			s.Require().NoError(err)
			s.Equal(tt.want, lo.FromPtr(stored.Metadata.ContractInvoiceID))
			s.Equal(chainHash, stored.Metadata.ChainTxHash)

			pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
			s.Require().NoError(err)
			s.Equal(types.InvoiceStatusPending, pay.InvoiceStatus)
		})
	}
}

func (s *TransactionServiceSuite) TestSecondConfirmedPaymentIsRejected() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("30", 61)

	first, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	second, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	s.NotEqual(first.SubmittedHash, second.SubmittedHash)

	_, err = s.transactions.ConfirmTransaction(s.GetContext(), first.SubmittedHash, ConfirmParams{ChainTxHash: "0xfirst"})
	s.Require().NoError(err)

	txn, err := s.transactions.ConfirmTransaction(s.GetContext(), second.SubmittedHash, ConfirmParams{ChainTxHash: "0xsecond"})
	s.Require().NoError(err, "a duplicate payment is handled, not retried")
	s.Equal(types.TransactionStatusPending, txn.TransactionStatus)

	confirmed, err := s.GetStores().TransactionRepo.Count(s.GetContext(), &types.TransactionFilter{
		QueryFilter:       types.NewNoLimitQueryFilter(),
		TransactionType:   []types.TransactionType{types.TransactionTypeInvoicePaid},
		TransactionStatus: []types.TransactionStatus{types.TransactionStatusConfirmed},
	})
	s.Require().NoError(err)
	s.Equal(1, confirmed)

	paid, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal("0xfirst", lo.FromPtr(paid.PaymentTxHash))

	owner, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.TestOwnerID)
	s.Require().NoError(err)
	s.Equal(1, owner.TotalPaidInvoices)
}
