package service

import (
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// serviceSuite wires every service over the in-memory test doubles
type serviceSuite struct {
	testutil.BaseServiceTestSuite
	invoices       InvoiceService
	transactions   TransactionService
	reconciliation ReconciliationService
	payments       PaymentService
	stats          StatsService
	wallets        WalletService
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupServices()
}

func (s *serviceSuite) params() ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetSentry(),
		stores.InvoiceRepo,
		stores.TransactionRepo,
		stores.UserRepo,
		stores.PaymentLinkRepo,
		stores.WebhookEventRepo,
		s.GetChain(),
		s.GetRelay(),
		s.GetCache(),
		s.GetNotifier(),
		s.GetQueue(),
	)
}

func (s *serviceSuite) setupServices() {
	params := s.params()
	s.invoices = NewInvoiceService(params)
	s.transactions = NewTransactionService(params, s.invoices)
	s.reconciliation = NewReconciliationService(params, s.invoices, s.transactions)
	s.payments = NewPaymentService(params)
	s.stats = NewStatsService(params)
	s.wallets = NewWalletService(params)
}

func (s *serviceSuite) emailInvoiceRequest(amount string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		ClientName:  "Acme Corp",
		ClientEmail: "billing@acme.test",
		Title:       "Website redesign",
		Amount:      lo.ToPtr(decimal.RequireFromString(amount)),
		DueDate:     s.GetNow().Add(7 * 24 * time.Hour),
	}
}

func (s *serviceSuite) walletInvoiceRequest(amount string) dto.CreateInvoiceRequest {
	req := s.emailInvoiceRequest(amount)
	req.ClientWallet = testutil.TestClientWallet
	return req
}

// createRegisteredInvoice creates a wallet client invoice and confirms its registration with contractID
func (s *serviceSuite) createRegisteredInvoice(amount string, contractID int64) *dto.InvoiceResponse {
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.walletInvoiceRequest(amount))
	s.Require().NoError(err)

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Require().True(inv.IsOnChain)

	_, err = s.transactions.ConfirmTransaction(s.GetContext(), *inv.TxHash, ConfirmParams{
		BlockNumber:       lo.ToPtr(int64(100)),
		ContractInvoiceID: lo.ToPtr(contractID),
	})
	s.Require().NoError(err)

	out, err := s.invoices.GetInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Require().NotNil(out.ContractInvoiceID)
	return out
}

func (s *serviceSuite) paymentRequest() dto.InitiatePaymentRequest {
	return dto.InitiatePaymentRequest{
		PayerWallet: testutil.TestClientWallet,
		Signature:   "0xsigned",
		UserOpHash:  "0xclientophash",
	}
}

func (s *serviceSuite) countTransactions(txType types.TransactionType) int {
	count, err := s.GetStores().TransactionRepo.Count(s.GetContext(), &types.TransactionFilter{
		QueryFilter:     types.NewNoLimitQueryFilter(),
		TransactionType: []types.TransactionType{txType},
	})
	s.Require().NoError(err)
	return count
}
