package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StatsServiceSuite struct {
	serviceSuite
}

func TestStatsService(t *testing.T) {
	suite.Run(t, new(StatsServiceSuite))
}

func (s *StatsServiceSuite) TestDashboardStats() {
	s.SeedOwner()

	empty, err := s.stats.GetDashboardStats(s.GetContext())
	s.Require().NoError(err)
	s.Zero(empty.TotalInvoices)
	s.True(empty.SuccessRate.IsZero())

	inv := s.createRegisteredInvoice("100", 1)
	pay, err := s.invoices.InitiatePayment(s.GetContext(), inv.ID, s.paymentRequest())
	s.Require().NoError(err)
	_, err = s.transactions.ConfirmTransaction(s.GetContext(), pay.SubmittedHash, ConfirmParams{
		GasUsed: lo.ToPtr(int64(2_000_000_000)),
	})
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		req := s.emailInvoiceRequest("25")
		req.Send = true
		_, err := s.invoices.CreateInvoice(s.GetContext(), req)
		s.Require().NoError(err)
	}

	stats, err := s.stats.GetDashboardStats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, stats.TotalInvoices)
	s.Equal(1, stats.PaidInvoices)
	s.True(decimal.NewFromInt(100).Equal(stats.TotalPaid), "paid %s", stats.TotalPaid)
	s.True(decimal.NewFromInt(50).Equal(stats.TotalPending), "pending %s", stats.TotalPending)
	s.Equal("33.3", stats.SuccessRate.String())
	// 2e9 gas at the default 1e-9 USD per unit
	s.Equal("2", stats.GasSavedUSD.String())

	// served from cache until an invoice changes
	cached, err := s.stats.GetDashboardStats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(stats.TotalInvoices, cached.TotalInvoices)

	_, err = s.invoices.CreateInvoice(s.GetContext(), s.emailInvoiceRequest("5"))
	s.Require().NoError(err)
	fresh, err := s.stats.GetDashboardStats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(4, fresh.TotalInvoices)
}

func (s *StatsServiceSuite) TestRecentActivity() {
	s.SeedOwner()
	inv := s.createRegisteredInvoice("100", 2)
	s.Require().NoError(s.invoices.MarkPaid(s.GetContext(), inv.ID, "0xpaid"))

	activity, err := s.stats.GetRecentActivity(s.GetContext())
	s.Require().NoError(err)

	kinds := lo.CountValuesBy(activity.Items, func(item *dto.ActivityItem) dto.ActivityKind {
		return item.Kind
	})
	s.Equal(1, kinds[dto.ActivityInvoiceCreated])
	s.Equal(1, kinds[dto.ActivityInvoicePaid])
	s.Equal(1, kinds[dto.ActivityTransaction])

	for i := 1; i < len(activity.Items); i++ {
		s.False(activity.Items[i].OccurredAt.After(activity.Items[i-1].OccurredAt), "newest first")
	}

	other, err := s.stats.GetRecentActivity(s.ContextFor("user_01OTHER"))
	s.Require().NoError(err)
	s.Empty(other.Items)
}
