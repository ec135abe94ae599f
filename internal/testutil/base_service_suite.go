package testutil

import (
	"context"
	"time"

	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/paymentlink"
	"github.com/settlehq/settle/internal/domain/transaction"
	"github.com/settlehq/settle/internal/domain/user"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	TestOwnerWallet       = "0x3333333333333333333333333333333333333333"
	TestOwnerSmartAccount = "0x4444444444444444444444444444444444444444"
	TestClientWallet      = "0x5555555555555555555555555555555555555555"
	TestWebhookSecret     = "test-webhook-secret"
	TestPaymasterAddress  = "0x6666666666666666666666666666666666666666"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	InvoiceRepo      *InMemoryInvoiceStore
	TransactionRepo  *InMemoryTransactionStore
	UserRepo         *InMemoryUserStore
	PaymentLinkRepo  *InMemoryPaymentLinkStore
	WebhookEventRepo *InMemoryWebhookEventStore
}

var (
	_ invoice.Repository      = (*InMemoryInvoiceStore)(nil)
	_ transaction.Repository  = (*InMemoryTransactionStore)(nil)
	_ user.Repository         = (*InMemoryUserStore)(nil)
	_ paymentlink.Repository  = (*InMemoryPaymentLinkStore)(nil)
	_ webhookevent.Repository = (*InMemoryWebhookEventStore)(nil)
)

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	db       *MockPostgresClient
	logger   *logger.Logger
	config   *config.Configuration
	cache    cache.Cache
	chain    *FakeChainClient
	relay    *FakeRelayClient
	notifier *InMemoryNotifier
	queue    *InlineQueue
	sentry   *sentry.Service
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Webhook.Secret = TestWebhookSecret
	cfg.Chain.InvoiceContractAddress = FakeInvoiceContract
	cfg.Chain.TokenContractAddress = FakeTokenContract
	cfg.Chain.ExplorerURL = "https://explorer.test"
	cfg.Relay.PaymasterAddress = TestPaymasterAddress
	cfg.Reconciliation.ReplayBatchSize = 10
	cfg.Sentry.Enabled = false
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.setupStores()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		TransactionRepo:  NewInMemoryTransactionStore(),
		UserRepo:         NewInMemoryUserStore(),
		PaymentLinkRepo:  NewInMemoryPaymentLinkStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache(s.config)
	s.chain = NewFakeChainClient()
	s.relay = NewFakeRelayClient()
	s.notifier = NewInMemoryNotifier()
	s.queue = NewInlineQueue()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.InvoiceRepo.Clear()
	s.stores.TransactionRepo.Clear()
	s.stores.UserRepo.Clear()
	s.stores.PaymentLinkRepo.Clear()
	s.stores.WebhookEventRepo.Clear()
	s.notifier.Clear()
}

// SeedOwner stores the default owner with a wallet and a smart account
func (s *BaseServiceTestSuite) SeedOwner() *user.User {
	return s.SeedUser(TestOwnerID, TestOwnerWallet, TestOwnerSmartAccount)
}

func (s *BaseServiceTestSuite) SeedUser(id, wallet, smartAccount string) *user.User {
	u := &user.User{
		ID:                  id,
		Email:               id + "@example.com",
		Name:                "Test Owner",
		WalletAddress:       wallet,
		SmartAccountAddress: smartAccount,
		TotalEarned:         decimal.Zero,
		BaseModel:           types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.UserRepo.Create(s.ctx, u))
	return u
}

// ContextFor returns a request context authenticated as userID
func (s *BaseServiceTestSuite) ContextFor(userID string) context.Context {
	return types.SetUserID(s.ctx, userID)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetChain() *FakeChainClient {
	return s.chain
}

func (s *BaseServiceTestSuite) GetRelay() *FakeRelayClient {
	return s.relay
}

func (s *BaseServiceTestSuite) GetNotifier() *InMemoryNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetQueue() *InlineQueue {
	return s.queue
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}
