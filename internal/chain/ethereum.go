package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/types"
)

// Backend is the subset of the node RPC used by the client
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// EthereumClient talks to an EVM node over JSON-RPC
type EthereumClient struct {
	backend         Backend
	invoiceContract common.Address
	tokenContract   common.Address
	decimals        int32
	timeout         time.Duration
	sentry          *sentry.Service
	logger          *logger.Logger
}

// NewEthereumClient dials the configured RPC endpoint
func NewEthereumClient(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) (*EthereumClient, error) {
	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to chain RPC").
			WithReportableDetails(map[string]any{
				"chain_id": cfg.Chain.ChainID,
			}).
			Mark(ierr.ErrChainUnavailable)
	}

	logger.Infow("connected to chain",
		"chain_id", cfg.Chain.ChainID,
		"invoice_contract", cfg.Chain.InvoiceContractAddress,
		"token_contract", cfg.Chain.TokenContractAddress,
	)

	return NewEthereumClientWithBackend(client, cfg, logger, sentry), nil
}

// NewEthereumClientWithBackend builds a client on top of an existing backend
func NewEthereumClientWithBackend(backend Backend, cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) *EthereumClient {
	decimals := cfg.Chain.TokenDecimals
	if decimals == 0 {
		decimals = types.DefaultTokenDecimals
	}
	return &EthereumClient{
		backend:         backend,
		invoiceContract: common.HexToAddress(cfg.Chain.InvoiceContractAddress),
		tokenContract:   common.HexToAddress(cfg.Chain.TokenContractAddress),
		decimals:        decimals,
		timeout:         cfg.Chain.Timeout,
		sentry:          sentry,
		logger:          logger,
	}
}

func (c *EthereumClient) TokenDecimals() int32 {
	return c.decimals
}

func (c *EthereumClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *EthereumClient) GetInvoice(ctx context.Context, contractInvoiceID int64) (*OnChainInvoice, error) {
	data, err := invoiceABI.Pack("getInvoice", big.NewInt(contractInvoiceID))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode getInvoice call").
			Mark(ierr.ErrSystem)
	}

	span, ctx := c.sentry.StartChainSpan(ctx, "eth_call.getInvoice", map[string]interface{}{
		"contract_invoice_id": contractInvoiceID,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.invoiceContract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read invoice from chain").
			WithReportableDetails(map[string]any{
				"contract_invoice_id": contractInvoiceID,
			}).
			Mark(ierr.ErrChainUnavailable)
	}
	if len(result) == 0 {
		return nil, ierr.NewError("invoice not found on chain").
			WithHintf("Contract invoice %d does not exist", contractInvoiceID).
			Mark(ierr.ErrNotFound)
	}

	var out struct {
		Freelancer common.Address
		Client     common.Address
		Amount     *big.Int
		DueDate    *big.Int
		IsPaid     bool
		Uri        string
	}
	if err := invoiceABI.UnpackIntoInterface(&out, "getInvoice", result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode invoice from chain").
			Mark(ierr.ErrChainUnavailable)
	}

	c.logger.Debugw("read invoice from chain",
		"contract_invoice_id", contractInvoiceID,
		"is_paid", out.IsPaid,
	)

	return &OnChainInvoice{
		Freelancer: strings.ToLower(out.Freelancer.Hex()),
		Client:     strings.ToLower(out.Client.Hex()),
		Amount:     out.Amount,
		DueDate:    time.Unix(out.DueDate.Int64(), 0).UTC(),
		IsPaid:     out.IsPaid,
		URI:        out.Uri,
	}, nil
}

func (c *EthereumClient) BuildRegisterTx(ctx context.Context, req *RegisterRequest) (*TxDescriptor, error) {
	if req == nil || req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ierr.NewError("registration amount must be positive").
			WithHint("Invoice amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	data, err := invoiceABI.Pack("registerInvoice", req.Amount, big.NewInt(req.DueDate.Unix()), req.URI)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode registerInvoice call").
			Mark(ierr.ErrSystem)
	}

	return &TxDescriptor{
		To:    c.invoiceContract.Hex(),
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}

func (c *EthereumClient) BuildApproveTx(ctx context.Context, amount *big.Int) (*TxDescriptor, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ierr.NewError("approval amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	data, err := tokenABI.Pack("approve", c.invoiceContract, amount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode approve call").
			Mark(ierr.ErrSystem)
	}

	return &TxDescriptor{
		To:    c.tokenContract.Hex(),
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}

func (c *EthereumClient) BuildPayTx(ctx context.Context, contractInvoiceID *int64) (*TxDescriptor, error) {
	if contractInvoiceID == nil {
		return nil, ierr.NewError("invoice is not registered on chain yet").
			WithHint("The invoice registration has not been confirmed, try again shortly").
			Mark(ierr.ErrValidation)
	}

	data, err := invoiceABI.Pack("payInvoice", big.NewInt(*contractInvoiceID), c.tokenContract)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode payInvoice call").
			Mark(ierr.ErrSystem)
	}

	return &TxDescriptor{
		To:    c.invoiceContract.Hex(),
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}

func (c *EthereumClient) GetTokenBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, ierr.NewError("invalid wallet address").
			WithHint("Wallet address must be a 0x prefixed 40 character hex string").
			Mark(ierr.ErrValidation)
	}

	data, err := tokenABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode balanceOf call").
			Mark(ierr.ErrSystem)
	}

	span, ctx := c.sentry.StartChainSpan(ctx, "eth_call.balanceOf", map[string]interface{}{
		"address": address,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.tokenContract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read token balance").
			Mark(ierr.ErrChainUnavailable)
	}

	// an address that never held the token returns no data
	if len(result) == 0 {
		return big.NewInt(0), nil
	}

	var balance *big.Int
	if err := tokenABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode token balance").
			Mark(ierr.ErrChainUnavailable)
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	return balance, nil
}

func (c *EthereumClient) GetNativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, ierr.NewError("invalid wallet address").
			WithHint("Wallet address must be a 0x prefixed 40 character hex string").
			Mark(ierr.ErrValidation)
	}

	span, ctx := c.sentry.StartChainSpan(ctx, "eth_getBalance", map[string]interface{}{
		"address": address,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	balance, err := c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read native balance").
			Mark(ierr.ErrChainUnavailable)
	}
	return balance, nil
}

func (c *EthereumClient) GetRegisteredInvoiceID(ctx context.Context, txHash string) (int64, error) {
	if len(common.FromHex(txHash)) != common.HashLength {
		return 0, ierr.NewError("invalid transaction hash").
			WithHint("Transaction hash must be a 0x prefixed 64 character hex string").
			Mark(ierr.ErrValidation)
	}

	span, ctx := c.sentry.StartChainSpan(ctx, "eth_getTransactionReceipt", map[string]interface{}{
		"tx_hash": txHash,
	})
	if span != nil {
		defer span.Finish()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return 0, ierr.NewError("transaction receipt not found").
			WithHintf("Transaction %s is not mined yet", txHash).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to read transaction receipt").
			WithReportableDetails(map[string]any{
				"tx_hash": txHash,
			}).
			Mark(ierr.ErrChainUnavailable)
	}

	event := invoiceABI.Events["InvoiceCreated"]
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	for _, entry := range receipt.Logs {
		if entry.Address != c.invoiceContract || len(entry.Topics) != len(indexed)+1 || entry.Topics[0] != event.ID {
			continue
		}

		fields := make(map[string]interface{})
		if err := abi.ParseTopicsIntoMap(fields, indexed, entry.Topics[1:]); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to decode invoice registration event").
				Mark(ierr.ErrChainUnavailable)
		}

		id, ok := fields["invoiceId"].(*big.Int)
		if !ok || !id.IsInt64() {
			return 0, ierr.NewError("invoice registration event has an invalid id").
				WithHint("Failed to decode invoice registration event").
				WithReportableDetails(map[string]any{
					"tx_hash": txHash,
				}).
				Mark(ierr.ErrChainUnavailable)
		}

		c.logger.Debugw("read invoice registration from receipt",
			"tx_hash", txHash,
			"contract_invoice_id", id.Int64(),
		)
		return id.Int64(), nil
	}

	return 0, ierr.NewError("invoice registration event not found").
		WithHintf("Transaction %s did not register an invoice", txHash).
		WithReportableDetails(map[string]any{
			"tx_hash": txHash,
		}).
		Mark(ierr.ErrNotFound)
}
