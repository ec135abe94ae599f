package testutil

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/settlehq/settle/internal/chain"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
)

const (
	FakeInvoiceContract = "0x1111111111111111111111111111111111111111"
	FakeTokenContract   = "0x2222222222222222222222222222222222222222"
)

// FakeChainClient is an in-memory chain.Client.
// Call descriptors carry readable payloads so tests can assert on what was built.
type FakeChainClient struct {
	mu       sync.Mutex
	invoices map[int64]*chain.OnChainInvoice
	tokens   map[string]*big.Int
	natives  map[string]*big.Int
	receipts map[string]int64

	// Err is returned by every call when set
	Err error
	// Registered collects every register request in order
	Registered []*chain.RegisterRequest
}

var _ chain.Client = (*FakeChainClient)(nil)

func NewFakeChainClient() *FakeChainClient {
	return &FakeChainClient{
		invoices: make(map[int64]*chain.OnChainInvoice),
		tokens:   make(map[string]*big.Int),
		natives:  make(map[string]*big.Int),
		receipts: make(map[string]int64),
	}
}

// SetInvoice seeds the contract's view of an invoice
func (c *FakeChainClient) SetInvoice(id int64, inv *chain.OnChainInvoice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invoices[id] = inv
}

// SetRegistration makes the receipt of txHash carry a registration of contract invoice id
func (c *FakeChainClient) SetRegistration(txHash string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[strings.ToLower(txHash)] = id
}

// SetBalances seeds the token and native balance of address
func (c *FakeChainClient) SetBalances(address string, token, native *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[strings.ToLower(address)] = token
	c.natives[strings.ToLower(address)] = native
}

func (c *FakeChainClient) GetInvoice(_ context.Context, id int64) (*chain.OnChainInvoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	inv, ok := c.invoices[id]
	if !ok {
		return nil, ierr.NewError("invoice not registered").
			WithHintf("Contract invoice %d does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	out := *inv
	return &out, nil
}

func (c *FakeChainClient) BuildRegisterTx(_ context.Context, req *chain.RegisterRequest) (*chain.TxDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.Registered = append(c.Registered, req)
	return &chain.TxDescriptor{
		To:   FakeInvoiceContract,
		Data: []byte("register:" + req.Amount.String() + ":" + req.URI),
	}, nil
}

func (c *FakeChainClient) BuildApproveTx(_ context.Context, amount *big.Int) (*chain.TxDescriptor, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return &chain.TxDescriptor{
		To:   FakeTokenContract,
		Data: []byte("approve:" + amount.String()),
	}, nil
}

func (c *FakeChainClient) BuildPayTx(_ context.Context, id *int64) (*chain.TxDescriptor, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if id == nil {
		return nil, ierr.NewError("invoice is not registered on chain").
			WithHint("Wait for the invoice registration to be confirmed before paying").
			Mark(ierr.ErrIllegalState)
	}
	return &chain.TxDescriptor{
		To:   FakeInvoiceContract,
		Data: []byte("pay"),
	}, nil
}

func (c *FakeChainClient) GetTokenBalance(_ context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if b, ok := c.tokens[strings.ToLower(address)]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (c *FakeChainClient) GetNativeBalance(_ context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if b, ok := c.natives[strings.ToLower(address)]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (c *FakeChainClient) GetRegisteredInvoiceID(_ context.Context, txHash string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	id, ok := c.receipts[strings.ToLower(txHash)]
	if !ok {
		return 0, ierr.NewError("invoice registration event not found").
			WithHintf("Transaction %s did not register an invoice", txHash).
			Mark(ierr.ErrNotFound)
	}
	return id, nil
}

func (c *FakeChainClient) TokenDecimals() int32 {
	return types.DefaultTokenDecimals
}
