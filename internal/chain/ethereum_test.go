package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInvoiceContract = "0x1111111111111111111111111111111111111111"
	testTokenContract   = "0x2222222222222222222222222222222222222222"
	testFreelancer      = "0x3333333333333333333333333333333333333333"
	testClient          = "0x4444444444444444444444444444444444444444"
)

type fakeBackend struct {
	calls   []ethereum.CallMsg
	result  []byte
	balance *big.Int
	receipt *gethtypes.Receipt
	err     error
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.calls = append(b.calls, msg)
	return b.result, b.err
}

func (b *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return b.balance, b.err
}

func (b *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.receipt == nil {
		return nil, ethereum.NotFound
	}
	return b.receipt, nil
}

func newTestClient(b Backend) *EthereumClient {
	cfg := config.GetDefaultConfig()
	cfg.Chain.InvoiceContractAddress = testInvoiceContract
	cfg.Chain.TokenContractAddress = testTokenContract
	return NewEthereumClientWithBackend(b, cfg, logger.NewNopLogger(), nil)
}

func TestGetInvoice(t *testing.T) {
	due := time.Date(2030, time.January, 2, 0, 0, 0, 0, time.UTC)
	packed, err := invoiceABI.Methods["getInvoice"].Outputs.Pack(
		common.HexToAddress(testFreelancer),
		common.HexToAddress(testClient),
		big.NewInt(100500000),
		big.NewInt(due.Unix()),
		true,
		"ipfs://invoice",
	)
	require.NoError(t, err)

	backend := &fakeBackend{result: packed}
	client := newTestClient(backend)

	inv, err := client.GetInvoice(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, testFreelancer, inv.Freelancer)
	assert.Equal(t, testClient, inv.Client)
	assert.Equal(t, int64(100500000), inv.Amount.Int64())
	assert.True(t, inv.IsPaid)
	assert.True(t, due.Equal(inv.DueDate))
	assert.Equal(t, "ipfs://invoice", inv.URI)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, common.HexToAddress(testInvoiceContract), *backend.calls[0].To)
	assert.Equal(t, invoiceABI.Methods["getInvoice"].ID, backend.calls[0].Data[:4])
}

func TestGetInvoiceRPCFailure(t *testing.T) {
	client := newTestClient(&fakeBackend{err: errors.New("connection refused")})

	_, err := client.GetInvoice(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, ierr.IsDependencyUnavailable(err))
}

func TestBuildPayTxRequiresContractID(t *testing.T) {
	client := newTestClient(&fakeBackend{})

	_, err := client.BuildPayTx(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	id := int64(9)
	tx, err := client.BuildPayTx(context.Background(), &id)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testInvoiceContract).Hex(), tx.To)

	args, err := invoiceABI.Methods["payInvoice"].Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(9), args[0].(*big.Int).Int64())
	assert.Equal(t, common.HexToAddress(testTokenContract), args[1].(common.Address))
}

func TestBuildApproveAndBatch(t *testing.T) {
	client := newTestClient(&fakeBackend{})
	ctx := context.Background()

	approve, err := client.BuildApproveTx(ctx, big.NewInt(5000000))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testTokenContract).Hex(), approve.To)

	id := int64(3)
	pay, err := client.BuildPayTx(ctx, &id)
	require.NoError(t, err)

	data, err := BatchCallData(approve, pay)
	require.NoError(t, err)

	method := walletABI.Methods["executeBatch"]
	assert.Equal(t, method.ID, data[:4])

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	dest := args[0].([]common.Address)
	funcs := args[1].([][]byte)
	require.Len(t, dest, 2)
	assert.Equal(t, common.HexToAddress(testTokenContract), dest[0])
	assert.Equal(t, common.HexToAddress(testInvoiceContract), dest[1])
	assert.Equal(t, approve.Data, funcs[0])
	assert.Equal(t, pay.Data, funcs[1])

	_, err = BatchCallData()
	assert.Error(t, err)
}

func TestBalances(t *testing.T) {
	packed, err := tokenABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(42000000))
	require.NoError(t, err)

	client := newTestClient(&fakeBackend{result: packed, balance: big.NewInt(7)})
	ctx := context.Background()

	balance, err := client.GetTokenBalance(ctx, testClient)
	require.NoError(t, err)
	assert.Equal(t, int64(42000000), balance.Int64())

	native, err := client.GetNativeBalance(ctx, testClient)
	require.NoError(t, err)
	assert.Equal(t, int64(7), native.Int64())

	_, err = client.GetTokenBalance(ctx, "0x123")
	assert.True(t, ierr.IsValidation(err))

	empty := newTestClient(&fakeBackend{})
	zero, err := empty.GetTokenBalance(ctx, testClient)
	require.NoError(t, err)
	assert.Equal(t, 0, zero.Sign())
}

func invoiceCreatedLog(contract string, id int64) *gethtypes.Log {
	event := invoiceABI.Events["InvoiceCreated"]
	amount, _ := event.Inputs.NonIndexed().Pack(big.NewInt(100500000))
	return &gethtypes.Log{
		Address: common.HexToAddress(contract),
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(common.HexToAddress(testFreelancer).Bytes()),
		},
		Data: amount,
	}
}

func TestGetRegisteredInvoiceID(t *testing.T) {
	ctx := context.Background()
	txHash := "0x" + strings.Repeat("ab", 32)

	client := newTestClient(&fakeBackend{receipt: &gethtypes.Receipt{
		Status: gethtypes.ReceiptStatusSuccessful,
		Logs: []*gethtypes.Log{
			// same event emitted by another contract is ignored
			invoiceCreatedLog(testTokenContract, 99),
			invoiceCreatedLog(testInvoiceContract, 42),
		},
	}})
	id, err := client.GetRegisteredInvoiceID(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	noEvent := newTestClient(&fakeBackend{receipt: &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}})
	_, err = noEvent.GetRegisteredInvoiceID(ctx, txHash)
	assert.True(t, ierr.IsNotFound(err))

	pending := newTestClient(&fakeBackend{})
	_, err = pending.GetRegisteredInvoiceID(ctx, txHash)
	assert.True(t, ierr.IsNotFound(err))

	down := newTestClient(&fakeBackend{err: errors.New("connection refused")})
	_, err = down.GetRegisteredInvoiceID(ctx, txHash)
	assert.True(t, ierr.IsDependencyUnavailable(err))

	_, err = client.GetRegisteredInvoiceID(ctx, "0x1234")
	assert.True(t, ierr.IsValidation(err))
}

func TestUnavailable(t *testing.T) {
	var c Client = NewUnavailable()
	_, err := c.GetInvoice(context.Background(), 1)
	assert.True(t, ierr.IsDependencyUnavailable(err))
	_, err = c.BuildApproveTx(context.Background(), big.NewInt(1))
	assert.True(t, ierr.IsDependencyUnavailable(err))
}
