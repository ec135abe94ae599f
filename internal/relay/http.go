package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/httpclient"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/metrics"
	"github.com/settlehq/settle/internal/sentry"
)

// bundler JSON-RPC error codes that mean the operation itself was rejected
var rejectionCodes = map[int]bool{
	-32602: true,
	-32500: true,
	-32501: true,
	-32502: true,
	-32503: true,
	-32504: true,
	-32505: true,
	-32506: true,
	-32507: true,
}

// HTTPClient implements Client against a paymaster REST endpoint and a bundler JSON-RPC endpoint
type HTTPClient struct {
	http         httpclient.Client
	paymasterURL string
	bundlerURL   string
	entryPoint   string
	chainID      int64
	sentry       *sentry.Service
	logger       *logger.Logger
	requestID    atomic.Int64
}

// NewHTTPClient creates a relay client on top of the given http client
func NewHTTPClient(http httpclient.Client, cfg *config.Configuration, sentry *sentry.Service, logger *logger.Logger) *HTTPClient {
	return &HTTPClient{
		http:         http,
		paymasterURL: strings.TrimRight(cfg.Relay.PaymasterURL, "/"),
		bundlerURL:   strings.TrimRight(cfg.Relay.BundlerURL, "/"),
		entryPoint:   cfg.Relay.EntryPointAddress,
		chainID:      cfg.Chain.ChainID,
		sentry:       sentry,
		logger:       logger,
	}
}

type sponsorRequest struct {
	UserOp           *UserOperation `json:"userOp"`
	PaymasterAndData string         `json:"paymasterAndData"`
	ChainID          int64          `json:"chainId"`
	EntryPoint       string         `json:"entryPoint"`
}

type sponsorResponse struct {
	SponsoredUserOp *UserOperation `json:"sponsoredUserOp"`
}

func (c *HTTPClient) Sponsor(ctx context.Context, op *UserOperation, paymasterData string) (sponsored *UserOperation, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRelayRequest("sponsor", start, err) }()

	span, ctx := c.sentry.StartRelaySpan(ctx, "paymaster.sponsor", map[string]interface{}{
		"sender": op.Sender,
	})
	if span != nil {
		defer span.Finish()
	}

	body, err := json.Marshal(sponsorRequest{
		UserOp:           op,
		PaymasterAndData: paymasterData,
		ChainID:          c.chainID,
		EntryPoint:       c.entryPoint,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode sponsorship request").
			Mark(ierr.ErrSystem)
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method: "POST",
		URL:    c.paymasterURL + "/sponsor",
		Body:   body,
	})
	if err != nil {
		return nil, c.wrapTransportError(err, "paymaster", "Gas sponsorship request failed")
	}

	var out sponsorResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Paymaster returned an unreadable response").
			Mark(ierr.ErrRelayUnavailable)
	}
	if out.SponsoredUserOp == nil {
		return nil, ierr.NewError("paymaster did not sponsor the operation").
			WithHint("Gas sponsorship was declined").
			WithReportableDetails(map[string]any{
				"sender": op.Sender,
			}).
			Mark(ierr.ErrRelayUnavailable)
	}

	c.logger.Debugw("operation sponsored", "sender", op.Sender)
	return out.SponsoredUserOp, nil
}

func (c *HTTPClient) Submit(ctx context.Context, op *UserOperation) (opHash string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRelayRequest("submit", start, err) }()

	span, ctx := c.sentry.StartRelaySpan(ctx, "bundler.eth_sendUserOperation", map[string]interface{}{
		"sender": op.Sender,
	})
	if span != nil {
		defer span.Finish()
	}

	var result string
	if err := c.call(ctx, "eth_sendUserOperation", []interface{}{op, c.entryPoint}, &result); err != nil {
		return "", err
	}
	if result == "" {
		return "", ierr.NewError("bundler returned no operation hash").
			WithHint("The bundler did not accept the operation").
			Mark(ierr.ErrRelayUnavailable)
	}

	c.logger.Infow("operation submitted to bundler",
		"sender", op.Sender,
		"op_hash", result,
	)
	return result, nil
}

type userOpReceipt struct {
	UserOpHash    string `json:"userOpHash"`
	Success       bool   `json:"success"`
	Reason        string `json:"reason"`
	ActualGasUsed string `json:"actualGasUsed"`
	Receipt       struct {
		TransactionHash string `json:"transactionHash"`
		BlockNumber     string `json:"blockNumber"`
	} `json:"receipt"`
}

func (c *HTTPClient) Status(ctx context.Context, opHash string) (status *OpStatus, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRelayRequest("status", start, err) }()

	var receipt *userOpReceipt
	if err := c.call(ctx, "eth_getUserOperationReceipt", []interface{}{opHash}, &receipt); err != nil {
		return nil, err
	}

	if receipt == nil {
		// not mined yet, check that the bundler knows the operation at all
		var known json.RawMessage
		if err := c.call(ctx, "eth_getUserOperationByHash", []interface{}{opHash}, &known); err != nil {
			return nil, err
		}
		state := OpStatePending
		if len(known) == 0 || string(known) == "null" {
			state = OpStateNotFound
		}
		return &OpStatus{OpHash: opHash, Status: state}, nil
	}

	status = &OpStatus{
		OpHash: opHash,
		Status: OpStateSuccess,
		TxHash: receipt.Receipt.TransactionHash,
		Reason: receipt.Reason,
	}
	if !receipt.Success {
		status.Status = OpStateReverted
	}
	if n, err := hexutil.DecodeUint64(receipt.Receipt.BlockNumber); err == nil {
		block := int64(n)
		status.BlockNumber = &block
	}
	if n, err := hexutil.DecodeUint64(receipt.ActualGasUsed); err == nil {
		gas := int64(n)
		status.GasUsed = &gas
	}
	return status, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one bundler JSON-RPC request and decodes the result into out
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode bundler request").
			Mark(ierr.ErrSystem)
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method: "POST",
		URL:    c.bundlerURL + "/rpc",
		Body:   body,
	})
	if err != nil {
		return c.wrapTransportError(err, "bundler", "Bundler request failed")
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body, &rpcResp); err != nil {
		return ierr.WithError(err).
			WithHint("Bundler returned an unreadable response").
			Mark(ierr.ErrRelayUnavailable)
	}

	if rpcResp.Error != nil {
		c.logger.Warnw("bundler rejected request",
			"method", method,
			"code", rpcResp.Error.Code,
			"message", rpcResp.Error.Message,
		)
		b := ierr.NewError(rpcResp.Error.Message).
			WithHintf("Bundler error: %s", rpcResp.Error.Message).
			WithReportableDetails(map[string]any{
				"method": method,
				"code":   rpcResp.Error.Code,
			})
		if rejectionCodes[rpcResp.Error.Code] {
			return b.Mark(ierr.ErrValidation)
		}
		return b.Mark(ierr.ErrRelayUnavailable)
	}

	if len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return ierr.WithError(err).
			WithHint("Bundler returned an unexpected result").
			Mark(ierr.ErrRelayUnavailable)
	}
	return nil
}

func (c *HTTPClient) wrapTransportError(err error, service, hint string) error {
	c.logger.Errorw("relay request failed",
		"service", service,
		"error", err,
	)
	if httpErr, ok := httpclient.IsHTTPError(err); ok && !httpErr.IsServerError() {
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]any{
				"service":     service,
				"status_code": httpErr.StatusCode,
			}).
			Mark(ierr.ErrValidation)
	}
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"service": service,
		}).
		Mark(ierr.ErrRelayUnavailable)
}
