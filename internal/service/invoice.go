package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/chain"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/metrics"
	"github.com/settlehq/settle/internal/notification"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/worker"
)

// InvoiceService owns the invoice state machine:
// draft -> sent -> pending -> paid, sent|pending -> overdue and draft|sent -> cancelled.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	SendReminder(ctx context.Context, id string) error

	// GetInvoiceForPayment is the public payment page lookup, it counts the visit
	GetInvoiceForPayment(ctx context.Context, linkID string) (*dto.PaymentInvoiceResponse, error)

	// RegisterOnChain submits the sponsored registration of a wallet client invoice.
	// It is a no-op when the invoice is already on chain or has no wallet client.
	RegisterOnChain(ctx context.Context, id string) error
	InitiatePayment(ctx context.Context, id string, req dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error)
	InitiatePaymentByLink(ctx context.Context, linkID string, req dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error)
	// MarkPaid settles a sent or pending invoice, repeated calls are no-ops
	MarkPaid(ctx context.Context, id string, paymentTxHash string) error
	MarkOverdue(ctx context.Context, now time.Time) ([]string, error)
	SyncFromChain(ctx context.Context, id string) (*dto.SyncResponse, error)
	SetContractInvoiceID(ctx context.Context, id string, contractInvoiceID int64) error
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) toResponse(inv *invoice.Invoice) *dto.InvoiceResponse {
	return dto.NewInvoiceResponse(inv, s.Config.PaymentLink.BaseURL, s.Config.Chain.ExplorerURL)
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	inv, err := req.ToInvoice(ctx)
	if err != nil {
		return nil, err
	}
	inv.OwnerID = ownerID
	inv.PaymentLinkID = types.GeneratePaymentLinkID()
	if req.Send {
		inv.InvoiceStatus = types.InvoiceStatusSent
		inv.SentAt = lo.ToPtr(now)
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.InvoiceRepo.GetNextInvoiceNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		if err := s.UserRepo.IncrementInvoiceCount(ctx, ownerID); err != nil {
			if !ierr.IsNotFound(err) {
				return err
			}
			s.Logger.Warnw("invoice owner has no profile, invoice counter not updated",
				"owner_id", ownerID,
				"invoice_id", inv.ID,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"invoice_status", inv.InvoiceStatus,
		"owner_id", ownerID,
	)

	s.invalidateOwnerStats(ctx, ownerID)
	s.Notifier.Notify(ctx, notification.KindInvoiceCreated, inv.ID)
	if inv.InvoiceStatus == types.InvoiceStatusSent {
		s.Notifier.Notify(ctx, notification.KindInvoiceSent, inv.ID)
	}

	if inv.HasWalletClient() {
		s.scheduleRegistration(ctx, inv.ID)
	}

	return s.toResponse(inv), nil
}

func (s *invoiceService) scheduleRegistration(ctx context.Context, id string) {
	job := &worker.Job{
		Name: "register_invoice",
		Key:  id,
		Run: func(ctx context.Context) error {
			return s.RegisterOnChain(ctx, id)
		},
	}
	if err := s.Queue.Submit(ctx, job); err != nil {
		// the invoice stays off chain until registration is triggered again
		s.Logger.Errorw("failed to schedule invoice registration",
			"invoice_id", id,
			"error", err,
		)
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.getOwnedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	filter.OwnerID = ownerID

	if err := filter.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation)
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return s.toResponse(inv)
		}),
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(time.Now().UTC()); err != nil {
		return nil, err
	}

	inv, err := s.getOwnedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if !inv.InvoiceStatus.IsEditable() {
		return nil, ierr.NewError("invoice cannot be edited").
			WithHintf("Only draft or sent invoices can be edited, invoice is %s", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     id,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrIllegalState)
	}

	req.Apply(inv)
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	inv, err := s.getOwnedInvoice(ctx, id)
	if err != nil {
		return err
	}

	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return ierr.NewError("paid invoice cannot be deleted").
			WithHint("Paid invoices are kept for the payment record").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrIllegalState)
	}

	if err := s.InvoiceRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.Infow("invoice deleted", "invoice_id", id, "invoice_status", inv.InvoiceStatus)
	s.invalidateOwnerStats(ctx, inv.OwnerID)
	return nil
}

// transition moves an owned invoice to `to`. Calling it again once the invoice reached `to` is a no-op.
func (s *invoiceService) transition(ctx context.Context, id string, to types.InvoiceStatus) (*invoice.Invoice, bool, error) {
	inv, err := s.getOwnedInvoice(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if inv.InvoiceStatus == to {
		return inv, false, nil
	}

	if !inv.InvoiceStatus.CanTransitionTo(to) {
		return nil, false, illegalTransition(inv, to)
	}

	changed, err := s.InvoiceRepo.UpdateStatus(ctx, id, []types.InvoiceStatus{inv.InvoiceStatus}, to)
	if err != nil {
		return nil, false, err
	}

	if !changed {
		// lost a race, report against the status that won
		current, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if current.InvoiceStatus == to {
			return current, false, nil
		}
		return nil, false, illegalTransition(current, to)
	}

	metrics.RecordInvoiceTransition(string(inv.InvoiceStatus), string(to))
	s.Logger.Infow("invoice status changed",
		"invoice_id", id,
		"from", inv.InvoiceStatus,
		"to", to,
	)
	s.invalidateOwnerStats(ctx, inv.OwnerID)

	updated, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func illegalTransition(inv *invoice.Invoice, to types.InvoiceStatus) error {
	return ierr.NewError("illegal invoice status transition").
		WithHintf("Invoice cannot move from %s to %s", inv.InvoiceStatus, to).
		WithReportableDetails(map[string]any{
			"invoice_id": inv.ID,
			"from":       inv.InvoiceStatus,
			"to":         to,
		}).
		Mark(ierr.ErrIllegalState)
}

func (s *invoiceService) SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, changed, err := s.transition(ctx, id, types.InvoiceStatusSent)
	if err != nil {
		return nil, err
	}
	if changed {
		s.Notifier.Notify(ctx, notification.KindInvoiceSent, id)
	}
	return s.toResponse(inv), nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, _, err := s.transition(ctx, id, types.InvoiceStatusCancelled)
	if err != nil {
		return nil, err
	}
	return s.toResponse(inv), nil
}

func (s *invoiceService) SendReminder(ctx context.Context, id string) error {
	inv, err := s.getOwnedInvoice(ctx, id)
	if err != nil {
		return err
	}

	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return ierr.NewError("invoice is already paid").
			WithHint("Reminders can only be sent for unpaid invoices").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrIllegalState)
	}

	s.Notifier.Notify(ctx, notification.KindInvoiceReminder, id)
	return nil
}

func (s *invoiceService) GetInvoiceForPayment(ctx context.Context, linkID string) (*dto.PaymentInvoiceResponse, error) {
	inv, err := s.payableByLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if _, err := s.PaymentLinkRepo.RecordAccess(ctx, inv.ID, linkID); err != nil {
		s.Logger.Warnw("failed to record payment link access",
			"invoice_id", inv.ID,
			"link_id", linkID,
			"error", err,
		)
	}

	payee := ""
	if owner, err := s.UserRepo.GetByID(ctx, inv.OwnerID); err == nil {
		payee = owner.PayoutAddress()
	}

	return dto.NewPaymentInvoiceResponse(inv, payee), nil
}

// payableByLink resolves a payment link to a sent or pending invoice
func (s *invoiceService) payableByLink(ctx context.Context, linkID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.GetByPaymentLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !inv.InvoiceStatus.IsPayable() {
		return nil, ierr.NewError("invoice is not open for payment").
			WithHint("This payment link is no longer active").
			WithReportableDetails(map[string]any{
				"link_id":        linkID,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *invoiceService) RegisterOnChain(ctx context.Context, id string) error {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if inv.IsOnChain || !inv.HasWalletClient() {
		return nil
	}

	if !inv.InvoiceStatus.IsEditable() {
		return ierr.NewError("invoice cannot be registered").
			WithHintf("Only draft or sent invoices can be registered, invoice is %s", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     id,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrIllegalState)
	}

	owner, err := s.UserRepo.GetByID(ctx, inv.OwnerID)
	if err != nil {
		return err
	}
	sender := owner.PayoutAddress()
	if sender == "" {
		return ierr.NewError("invoice owner has no wallet").
			WithHint("Connect a wallet before issuing on chain invoices").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
				"owner_id":   inv.OwnerID,
			}).
			Mark(ierr.ErrValidation)
	}

	amount, err := types.ToMinorUnits(inv.Amount, s.Chain.TokenDecimals())
	if err != nil {
		return err
	}

	call, err := s.Chain.BuildRegisterTx(ctx, &chain.RegisterRequest{
		Amount:  amount,
		DueDate: inv.DueDate,
		URI:     s.Config.PaymentLink.BaseURL + inv.PaymentLinkID,
	})
	if err != nil {
		return err
	}

	callData, err := chain.ExecuteCallData(call)
	if err != nil {
		return err
	}

	opHash, err := s.sponsorAndSubmit(ctx, relay.NewUserOperation(sender, hexutil.Encode(callData), ""))
	if err != nil {
		return err
	}

	var marked bool
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		marked, err = s.InvoiceRepo.MarkOnChain(ctx, id, opHash)
		if err != nil || !marked {
			return err
		}

		_, err = s.recordTransaction(ctx, &dto.RecordTransactionRequest{
			TxHash:      opHash,
			Type:        types.TransactionTypeInvoiceCreated,
			Amount:      inv.Amount,
			FromAddress: sender,
			ToAddress:   s.Config.Chain.InvoiceContractAddress,
			Sponsored:   true,
			InvoiceID:   inv.ID,
			UserID:      inv.OwnerID,
			Metadata: types.TransactionMetadata{
				InvoiceID:     inv.ID,
				UserOpHash:    opHash,
				SubmittedHash: opHash,
			},
		})
		return err
	})
	if err != nil {
		// the operation is already with the bundler, a rerun would register the invoice twice
		s.Logger.Errorw("failed to record submitted invoice registration",
			"invoice_id", id,
			"op_hash", opHash,
			"error", err,
		)
		s.Sentry.CaptureException(err)
		return worker.Permanent(err)
	}

	if !marked {
		s.Logger.Warnw("invoice was registered concurrently, submitted operation is untracked",
			"invoice_id", id,
			"op_hash", opHash,
		)
		return nil
	}

	if inv.InvoiceStatus == types.InvoiceStatusDraft {
		metrics.RecordInvoiceTransition(string(types.InvoiceStatusDraft), string(types.InvoiceStatusSent))
	}
	s.Logger.Infow("invoice registration submitted",
		"invoice_id", id,
		"op_hash", opHash,
		"from", inv.InvoiceStatus,
		"to", types.InvoiceStatusSent,
	)
	s.invalidateOwnerStats(ctx, inv.OwnerID)
	return nil
}

// sponsorAndSubmit has the paymaster sponsor op and hands it to the bundler
func (s *invoiceService) sponsorAndSubmit(ctx context.Context, op *relay.UserOperation) (string, error) {
	sponsored, err := s.Relay.Sponsor(ctx, op, s.Config.Relay.PaymasterAddress)
	if err != nil {
		return "", err
	}
	return s.Relay.Submit(ctx, sponsored)
}

func (s *invoiceService) InitiatePaymentByLink(ctx context.Context, linkID string, req dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error) {
	inv, err := s.InvoiceRepo.GetByPaymentLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return s.InitiatePayment(ctx, inv.ID, req)
}

func (s *invoiceService) InitiatePayment(ctx context.Context, id string, req dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payer, err := types.NormalizeWalletAddress(req.PayerWallet)
	if err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !inv.InvoiceStatus.IsPayable() {
		return nil, ierr.NewError("invoice cannot be paid").
			WithHintf("Only sent or pending invoices can be paid, invoice is %s", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     id,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrIllegalState)
	}

	if !inv.HasWalletClient() || inv.ContractInvoiceID == nil {
		return nil, ierr.NewError("invoice is not registered on chain").
			WithHint("The invoice registration has not been confirmed yet, try again shortly").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrIllegalState)
	}

	amount, err := types.ToMinorUnits(inv.Amount, s.Chain.TokenDecimals())
	if err != nil {
		return nil, err
	}

	approve, err := s.Chain.BuildApproveTx(ctx, amount)
	if err != nil {
		return nil, err
	}
	pay, err := s.Chain.BuildPayTx(ctx, inv.ContractInvoiceID)
	if err != nil {
		return nil, err
	}
	callData, err := chain.BatchCallData(approve, pay)
	if err != nil {
		return nil, err
	}

	submittedHash, err := s.sponsorAndSubmit(ctx, relay.NewUserOperation(payer, hexutil.Encode(callData), req.Signature))
	if err != nil {
		s.Logger.Warnw("payment submission failed",
			"invoice_id", id,
			"payer", payer,
			"error", err,
		)
		return nil, err
	}

	opHash := lo.Ternary(req.UserOpHash != "", req.UserOpHash, submittedHash)

	payee := s.Config.Chain.InvoiceContractAddress
	if owner, err := s.UserRepo.GetByID(ctx, inv.OwnerID); err == nil && owner.PayoutAddress() != "" {
		payee = owner.PayoutAddress()
	}

	var txn *transaction.Transaction
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		changed, err := s.InvoiceRepo.MarkPaymentSubmitted(ctx, id, true)
		if err != nil {
			return err
		}
		if !changed {
			return ierr.NewError("invoice status changed during payment").
				WithHint("The invoice is no longer open for payment").
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrIllegalState)
		}

		txn, err = s.recordTransaction(ctx, &dto.RecordTransactionRequest{
			TxHash:      submittedHash,
			Type:        types.TransactionTypeInvoicePaid,
			Amount:      inv.Amount,
			FromAddress: payer,
			ToAddress:   payee,
			Sponsored:   true,
			InvoiceID:   inv.ID,
			UserID:      inv.OwnerID,
			Metadata: types.TransactionMetadata{
				InvoiceID:         inv.ID,
				ContractInvoiceID: inv.ContractInvoiceID,
				UserOpHash:        opHash,
				SubmittedHash:     submittedHash,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if inv.InvoiceStatus != types.InvoiceStatusPending {
		metrics.RecordInvoiceTransition(string(inv.InvoiceStatus), string(types.InvoiceStatusPending))
	}
	s.Logger.Infow("invoice payment submitted",
		"invoice_id", id,
		"from", inv.InvoiceStatus,
		"to", types.InvoiceStatusPending,
		"op_hash", opHash,
		"submitted_hash", submittedHash,
	)
	s.invalidateOwnerStats(ctx, inv.OwnerID)

	return &dto.InitiatePaymentResponse{
		InvoiceID:        id,
		InvoiceStatus:    types.InvoiceStatusPending,
		TransactionID:    txn.ID,
		UserOpHash:       opHash,
		SubmittedHash:    submittedHash,
		Amount:           inv.Amount,
		AmountMinorUnits: amount.String(),
		GasSponsored:     true,
	}, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, id string, paymentTxHash string) error {
	_, err := s.markPaid(ctx, id, paymentTxHash, types.PayableInvoiceStatuses)
	return err
}

// markPaid moves the invoice to paid from one of `from` and credits the owner exactly once.
// It reports whether this call made the change.
func (s *invoiceService) markPaid(ctx context.Context, id string, paymentTxHash string, from []types.InvoiceStatus) (bool, error) {
	if paymentTxHash == "" {
		return false, ierr.NewError("payment transaction hash is required").
			WithHint("A paid invoice must reference its payment transaction").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return false, err
	}

	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return false, nil
	}

	if !lo.Contains(from, inv.InvoiceStatus) {
		return false, illegalTransition(inv, types.InvoiceStatusPaid)
	}

	var changed bool
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		changed, err = s.InvoiceRepo.MarkPaid(ctx, id, paymentTxHash, time.Now().UTC(), from)
		if err != nil || !changed {
			return err
		}
		return s.UserRepo.RecordPayment(ctx, inv.OwnerID, inv.Amount)
	})
	if err != nil {
		return false, err
	}

	if !changed {
		current, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if current.InvoiceStatus == types.InvoiceStatusPaid {
			return false, nil
		}
		return false, illegalTransition(current, types.InvoiceStatusPaid)
	}

	metrics.RecordInvoiceTransition(string(inv.InvoiceStatus), string(types.InvoiceStatusPaid))
	s.Logger.Infow("invoice paid",
		"invoice_id", id,
		"from", inv.InvoiceStatus,
		"to", types.InvoiceStatusPaid,
		"payment_tx_hash", paymentTxHash,
		"amount", inv.Amount.String(),
	)
	s.invalidateOwnerStats(ctx, inv.OwnerID)
	s.Notifier.Notify(ctx, notification.KindInvoicePaid, id)
	return true, nil
}

func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.InvoiceRepo.MarkOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		metrics.AddOverdueInvoices(len(ids))
		s.Cache.DeleteByPrefix(ctx, cache.PrefixOwnerStats)
		s.Logger.Infow("invoices marked overdue",
			"count", len(ids),
			"invoice_ids", ids,
			"to", types.InvoiceStatusOverdue,
		)
	}
	return ids, nil
}

func (s *invoiceService) SyncFromChain(ctx context.Context, id string) (*dto.SyncResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.SyncResponse{InvoiceID: id, InvoiceStatus: inv.InvoiceStatus}
	if inv.ContractInvoiceID == nil {
		return resp, nil
	}

	onChain, err := s.Chain.GetInvoice(ctx, *inv.ContractInvoiceID)
	if err != nil {
		return nil, err
	}

	if !onChain.IsPaid || inv.InvoiceStatus == types.InvoiceStatusPaid {
		return resp, nil
	}

	hash, err := s.paymentHash(ctx, inv)
	if err != nil {
		return nil, err
	}

	changed, err := s.markPaid(ctx, id, hash, types.ChainSettledInvoiceStatuses)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice synced from chain",
		"invoice_id", id,
		"contract_invoice_id", *inv.ContractInvoiceID,
		"changed", changed,
	)

	resp.Changed = changed
	resp.InvoiceStatus = types.InvoiceStatusPaid
	return resp, nil
}

// paymentHash picks the hash of the tracked payment, preferring a confirmed one
func (s *invoiceService) paymentHash(ctx context.Context, inv *invoice.Invoice) (string, error) {
	payments, err := s.TransactionRepo.List(ctx, &types.TransactionFilter{
		QueryFilter:     types.NewNoLimitQueryFilter(),
		InvoiceID:       inv.ID,
		TransactionType: []types.TransactionType{types.TransactionTypeInvoicePaid},
	})
	if err != nil {
		return "", err
	}

	confirmed, ok := lo.Find(payments, func(t *transaction.Transaction) bool {
		return t.TransactionStatus == types.TransactionStatusConfirmed
	})
	if !ok && len(payments) > 0 {
		confirmed, ok = payments[0], true
	}
	if ok {
		return lo.CoalesceOrEmpty(confirmed.Metadata.ChainTxHash, confirmed.TxHash), nil
	}
	return fmt.Sprintf("onchain:%d", *inv.ContractInvoiceID), nil
}

func (s *invoiceService) SetContractInvoiceID(ctx context.Context, id string, contractInvoiceID int64) error {
	if err := s.InvoiceRepo.SetContractInvoiceID(ctx, id, contractInvoiceID); err != nil {
		return err
	}
	s.Logger.Infow("invoice registration confirmed",
		"invoice_id", id,
		"contract_invoice_id", contractInvoiceID,
	)
	return nil
}
