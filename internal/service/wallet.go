package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// WalletLedger is the only component that mutates balances. All guards
// (active flag, sufficient funds) are applied by the store in a single
// conditional update, so concurrent debits can never drive a balance below
// zero.
type WalletLedger struct {
	wallets     WalletStore
	txs         TransactionStore
	withdrawals WithdrawalStore
	sink        NotificationSink
	clock       Clock
}

func NewWalletLedger(wallets WalletStore, txs TransactionStore, withdrawals WithdrawalStore, sink NotificationSink, clock Clock) *WalletLedger {
	if sink == nil {
		sink = NopSink{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &WalletLedger{wallets: wallets, txs: txs, withdrawals: withdrawals, sink: sink, clock: clock}
}

// Activate creates the wallet on first activation, or flips an existing
// inactive wallet to active. An already-active wallet is an error.
func (l *WalletLedger) Activate(memberID uint) (*models.Wallet, error) {
	w, err := l.wallets.GetByMemberID(memberID)
	if err == nil {
		if w.Active {
			return nil, ErrAlreadyActive
		}
		ok, err := l.wallets.ActivateExisting(memberID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyActive
		}
		return l.wallets.GetByMemberID(memberID)
	}
	w = &models.Wallet{MemberID: memberID, Active: true}
	if err := l.wallets.Create(w); err != nil {
		// Lost a creation race; the other writer owns the row now.
		if ok, aerr := l.wallets.ActivateExisting(memberID); aerr == nil && ok {
			return l.wallets.GetByMemberID(memberID)
		}
		return nil, ErrAlreadyActive
	}
	return w, nil
}

// Credit adds amount to an active wallet and records an approved
// transaction of the given kind.
func (l *WalletLedger) Credit(memberID uint, amountCents int64, kind, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := l.wallets.CreditIfActive(memberID, amountCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, gerr := l.wallets.GetByMemberID(memberID); gerr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrWalletInactive
	}
	tx := &models.Transaction{
		MemberID:    memberID,
		Kind:        kind,
		AmountCents: amountCents,
		Status:      domain.TxStatusApproved,
		Description: description,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.txs.Create(tx); err != nil {
		return nil, fmt.Errorf("record %s transaction: %w", kind, err)
	}
	if kind == domain.TxKindRecharge {
		l.sink.Notify(memberID, domain.EventRecharge, map[string]interface{}{"amount_cents": amountCents})
	}
	return tx, nil
}

// CreditCommission credits a sponsor for an accepted referral and links the
// transaction to the request so the payment is traceable.
func (l *WalletLedger) CreditCommission(sponsorID uint, amountCents int64, requestID uint) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := l.wallets.CreditIfActive(sponsorID, amountCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, gerr := l.wallets.GetByMemberID(sponsorID); gerr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrWalletInactive
	}
	tx := &models.Transaction{
		MemberID:      sponsorID,
		Kind:          domain.TxKindCommission,
		AmountCents:   amountCents,
		Status:        domain.TxStatusApproved,
		Description:   fmt.Sprintf("Comisión por referido aceptado (solicitud %d)", requestID),
		ReferralReqID: &requestID,
		CreatedAt:     l.clock.Now(),
	}
	if err := l.txs.Create(tx); err != nil {
		return nil, fmt.Errorf("record commission transaction: %w", err)
	}
	l.sink.Notify(sponsorID, domain.EventCommission, map[string]interface{}{
		"amount_cents": amountCents,
		"request_id":   requestID,
	})
	return tx, nil
}

// Debit subtracts amount from the wallet behind a balance >= amount guard
// and records an approved transaction. Insufficient funds and inactive
// wallets both fail the guard.
func (l *WalletLedger) Debit(memberID uint, amountCents int64, kind, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := l.wallets.DebitIfSufficient(memberID, amountCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, gerr := l.wallets.GetByMemberID(memberID); gerr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}
	tx := &models.Transaction{
		MemberID:    memberID,
		Kind:        kind,
		AmountCents: amountCents,
		Status:      domain.TxStatusApproved,
		Description: description,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.txs.Create(tx); err != nil {
		return nil, fmt.Errorf("record %s transaction: %w", kind, err)
	}
	return tx, nil
}

// Transfer debits the sender, then credits the recipient. The two wallets
// are separate rows, so when the credit leg fails after a successful debit
// the ledger compensates by crediting the amount back to the sender and
// reports the original failure.
func (l *WalletLedger) Transfer(senderID, recipientID uint, amountCents int64) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	if senderID == recipientID {
		return ErrInvalidAmount
	}
	ok, err := l.wallets.DebitIfSufficient(senderID, amountCents)
	if err != nil {
		return err
	}
	if !ok {
		if _, gerr := l.wallets.GetByMemberID(senderID); gerr != nil {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	ok, err = l.wallets.CreditIfActive(recipientID, amountCents)
	if err == nil && !ok {
		if _, gerr := l.wallets.GetByMemberID(recipientID); gerr != nil {
			err = ErrNotFound
		} else {
			err = ErrWalletInactive
		}
	}
	if err != nil {
		if _, cerr := l.wallets.Credit(senderID, amountCents); cerr != nil {
			return fmt.Errorf("compensating credit for member %d failed: %v (original: %w)", senderID, cerr, err)
		}
		return err
	}
	now := l.clock.Now()
	sendTx := &models.Transaction{
		MemberID:    senderID,
		Kind:        domain.TxKindSend,
		AmountCents: amountCents,
		Status:      domain.TxStatusApproved,
		Description: fmt.Sprintf("Envío de %d al miembro %d", amountCents, recipientID),
		CreatedAt:   now,
	}
	recvTx := &models.Transaction{
		MemberID:    recipientID,
		Kind:        domain.TxKindReceive,
		AmountCents: amountCents,
		Status:      domain.TxStatusApproved,
		Description: fmt.Sprintf("Recepción de %d del miembro %d", amountCents, senderID),
		CreatedAt:   now,
	}
	if err := l.txs.InsertMany([]models.Transaction{*sendTx, *recvTx}); err != nil {
		return fmt.Errorf("record transfer transactions: %w", err)
	}
	l.sink.Notify(recipientID, domain.EventTransferIn, map[string]interface{}{
		"amount_cents": amountCents,
		"sender_id":    senderID,
	})
	return nil
}

// Withdraw reserves the funds immediately (the balance is decremented up
// front) and records a pending transaction; the payout happens out of band.
func (l *WalletLedger) Withdraw(memberID uint, amountCents int64) (*models.Withdrawal, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := l.wallets.DebitIfSufficient(memberID, amountCents)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, gerr := l.wallets.GetByMemberID(memberID); gerr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}
	tx := &models.Transaction{
		MemberID:    memberID,
		Kind:        domain.TxKindWithdraw,
		AmountCents: amountCents,
		Status:      domain.TxStatusPending,
		Description: fmt.Sprintf("Retiro de %d solicitado", amountCents),
		CreatedAt:   l.clock.Now(),
	}
	if err := l.txs.Create(tx); err != nil {
		_, _ = l.wallets.Credit(memberID, amountCents)
		return nil, fmt.Errorf("record withdrawal transaction: %w", err)
	}
	wd := &models.Withdrawal{
		MemberID:      memberID,
		OrderID:       fmt.Sprintf("wd-%s", uuid.New().String()),
		AmountCents:   amountCents,
		Status:        domain.WithdrawalPending,
		TransactionID: tx.ID,
	}
	if err := l.withdrawals.Create(wd); err != nil {
		_, _ = l.wallets.Credit(memberID, amountCents)
		_, _ = l.txs.UpdateStatusIf(tx.ID, domain.TxStatusPending, domain.TxStatusRejected)
		return nil, fmt.Errorf("record withdrawal: %w", err)
	}
	return wd, nil
}

// ResolveWithdrawal applies the operator decision to a pending withdrawal.
// Rejection triggers a compensating refund credit, since the funds were
// reserved when the withdrawal was created.
func (l *WalletLedger) ResolveWithdrawal(withdrawalID uint, approve bool) (*models.Withdrawal, error) {
	wd, err := l.withdrawals.GetByID(withdrawalID)
	if err != nil {
		return nil, ErrNotFound
	}
	to := domain.WithdrawalRejected
	txTo := domain.TxStatusRejected
	if approve {
		to = domain.WithdrawalApproved
		txTo = domain.TxStatusApproved
	}
	ok, err := l.withdrawals.UpdateStatusIf(wd.ID, domain.WithdrawalPending, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}
	if _, err := l.txs.UpdateStatusIf(wd.TransactionID, domain.TxStatusPending, txTo); err != nil {
		return nil, err
	}
	if !approve {
		if _, err := l.wallets.Credit(wd.MemberID, wd.AmountCents); err != nil {
			return nil, fmt.Errorf("refund rejected withdrawal %d: %w", wd.ID, err)
		}
	}
	l.sink.Notify(wd.MemberID, domain.EventWithdrawal, map[string]interface{}{
		"withdrawal_id": wd.ID,
		"status":        to,
		"amount_cents":  wd.AmountCents,
	})
	wd.Status = to
	return wd, nil
}

// DeactivateAndClose removes the wallet; only legal at zero balance.
func (l *WalletLedger) DeactivateAndClose(memberID uint) error {
	ok, err := l.wallets.DeleteIfZero(memberID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, gerr := l.wallets.GetByMemberID(memberID); gerr != nil {
		return ErrNotFound
	}
	return ErrNonZeroBalance
}

// GetWallet returns the wallet row for a member.
func (l *WalletLedger) GetWallet(memberID uint) (*models.Wallet, error) {
	w, err := l.wallets.GetByMemberID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	return w, nil
}

// IsActive reports the wallet state without failing on absence: a missing
// wallet is simply not active yet.
func (l *WalletLedger) IsActive(memberID uint) (bool, error) {
	w, err := l.wallets.GetByMemberID(memberID)
	if err != nil {
		return false, nil
	}
	return w.Active, nil
}

// Transactions lists a member's movements, newest first.
func (l *WalletLedger) Transactions(memberID uint, limit, offset int) ([]models.Transaction, error) {
	return l.txs.ListByMember(memberID, limit, offset)
}

// AllTransactions lists every movement, newest first.
func (l *WalletLedger) AllTransactions(limit, offset int) ([]models.Transaction, error) {
	return l.txs.ListAll(limit, offset)
}

// Withdrawals lists a member's withdrawal requests.
func (l *WalletLedger) Withdrawals(memberID uint, limit, offset int) ([]models.Withdrawal, error) {
	return l.withdrawals.ListByMember(memberID, limit, offset)
}
