package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// RechargeMode selects which wallets a recharge targets. The explicit union
// replaces the historical free-form request bodies: each mode's required
// fields are checked up front.
type RechargeMode string

const (
	// RechargeIndividual credits one member's wallet.
	RechargeIndividual RechargeMode = "individual"
	// RechargeByLevel credits every active wallet of members at one level.
	RechargeByLevel RechargeMode = "by_level"
	// RechargeBulk credits every active wallet.
	RechargeBulk RechargeMode = "bulk"
	// RechargeBulkMissing credits active wallets that did not receive a
	// given prior bulk run.
	RechargeBulkMissing RechargeMode = "bulk_missing"
)

// RechargeRequest is the tagged-union recharge order.
type RechargeRequest struct {
	Mode        RechargeMode
	AmountCents int64
	ExecutorID  uint
	MemberID    uint // RechargeIndividual
	Level       int  // RechargeByLevel
	PriorBulkID uint // RechargeBulkMissing
}

// RechargeResult carries the outcome of either branch of the union.
type RechargeResult struct {
	Transaction *models.Transaction
	Bulk        *models.BulkRecharge
}

// AuditJob asks the audit worker to write one per-wallet transaction for
// each credited wallet of a bulk run.
type AuditJob struct {
	BulkID      uint
	MemberIDs   []uint
	AmountCents int64
}

// AuditEnqueuer hands audit jobs to the background worker. Enqueueing must
// not block the caller.
type AuditEnqueuer interface {
	Enqueue(job AuditJob)
}

// BulkConfig tunes the coordinator.
type BulkConfig struct {
	// AuditBatchSize is how many per-wallet audit rows are inserted per
	// store call.
	AuditBatchSize int
}

func (c *BulkConfig) defaults() {
	if c.AuditBatchSize <= 0 {
		c.AuditBatchSize = 200
	}
}

// BulkCoordinator applies one recharge amount to many wallets with a
// summary record, a principal transaction, deferred per-wallet audit rows
// and a reversal path.
type BulkCoordinator struct {
	bulks   BulkStore
	wallets WalletStore
	txs     TransactionStore
	ledger  *WalletLedger
	queue   AuditEnqueuer
	clock   Clock
	cfg     BulkConfig
}

func NewBulkCoordinator(bulks BulkStore, wallets WalletStore, txs TransactionStore, ledger *WalletLedger, queue AuditEnqueuer, clock Clock, cfg BulkConfig) *BulkCoordinator {
	cfg.defaults()
	if clock == nil {
		clock = SystemClock()
	}
	return &BulkCoordinator{
		bulks:   bulks,
		wallets: wallets,
		txs:     txs,
		ledger:  ledger,
		queue:   queue,
		clock:   clock,
		cfg:     cfg,
	}
}

// Recharge dispatches on the request mode. Individual recharges go straight
// through the ledger; the bulk modes run the batched flow.
func (c *BulkCoordinator) Recharge(req RechargeRequest) (*RechargeResult, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	switch req.Mode {
	case RechargeIndividual:
		if req.MemberID == 0 {
			return nil, ErrNotFound
		}
		tx, err := c.ledger.Credit(req.MemberID, req.AmountCents, domain.TxKindRecharge,
			fmt.Sprintf("Recarga de %d realizada", req.AmountCents))
		if err != nil {
			return nil, err
		}
		return &RechargeResult{Transaction: tx}, nil
	case RechargeByLevel:
		bulk, err := c.runBulk(req.AmountCents, req.ExecutorID, req.Level, 0)
		if err != nil {
			return nil, err
		}
		return &RechargeResult{Bulk: bulk}, nil
	case RechargeBulk:
		bulk, err := c.runBulk(req.AmountCents, req.ExecutorID, 0, 0)
		if err != nil {
			return nil, err
		}
		return &RechargeResult{Bulk: bulk}, nil
	case RechargeBulkMissing:
		if req.PriorBulkID == 0 {
			return nil, ErrNotFound
		}
		if _, err := c.bulks.GetByID(req.PriorBulkID); err != nil {
			return nil, ErrNotFound
		}
		bulk, err := c.runBulk(req.AmountCents, req.ExecutorID, 0, req.PriorBulkID)
		if err != nil {
			return nil, err
		}
		return &RechargeResult{Bulk: bulk}, nil
	}
	return nil, fmt.Errorf("unknown recharge mode %q", req.Mode)
}

// RunBulkRecharge credits every active wallet once. Shorthand for the bulk
// branch of Recharge.
func (c *BulkCoordinator) RunBulkRecharge(amountCents int64, executorID uint) (*models.BulkRecharge, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return c.runBulk(amountCents, executorID, 0, 0)
}

func (c *BulkCoordinator) runBulk(amountCents int64, executorID uint, level int, excludeBulkID uint) (*models.BulkRecharge, error) {
	ids, err := c.wallets.ListActiveMemberIDs(level, excludeBulkID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoActiveWallets
	}

	bulk := &models.BulkRecharge{
		Reference:      fmt.Sprintf("rm-%s", uuid.New().String()),
		AmountPerCents: amountCents,
		WalletCount:    int64(len(ids)),
		TotalCents:     amountCents * int64(len(ids)),
		ExecutorID:     executorID,
		State:          domain.BulkProcessing,
		ExecutedAt:     c.clock.Now(),
	}
	if err := bulk.SetCreditedMembers(ids); err != nil {
		return nil, err
	}
	if err := c.bulks.Create(bulk); err != nil {
		return nil, err
	}

	// One store-level batched credit, not N single credits.
	count, err := c.wallets.CreditMembers(ids, amountCents)
	if err != nil {
		_ = c.bulks.Finalize(bulk.ID, domain.BulkFailed, nil, 0, 0)
		bulk.State = domain.BulkFailed
		return nil, fmt.Errorf("batched credit for bulk %d: %w", bulk.ID, err)
	}

	total := amountCents * count
	principal := &models.Transaction{
		MemberID:       executorID,
		Kind:           domain.TxKindBulkRecharge,
		AmountCents:    total,
		Status:         domain.TxStatusApproved,
		Description:    fmt.Sprintf("Recarga masiva de %d a %d billeteras", amountCents, count),
		BulkRechargeID: &bulk.ID,
		CreatedAt:      c.clock.Now(),
	}
	if err := c.txs.Create(principal); err != nil {
		return nil, fmt.Errorf("record principal transaction for bulk %d: %w", bulk.ID, err)
	}
	if err := c.bulks.Finalize(bulk.ID, domain.BulkCompleted, &principal.ID, count, total); err != nil {
		return nil, err
	}
	bulk.State = domain.BulkCompleted
	bulk.PrincipalTxID = &principal.ID
	bulk.WalletCount = count
	bulk.TotalCents = total

	// Per-wallet audit rows are written off the request path.
	if c.queue != nil {
		c.queue.Enqueue(AuditJob{BulkID: bulk.ID, MemberIDs: ids, AmountCents: amountCents})
	}
	return bulk, nil
}

// WriteAuditRecords inserts the per-wallet "recarga" rows for a bulk run,
// skipping members that already have one, in insert batches. Called by the
// audit worker and, synchronously, by Reverse when the deferred pass has not
// landed yet. Idempotent per member.
func (c *BulkCoordinator) WriteAuditRecords(job AuditJob) error {
	have, err := c.txs.MemberIDsWithBulkAudit(job.BulkID)
	if err != nil {
		return err
	}
	seen := make(map[uint]struct{}, len(have))
	for _, id := range have {
		seen[id] = struct{}{}
	}
	now := c.clock.Now()
	batch := make([]models.Transaction, 0, c.cfg.AuditBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.txs.InsertMany(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for _, id := range job.MemberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		bulkID := job.BulkID
		batch = append(batch, models.Transaction{
			MemberID:       id,
			Kind:           domain.TxKindRecharge,
			AmountCents:    job.AmountCents,
			Status:         domain.TxStatusApproved,
			Description:    fmt.Sprintf("Recarga masiva %d", job.BulkID),
			BulkRechargeID: &bulkID,
			CreatedAt:      now,
		})
		if len(batch) >= c.cfg.AuditBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// AuditShortfall returns how many per-wallet audit rows a completed run is
// still missing. The reconciliation job uses it to re-enqueue stalled runs.
func (c *BulkCoordinator) AuditShortfall(bulk *models.BulkRecharge) (int64, error) {
	have, err := c.txs.CountByBulk(bulk.ID, domain.TxKindRecharge)
	if err != nil {
		return 0, err
	}
	missing := bulk.WalletCount - have
	if missing < 0 {
		missing = 0
	}
	return missing, nil
}

// RebuildAuditJob reconstructs a job for a run whose in-memory job was lost
// (process restart). The credited set is read back from the run record, so
// the rebuilt job targets exactly the wallets the run credited; a wallet
// activated after the run can never enter it.
func (c *BulkCoordinator) RebuildAuditJob(bulk *models.BulkRecharge) (*AuditJob, error) {
	credited, err := bulk.CreditedMembers()
	if err != nil {
		return nil, err
	}
	if len(credited) == 0 {
		return nil, nil
	}
	have, err := c.txs.MemberIDsWithBulkAudit(bulk.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(have))
	for _, id := range have {
		seen[id] = struct{}{}
	}
	missing := make([]uint, 0, len(credited))
	for _, id := range credited {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return &AuditJob{BulkID: bulk.ID, MemberIDs: missing, AmountCents: bulk.AmountPerCents}, nil
}

// CompletedRuns lists completed bulk runs for the reconciliation pass.
func (c *BulkCoordinator) CompletedRuns(limit int) ([]models.BulkRecharge, error) {
	return c.bulks.ListByState(domain.BulkCompleted, limit)
}

// Reverse undoes a bulk run: it claims the reversed flag with a conditional
// update (a second reversal finds the flag set and stops), then debits each
// linked per-wallet transaction without the sufficiency guard, since it is
// taking back a credit the wallet already absorbed.
func (c *BulkCoordinator) Reverse(bulkID uint) error {
	bulk, err := c.bulks.GetByID(bulkID)
	if err != nil {
		return ErrNotFound
	}
	if bulk.Reversed {
		return ErrAlreadyReversed
	}
	ok, err := c.bulks.MarkReversed(bulkID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReversed
	}

	// The deferred audit pass may not have landed yet; reversal needs the
	// per-wallet rows, so backfill synchronously first.
	if job, err := c.RebuildAuditJob(bulk); err == nil && job != nil {
		if err := c.WriteAuditRecords(*job); err != nil {
			return fmt.Errorf("backfill audit rows for bulk %d: %w", bulkID, err)
		}
	} else if err != nil {
		return err
	}

	failed := 0
	offset := 0
	for {
		txs, err := c.txs.ListByBulk(bulkID, domain.TxKindRecharge, c.cfg.AuditBatchSize, offset)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			break
		}
		for _, tx := range txs {
			if _, err := c.wallets.Debit(tx.MemberID, tx.AmountCents); err != nil {
				failed++
			}
		}
		offset += len(txs)
	}
	if failed > 0 {
		return fmt.Errorf("bulk %d reversed with %d failed debits", bulkID, failed)
	}
	return nil
}

// History lists bulk runs, newest first, optionally filtered by the
// reversed flag.
func (c *BulkCoordinator) History(reversed *bool, limit, offset int) ([]models.BulkRecharge, error) {
	return c.bulks.List(reversed, limit, offset)
}

// BulkDetail is one run with its principal transaction and a page of the
// per-wallet audit rows.
type BulkDetail struct {
	Bulk         *models.BulkRecharge `json:"bulk"`
	Principal    *models.Transaction  `json:"principal,omitempty"`
	WalletTxs    []models.Transaction `json:"wallet_transactions"`
	WalletTxsSum int64                `json:"wallet_transactions_total"`
}

// Detail returns the drill-down view of one run.
func (c *BulkCoordinator) Detail(bulkID uint, limit, offset int) (*BulkDetail, error) {
	bulk, err := c.bulks.GetByID(bulkID)
	if err != nil {
		return nil, ErrNotFound
	}
	d := &BulkDetail{Bulk: bulk}
	if bulk.PrincipalTxID != nil {
		if tx, err := c.txs.GetByID(*bulk.PrincipalTxID); err == nil {
			d.Principal = tx
		}
	}
	txs, err := c.txs.ListByBulk(bulkID, domain.TxKindRecharge, limit, offset)
	if err != nil {
		return nil, err
	}
	d.WalletTxs = txs
	for _, tx := range txs {
		d.WalletTxsSum += tx.AmountCents
	}
	return d, nil
}
