package service

import (
	"time"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// The store interfaces below are the persistence gateway consumed by the
// core. The gorm implementations live in internal/repository; tests use
// in-memory fakes. Every atomicity guarantee rests on the conditional
// methods returning whether the guarded update applied (all-or-nothing),
// never on application-level locks.

type MemberStore interface {
	Create(m *models.Member) error
	GetByID(id uint) (*models.Member, error)
	GetByUsername(username string) (*models.Member, error)
	// FindOpenParents returns members with at least one unset child slot,
	// ordered by creation (id ascending).
	FindOpenParents(limit int) ([]models.Member, error)
	// ClaimChildSlot sets the given slot (1..3) to childID only if the slot
	// is still unset and the previous slot is already filled. Returns false
	// when the guard fails (another placement won the slot).
	ClaimChildSlot(parentID uint, slot int, childID uint) (bool, error)
	// AssignPlacement records the candidate's parent and level once a slot
	// claim succeeded.
	AssignPlacement(memberID uint, parentID *uint, level int) error
	// ClaimRoot promotes the member to the level-1 root only while no
	// placed member exists, as one conditional store update. Returns false
	// when another member already won the root.
	ClaimRoot(memberID uint) (bool, error)
	// ParentHolding returns the member whose child slot already references
	// childID, or nil when none does.
	ParentHolding(childID uint) (*models.Member, error)
	CountByLevel() (map[int]int64, error)
	Count() (int64, error)
	NextJoinOrder() (uint64, error)
}

type WalletStore interface {
	Create(w *models.Wallet) error
	GetByMemberID(memberID uint) (*models.Wallet, error)
	// ActivateExisting flips active to true; false when already active.
	ActivateExisting(memberID uint) (bool, error)
	// CreditIfActive applies balance += amount only while the wallet is
	// active. Returns false when the wallet is missing or inactive.
	CreditIfActive(memberID uint, amountCents int64) (bool, error)
	// Credit applies balance += amount regardless of the active flag. Used
	// for compensating refunds and bulk reversal, which undo money the
	// wallet already absorbed.
	Credit(memberID uint, amountCents int64) (bool, error)
	// DebitIfSufficient applies balance -= amount only while active and
	// balance >= amount, as one conditional store update.
	DebitIfSufficient(memberID uint, amountCents int64) (bool, error)
	// Debit applies balance -= amount without the sufficiency guard (bulk
	// reversal only).
	Debit(memberID uint, amountCents int64) (bool, error)
	// DeleteIfZero removes the wallet only when its balance is zero.
	DeleteIfZero(memberID uint) (bool, error)
	CountActive() (int64, error)
	// ListActiveMemberIDs returns the member IDs of active wallets,
	// optionally restricted to members at the given level (level > 0) or to
	// members without an audit row for the given bulk run (excludeBulkID >
	// 0).
	ListActiveMemberIDs(level int, excludeBulkID uint) ([]uint, error)
	// CreditMembers applies one batched credit to the active wallets of the
	// given members and returns how many rows were updated.
	CreditMembers(memberIDs []uint, amountCents int64) (int64, error)
	Count() (int64, error)
}

type TransactionStore interface {
	Create(t *models.Transaction) error
	InsertMany(ts []models.Transaction) error
	GetByID(id uint) (*models.Transaction, error)
	// UpdateStatusIf flips the status only when it still equals from.
	UpdateStatusIf(id uint, from, to string) (bool, error)
	ListByMember(memberID uint, limit, offset int) ([]models.Transaction, error)
	ListAll(limit, offset int) ([]models.Transaction, error)
	ListByBulk(bulkID uint, kind string, limit, offset int) ([]models.Transaction, error)
	CountByBulk(bulkID uint, kind string) (int64, error)
	// MemberIDsWithBulkAudit returns members that already have a per-wallet
	// audit row for the given bulk run.
	MemberIDsWithBulkAudit(bulkID uint) ([]uint, error)
	Count() (int64, error)
}

type RequestStore interface {
	Create(r *models.ReferralRequest) error
	GetByID(id uint) (*models.ReferralRequest, error)
	HasAccepted(requesterID uint) (bool, error)
	HasPending(requesterID uint) (bool, error)
	// AcceptedSponsorOf returns the sponsor from the requester's accepted
	// request, if any. Used to walk the sponsorship chain upward.
	AcceptedSponsorOf(requesterID uint) (uint, bool, error)
	// Resolve flips the state only when it still equals from. A nil
	// respondedAt clears the timestamp (the compensating flip back to
	// pending).
	Resolve(id uint, from, to string, respondedAt *time.Time) (bool, error)
	ListReceived(sponsorID uint, state string, limit, offset int) ([]models.ReferralRequest, error)
	ListSent(requesterID uint, state string, limit, offset int) ([]models.ReferralRequest, error)
	Count() (int64, error)
}

type BulkStore interface {
	Create(b *models.BulkRecharge) error
	GetByID(id uint) (*models.BulkRecharge, error)
	// Finalize records the terminal state of a run together with the actual
	// credited counts and the principal transaction link.
	Finalize(id uint, state string, principalTxID *uint, walletCount, totalCents int64) error
	// MarkReversed flips reversed from false to true; false when the run was
	// already reversed (or missing).
	MarkReversed(id uint) (bool, error)
	List(reversed *bool, limit, offset int) ([]models.BulkRecharge, error)
	ListByState(state string, limit int) ([]models.BulkRecharge, error)
}

type WithdrawalStore interface {
	Create(w *models.Withdrawal) error
	GetByID(id uint) (*models.Withdrawal, error)
	// UpdateStatusIf flips the status only when it still equals from.
	UpdateStatusIf(id uint, from, to string) (bool, error)
	ListByMember(memberID uint, limit, offset int) ([]models.Withdrawal, error)
	Count() (int64, error)
}

type CodeStore interface {
	GetOrCreateCode(memberID uint) (*models.ReferralCode, error)
	// GetUnused returns the code row only while it has not been consumed.
	GetUnused(code string) (*models.ReferralCode, error)
	// MarkUsed consumes the code; false when it was already used.
	MarkUsed(id uint) (bool, error)
	Count() (int64, error)
}

type CommissionStore interface {
	// GetByLevel returns the override for a level, or nil when none exists.
	GetByLevel(level int) (*models.CommissionLevel, error)
	Set(level int, commissionCents int64) error
	List() ([]models.CommissionLevel, error)
}

// NotificationSink pushes events to a live client. Calls are best-effort
// side effects after a committed financial operation; implementations must
// never block or fail the caller.
type NotificationSink interface {
	Notify(memberID uint, event string, data map[string]interface{})
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Notify(uint, string, map[string]interface{}) {}
