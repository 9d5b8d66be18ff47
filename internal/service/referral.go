package service

import (
	"fmt"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// CommissionConfig is the flat two-tier sponsor commission: requesters whose
// level lies above the cutoff pay AboveCents to their sponsor, the rest pay
// BelowCents. A commission_levels row for the exact level overrides both.
type CommissionConfig struct {
	LevelCutoff int
	AboveCents  int64
	BelowCents  int64
}

// WorkflowConfig bounds the sponsorship-chain walk. The cap keeps the cycle
// check terminating even when stored chains are corrupt.
type WorkflowConfig struct {
	MaxChainDepth int
	Commission    CommissionConfig
}

func (c *WorkflowConfig) defaults() {
	if c.MaxChainDepth <= 0 {
		c.MaxChainDepth = 64
	}
}

// ReferralWorkflow drives sponsorship proposals through their state machine
// (pendiente -> aceptado|rechazado, terminal) and pays the sponsor
// commission exactly once on acceptance.
type ReferralWorkflow struct {
	requests    RequestStore
	members     MemberStore
	commissions CommissionStore
	ledger      *WalletLedger
	clock       Clock
	cfg         WorkflowConfig
}

func NewReferralWorkflow(requests RequestStore, members MemberStore, commissions CommissionStore, ledger *WalletLedger, clock Clock, cfg WorkflowConfig) *ReferralWorkflow {
	cfg.defaults()
	if clock == nil {
		clock = SystemClock()
	}
	return &ReferralWorkflow{
		requests:    requests,
		members:     members,
		commissions: commissions,
		ledger:      ledger,
		clock:       clock,
		cfg:         cfg,
	}
}

// CreateRequest proposes sponsorID as the requester's sponsor. A member may
// never be sponsored twice, may hold only one pending request, and may not
// appear in their own sponsorship chain.
func (w *ReferralWorkflow) CreateRequest(requesterID, sponsorID uint) (*models.ReferralRequest, error) {
	if requesterID == sponsorID {
		return nil, ErrSelfReferral
	}
	if _, err := w.members.GetByID(requesterID); err != nil {
		return nil, ErrNotFound
	}
	if _, err := w.members.GetByID(sponsorID); err != nil {
		return nil, ErrNotFound
	}
	accepted, err := w.requests.HasAccepted(requesterID)
	if err != nil {
		return nil, err
	}
	if accepted {
		return nil, ErrAlreadySponsored
	}
	pending, err := w.requests.HasPending(requesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicatePending
	}
	if err := w.checkNoCycle(requesterID, sponsorID); err != nil {
		return nil, err
	}
	req := &models.ReferralRequest{
		RequesterID: requesterID,
		SponsorID:   sponsorID,
		State:       domain.RequestPending,
		RequestedAt: w.clock.Now(),
	}
	if err := w.requests.Create(req); err != nil {
		return nil, err
	}
	return req, nil
}

// checkNoCycle walks the accepted-sponsor chain upward from sponsorID. If
// the walk reaches the requester the proposal would close a loop. The walk
// is capped; a chain longer than the cap is treated as circular rather than
// looping forever on corrupt data.
func (w *ReferralWorkflow) checkNoCycle(requesterID, sponsorID uint) error {
	cur := sponsorID
	for depth := 0; depth < w.cfg.MaxChainDepth; depth++ {
		if cur == requesterID {
			return ErrCircularReference
		}
		next, ok, err := w.requests.AcceptedSponsorOf(cur)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cur = next
	}
	return ErrCircularReference
}

// ResolveRequest applies the sponsor's decision to a pending request. On
// acceptance the sponsor wallet must be active; the state flip is a
// conditional update claiming the request, so concurrent resolutions pay at
// most one commission. If the commission credit fails after the claim the
// flip is compensated back to pending and the original failure reported.
func (w *ReferralWorkflow) ResolveRequest(requestID uint, accept bool) (*models.ReferralRequest, error) {
	req, err := w.requests.GetByID(requestID)
	if err != nil {
		return nil, ErrNotFound
	}
	if req.State != domain.RequestPending {
		return nil, ErrAlreadyResolved
	}
	now := w.clock.Now()

	if !accept {
		ok, err := w.requests.Resolve(req.ID, domain.RequestPending, domain.RequestRejected, &now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyResolved
		}
		req.State = domain.RequestRejected
		req.RespondedAt = &now
		return req, nil
	}

	active, err := w.ledger.IsActive(req.SponsorID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrWalletInactive
	}
	requester, err := w.members.GetByID(req.RequesterID)
	if err != nil {
		return nil, ErrNotFound
	}
	amount, err := w.commissionFor(requester.Level)
	if err != nil {
		return nil, err
	}

	ok, err := w.requests.Resolve(req.ID, domain.RequestPending, domain.RequestAccepted, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}
	if amount > 0 {
		if _, err := w.ledger.CreditCommission(req.SponsorID, amount, req.ID); err != nil {
			// Undo the claim so the request stays resolvable; the wallet was
			// not credited.
			if _, rerr := w.requests.Resolve(req.ID, domain.RequestAccepted, domain.RequestPending, nil); rerr != nil {
				return nil, fmt.Errorf("commission failed and request %d stuck accepted: %v (original: %w)", req.ID, rerr, err)
			}
			return nil, err
		}
	}
	req.State = domain.RequestAccepted
	req.RespondedAt = &now
	return req, nil
}

// ResolveOutcome is the per-request result of a batch resolution.
type ResolveOutcome struct {
	RequestID uint
	Err       error
}

// ResolveBatch applies the decision to each request independently; one
// failure never blocks or rolls back the others.
func (w *ReferralWorkflow) ResolveBatch(requestIDs []uint, accept bool) []ResolveOutcome {
	out := make([]ResolveOutcome, 0, len(requestIDs))
	for _, id := range requestIDs {
		_, err := w.ResolveRequest(id, accept)
		out = append(out, ResolveOutcome{RequestID: id, Err: err})
	}
	return out
}

// Received lists requests naming the member as sponsor, optionally filtered
// by state.
func (w *ReferralWorkflow) Received(sponsorID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	return w.requests.ListReceived(sponsorID, state, limit, offset)
}

// Sent lists requests the member created, optionally filtered by state.
func (w *ReferralWorkflow) Sent(requesterID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	return w.requests.ListSent(requesterID, state, limit, offset)
}

func (w *ReferralWorkflow) commissionFor(level int) (int64, error) {
	if w.commissions != nil {
		row, err := w.commissions.GetByLevel(level)
		if err != nil {
			return 0, err
		}
		if row != nil {
			return row.CommissionCents, nil
		}
	}
	if level > w.cfg.Commission.LevelCutoff {
		return w.cfg.Commission.AboveCents, nil
	}
	return w.cfg.Commission.BelowCents, nil
}
