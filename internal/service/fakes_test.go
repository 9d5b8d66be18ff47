package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// memDB is the shared in-memory backing for the fake stores. The fakes
// reproduce the conditional-update semantics of the gorm repositories
// (claim-if-unset, credit-if-active, debit-if-sufficient) under one mutex.
type memDB struct {
	mu sync.Mutex

	members     map[uint]*models.Member
	wallets     map[uint]*models.Wallet // keyed by member ID
	txs         []*models.Transaction
	requests    map[uint]*models.ReferralRequest
	bulks       map[uint]*models.BulkRecharge
	withdrawals map[uint]*models.Withdrawal
	codes       map[uint]*models.ReferralCode
	commissions map[int]*models.CommissionLevel

	nextMemberID uint
	nextWalletID uint
	nextTxID     uint
	nextReqID    uint
	nextBulkID   uint
	nextWdID     uint
	nextCodeID   uint
	joinOrder    uint64

	// failure injection
	txCreateErr        error
	txInsertManyErr    error
	creditMembersErr   error
	withdrawalErr      error
	creditIfActiveHook func(memberID uint) error
}

var errFakeNotFound = errors.New("record not found")

func newMemDB() *memDB {
	return &memDB{
		members:     map[uint]*models.Member{},
		wallets:     map[uint]*models.Wallet{},
		requests:    map[uint]*models.ReferralRequest{},
		bulks:       map[uint]*models.BulkRecharge{},
		withdrawals: map[uint]*models.Withdrawal{},
		codes:       map[uint]*models.ReferralCode{},
		commissions: map[int]*models.CommissionLevel{},
	}
}

// stores bundles one fake per gateway interface over a shared memDB.
type stores struct {
	db          *memDB
	members     *fakeMemberStore
	wallets     *fakeWalletStore
	txs         *fakeTxStore
	requests    *fakeRequestStore
	bulks       *fakeBulkStore
	withdrawals *fakeWithdrawalStore
	codes       *fakeCodeStore
	commissions *fakeCommissionStore
}

func newStores() *stores {
	db := newMemDB()
	return &stores{
		db:          db,
		members:     &fakeMemberStore{db},
		wallets:     &fakeWalletStore{db},
		txs:         &fakeTxStore{db},
		requests:    &fakeRequestStore{db},
		bulks:       &fakeBulkStore{db},
		withdrawals: &fakeWithdrawalStore{db},
		codes:       &fakeCodeStore{db},
		commissions: &fakeCommissionStore{db},
	}
}

func (s *stores) seedMember(name string) uint {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextMemberID++
	s.db.joinOrder++
	m := &models.Member{
		ID:        s.db.nextMemberID,
		FullName:  name,
		Username:  fmt.Sprintf("user%d", s.db.nextMemberID),
		Email:     fmt.Sprintf("%s@test.local", name),
		DNI:       fmt.Sprintf("dni-%d", s.db.nextMemberID),
		JoinOrder: s.db.joinOrder,
	}
	s.db.members[m.ID] = m
	return m.ID
}

func (s *stores) seedPlacedMember(name string, parentID *uint, level int) uint {
	id := s.seedMember(name)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m := s.db.members[id]
	m.ParentID = parentID
	m.Level = level
	return id
}

func (s *stores) seedWallet(memberID uint, balanceCents int64, active bool) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextWalletID++
	s.db.wallets[memberID] = &models.Wallet{
		ID:           s.db.nextWalletID,
		MemberID:     memberID,
		BalanceCents: balanceCents,
		Active:       active,
	}
}

func (s *stores) balance(memberID uint) int64 {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if w, ok := s.db.wallets[memberID]; ok {
		return w.BalanceCents
	}
	return -1
}

// testClock pins Now.
type testClock struct{ t time.Time }

func (c testClock) Now() time.Time { return c.t }

// ---- MemberStore ----

type fakeMemberStore struct{ db *memDB }

func (f *fakeMemberStore) Create(m *models.Member) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, ex := range f.db.members {
		if ex.Username == m.Username {
			return errors.New("duplicate username")
		}
	}
	f.db.nextMemberID++
	m.ID = f.db.nextMemberID
	cp := *m
	f.db.members[m.ID] = &cp
	return nil
}

func (f *fakeMemberStore) GetByID(id uint) (*models.Member, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.members[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMemberStore) GetByUsername(username string) (*models.Member, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.members {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeMemberStore) FindOpenParents(limit int) ([]models.Member, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]uint, 0, len(f.db.members))
	for id, m := range f.db.members {
		if m.Level > 0 && m.HasOpenSlot() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.db.members[id])
	}
	return out, nil
}

func (f *fakeMemberStore) ClaimChildSlot(parentID uint, slot int, childID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.members[parentID]
	if !ok {
		return false, nil
	}
	switch slot {
	case 1:
		if p.Child1ID != nil {
			return false, nil
		}
		p.Child1ID = &childID
	case 2:
		if p.Child2ID != nil || p.Child1ID == nil {
			return false, nil
		}
		p.Child2ID = &childID
	case 3:
		if p.Child3ID != nil || p.Child2ID == nil {
			return false, nil
		}
		p.Child3ID = &childID
	default:
		return false, fmt.Errorf("bad slot %d", slot)
	}
	return true, nil
}

func (f *fakeMemberStore) AssignPlacement(memberID uint, parentID *uint, level int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.members[memberID]
	if !ok {
		return errFakeNotFound
	}
	m.ParentID = parentID
	m.Level = level
	return nil
}

func (f *fakeMemberStore) ClaimRoot(memberID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.members {
		if m.Level > 0 {
			return false, nil
		}
	}
	m, ok := f.db.members[memberID]
	if !ok {
		return false, nil
	}
	m.ParentID = nil
	m.Level = 1
	return true, nil
}

func (f *fakeMemberStore) ParentHolding(childID uint) (*models.Member, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.members {
		for _, c := range []*uint{m.Child1ID, m.Child2ID, m.Child3ID} {
			if c != nil && *c == childID {
				cp := *m
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeMemberStore) CountByLevel() (map[int]int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := map[int]int64{}
	for _, m := range f.db.members {
		if m.Level > 0 {
			out[m.Level]++
		}
	}
	return out, nil
}

func (f *fakeMemberStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.members)), nil
}

func (f *fakeMemberStore) NextJoinOrder() (uint64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.joinOrder++
	return f.db.joinOrder, nil
}

// ---- WalletStore ----

type fakeWalletStore struct{ db *memDB }

func (f *fakeWalletStore) Create(w *models.Wallet) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.wallets[w.MemberID]; ok {
		return errors.New("duplicate wallet")
	}
	f.db.nextWalletID++
	w.ID = f.db.nextWalletID
	cp := *w
	f.db.wallets[w.MemberID] = &cp
	return nil
}

func (f *fakeWalletStore) GetByMemberID(memberID uint) (*models.Wallet, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) ActivateExisting(memberID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok || w.Active {
		return false, nil
	}
	w.Active = true
	return true, nil
}

func (f *fakeWalletStore) CreditIfActive(memberID uint, amountCents int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.creditIfActiveHook != nil {
		if err := f.db.creditIfActiveHook(memberID); err != nil {
			return false, err
		}
	}
	w, ok := f.db.wallets[memberID]
	if !ok || !w.Active {
		return false, nil
	}
	w.BalanceCents += amountCents
	return true, nil
}

func (f *fakeWalletStore) Credit(memberID uint, amountCents int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok {
		return false, nil
	}
	w.BalanceCents += amountCents
	return true, nil
}

func (f *fakeWalletStore) DebitIfSufficient(memberID uint, amountCents int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok || !w.Active || w.BalanceCents < amountCents {
		return false, nil
	}
	w.BalanceCents -= amountCents
	return true, nil
}

func (f *fakeWalletStore) Debit(memberID uint, amountCents int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok {
		return false, errFakeNotFound
	}
	w.BalanceCents -= amountCents
	return true, nil
}

func (f *fakeWalletStore) DeleteIfZero(memberID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.wallets[memberID]
	if !ok || w.BalanceCents != 0 {
		return false, nil
	}
	delete(f.db.wallets, memberID)
	return true, nil
}

func (f *fakeWalletStore) CountActive() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, w := range f.db.wallets {
		if w.Active {
			n++
		}
	}
	return n, nil
}

func (f *fakeWalletStore) ListActiveMemberIDs(level int, excludeBulkID uint) ([]uint, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	audited := map[uint]struct{}{}
	if excludeBulkID > 0 {
		for _, tx := range f.db.txs {
			if tx.BulkRechargeID != nil && *tx.BulkRechargeID == excludeBulkID && tx.Kind == domain.TxKindRecharge {
				audited[tx.MemberID] = struct{}{}
			}
		}
	}
	var out []uint
	for id, w := range f.db.wallets {
		if !w.Active {
			continue
		}
		if level > 0 {
			m, ok := f.db.members[id]
			if !ok || m.Level != level {
				continue
			}
		}
		if _, skip := audited[id]; skip {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeWalletStore) CreditMembers(memberIDs []uint, amountCents int64) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.creditMembersErr != nil {
		return 0, f.db.creditMembersErr
	}
	var n int64
	for _, id := range memberIDs {
		if w, ok := f.db.wallets[id]; ok && w.Active {
			w.BalanceCents += amountCents
			n++
		}
	}
	return n, nil
}

func (f *fakeWalletStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.wallets)), nil
}

// ---- TransactionStore ----

type fakeTxStore struct{ db *memDB }

func (f *fakeTxStore) Create(t *models.Transaction) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.txCreateErr != nil {
		return f.db.txCreateErr
	}
	f.db.nextTxID++
	t.ID = f.db.nextTxID
	cp := *t
	f.db.txs = append(f.db.txs, &cp)
	return nil
}

func (f *fakeTxStore) InsertMany(ts []models.Transaction) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.txInsertManyErr != nil {
		return f.db.txInsertManyErr
	}
	for i := range ts {
		f.db.nextTxID++
		ts[i].ID = f.db.nextTxID
		cp := ts[i]
		f.db.txs = append(f.db.txs, &cp)
	}
	return nil
}

func (f *fakeTxStore) GetByID(id uint) (*models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.txs {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeTxStore) UpdateStatusIf(id uint, from, to string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.txs {
		if t.ID == id && t.Status == from {
			t.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxStore) ListByMember(memberID uint, limit, offset int) ([]models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Transaction
	for i := len(f.db.txs) - 1; i >= 0; i-- {
		if f.db.txs[i].MemberID == memberID {
			out = append(out, *f.db.txs[i])
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeTxStore) ListAll(limit, offset int) ([]models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]models.Transaction, 0, len(f.db.txs))
	for i := len(f.db.txs) - 1; i >= 0; i-- {
		out = append(out, *f.db.txs[i])
	}
	return page(out, limit, offset), nil
}

func (f *fakeTxStore) ListByBulk(bulkID uint, kind string, limit, offset int) ([]models.Transaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.db.txs {
		if t.BulkRechargeID != nil && *t.BulkRechargeID == bulkID && t.Kind == kind {
			out = append(out, *t)
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeTxStore) CountByBulk(bulkID uint, kind string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, t := range f.db.txs {
		if t.BulkRechargeID != nil && *t.BulkRechargeID == bulkID && t.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (f *fakeTxStore) MemberIDsWithBulkAudit(bulkID uint) ([]uint, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []uint
	for _, t := range f.db.txs {
		if t.BulkRechargeID != nil && *t.BulkRechargeID == bulkID && t.Kind == domain.TxKindRecharge {
			out = append(out, t.MemberID)
		}
	}
	return out, nil
}

func (f *fakeTxStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.txs)), nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

// ---- RequestStore ----

type fakeRequestStore struct{ db *memDB }

func (f *fakeRequestStore) Create(r *models.ReferralRequest) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.nextReqID++
	r.ID = f.db.nextReqID
	cp := *r
	f.db.requests[r.ID] = &cp
	return nil
}

func (f *fakeRequestStore) GetByID(id uint) (*models.ReferralRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.requests[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestStore) HasAccepted(requesterID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.RequesterID == requesterID && r.State == domain.RequestAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) HasPending(requesterID uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.RequesterID == requesterID && r.State == domain.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) AcceptedSponsorOf(requesterID uint) (uint, bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.RequesterID == requesterID && r.State == domain.RequestAccepted {
			return r.SponsorID, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeRequestStore) Resolve(id uint, from, to string, respondedAt *time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.requests[id]
	if !ok || r.State != from {
		return false, nil
	}
	r.State = to
	r.RespondedAt = respondedAt
	return true, nil
}

func (f *fakeRequestStore) ListReceived(sponsorID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	return f.list(func(r *models.ReferralRequest) bool { return r.SponsorID == sponsorID }, state, limit, offset)
}

func (f *fakeRequestStore) ListSent(requesterID uint, state string, limit, offset int) ([]models.ReferralRequest, error) {
	return f.list(func(r *models.ReferralRequest) bool { return r.RequesterID == requesterID }, state, limit, offset)
}

func (f *fakeRequestStore) list(match func(*models.ReferralRequest) bool, state string, limit, offset int) ([]models.ReferralRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]uint, 0, len(f.db.requests))
	for id, r := range f.db.requests {
		if match(r) && (state == "" || r.State == state) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]models.ReferralRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.db.requests[id])
	}
	return page(out, limit, offset), nil
}

func (f *fakeRequestStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.requests)), nil
}

// ---- BulkStore ----

type fakeBulkStore struct{ db *memDB }

func (f *fakeBulkStore) Create(b *models.BulkRecharge) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.nextBulkID++
	b.ID = f.db.nextBulkID
	cp := *b
	f.db.bulks[b.ID] = &cp
	return nil
}

func (f *fakeBulkStore) GetByID(id uint) (*models.BulkRecharge, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bulks[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBulkStore) Finalize(id uint, state string, principalTxID *uint, walletCount, totalCents int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bulks[id]
	if !ok {
		return errFakeNotFound
	}
	b.State = state
	b.PrincipalTxID = principalTxID
	if walletCount > 0 {
		b.WalletCount = walletCount
		b.TotalCents = totalCents
	}
	return nil
}

func (f *fakeBulkStore) MarkReversed(id uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bulks[id]
	if !ok || b.Reversed {
		return false, nil
	}
	b.Reversed = true
	return true, nil
}

func (f *fakeBulkStore) List(reversed *bool, limit, offset int) ([]models.BulkRecharge, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]uint, 0, len(f.db.bulks))
	for id, b := range f.db.bulks {
		if reversed != nil && b.Reversed != *reversed {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]models.BulkRecharge, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.db.bulks[id])
	}
	return page(out, limit, offset), nil
}

func (f *fakeBulkStore) ListByState(state string, limit int) ([]models.BulkRecharge, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]uint, 0, len(f.db.bulks))
	for id, b := range f.db.bulks {
		if b.State == state {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.BulkRecharge, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.db.bulks[id])
	}
	return out, nil
}

// ---- WithdrawalStore ----

type fakeWithdrawalStore struct{ db *memDB }

func (f *fakeWithdrawalStore) Create(w *models.Withdrawal) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.withdrawalErr != nil {
		return f.db.withdrawalErr
	}
	f.db.nextWdID++
	w.ID = f.db.nextWdID
	cp := *w
	f.db.withdrawals[w.ID] = &cp
	return nil
}

func (f *fakeWithdrawalStore) GetByID(id uint) (*models.Withdrawal, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.withdrawals[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWithdrawalStore) UpdateStatusIf(id uint, from, to string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	w, ok := f.db.withdrawals[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	return true, nil
}

func (f *fakeWithdrawalStore) ListByMember(memberID uint, limit, offset int) ([]models.Withdrawal, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]uint, 0, len(f.db.withdrawals))
	for id, w := range f.db.withdrawals {
		if w.MemberID == memberID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]models.Withdrawal, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.db.withdrawals[id])
	}
	return page(out, limit, offset), nil
}

func (f *fakeWithdrawalStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.withdrawals)), nil
}

// ---- CodeStore ----

type fakeCodeStore struct{ db *memDB }

func (f *fakeCodeStore) GetOrCreateCode(memberID uint) (*models.ReferralCode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.codes {
		if c.MemberID == memberID && !c.Used {
			cp := *c
			return &cp, nil
		}
	}
	f.db.nextCodeID++
	c := &models.ReferralCode{
		ID:       f.db.nextCodeID,
		MemberID: memberID,
		Code:     fmt.Sprintf("REF-%08X", f.db.nextCodeID),
	}
	f.db.codes[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeCodeStore) GetUnused(code string) (*models.ReferralCode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.codes {
		if c.Code == code && !c.Used {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeCodeStore) MarkUsed(id uint) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.codes[id]
	if !ok || c.Used {
		return false, nil
	}
	c.Used = true
	return true, nil
}

func (f *fakeCodeStore) Count() (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.codes)), nil
}

// ---- CommissionStore ----

type fakeCommissionStore struct{ db *memDB }

func (f *fakeCommissionStore) GetByLevel(level int) (*models.CommissionLevel, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.commissions[level]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommissionStore) Set(level int, commissionCents int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.commissions[level] = &models.CommissionLevel{LevelNumber: level, CommissionCents: commissionCents}
	return nil
}

func (f *fakeCommissionStore) List() ([]models.CommissionLevel, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	levels := make([]int, 0, len(f.db.commissions))
	for l := range f.db.commissions {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	out := make([]models.CommissionLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, *f.db.commissions[l])
	}
	return out, nil
}

// recordingSink captures notifications for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

type sinkEvent struct {
	MemberID uint
	Event    string
	Data     map[string]interface{}
}

func (s *recordingSink) Notify(memberID uint, event string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{MemberID: memberID, Event: event, Data: data})
}

func (s *recordingSink) byEvent(event string) []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkEvent
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
