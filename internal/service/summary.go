package service

// NetworkSummary is the entity-count dashboard block.
type NetworkSummary struct {
	Members      int64 `json:"total_members"`
	Wallets      int64 `json:"total_wallets"`
	ActiveWallet int64 `json:"active_wallets"`
	Transactions int64 `json:"total_transactions"`
	Requests     int64 `json:"total_referral_requests"`
	Withdrawals  int64 `json:"total_withdrawals"`
	Codes        int64 `json:"total_referral_codes"`
}

// SummaryService aggregates counts across the stores.
type SummaryService struct {
	members     MemberStore
	wallets     WalletStore
	txs         TransactionStore
	requests    RequestStore
	withdrawals WithdrawalStore
	codes       CodeStore
}

func NewSummaryService(members MemberStore, wallets WalletStore, txs TransactionStore, requests RequestStore, withdrawals WithdrawalStore, codes CodeStore) *SummaryService {
	return &SummaryService{
		members:     members,
		wallets:     wallets,
		txs:         txs,
		requests:    requests,
		withdrawals: withdrawals,
		codes:       codes,
	}
}

func (s *SummaryService) Summarize() (*NetworkSummary, error) {
	out := &NetworkSummary{}
	var err error
	if out.Members, err = s.members.Count(); err != nil {
		return nil, err
	}
	if out.Wallets, err = s.wallets.Count(); err != nil {
		return nil, err
	}
	if out.ActiveWallet, err = s.wallets.CountActive(); err != nil {
		return nil, err
	}
	if out.Transactions, err = s.txs.Count(); err != nil {
		return nil, err
	}
	if out.Requests, err = s.requests.Count(); err != nil {
		return nil, err
	}
	if out.Withdrawals, err = s.withdrawals.Count(); err != nil {
		return nil, err
	}
	if out.Codes, err = s.codes.Count(); err != nil {
		return nil, err
	}
	return out, nil
}
