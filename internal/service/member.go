package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// MemberService registers members and hands them to the placement engine.
type MemberService struct {
	members   MemberStore
	codes     CodeStore
	placement *TreePlacement
}

func NewMemberService(members MemberStore, codes CodeStore, placement *TreePlacement) *MemberService {
	return &MemberService{members: members, codes: codes, placement: placement}
}

// RegisterInput carries the signup form. ValidateCode controls whether the
// referral code must exist unused; when false the code is stored untouched.
type RegisterInput struct {
	FullName     string
	Username     string
	Email        string
	DNI          string
	Password     string
	PhoneLine    string
	WhatsappLine string
	Bank         string
	AccountNo    string
	AccountOwner string
	ReferralCode string
	ValidateCode bool
}

// Register creates the member, places them in the tree and, when the signup
// consumed a one-shot referral code, marks the code used only after the
// registration persisted.
func (s *MemberService) Register(in RegisterInput) (*models.Member, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.DNI = strings.TrimSpace(in.DNI)
	in.Password = strings.TrimSpace(in.Password)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)
	if in.FullName == "" || in.Username == "" || in.Email == "" || in.DNI == "" || in.Password == "" {
		return nil, fmt.Errorf("full name, username, email, dni and password are required")
	}

	var code *models.ReferralCode
	if in.ValidateCode && in.ReferralCode != "" {
		rc, err := s.codes.GetUnused(in.ReferralCode)
		if err != nil || rc == nil {
			return nil, ErrCodeUsed
		}
		code = rc
	}
	if _, err := s.members.GetByUsername(in.Username); err == nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	order, err := s.members.NextJoinOrder()
	if err != nil {
		return nil, err
	}
	m := &models.Member{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		DNI:          in.DNI,
		PhoneLine:    strings.TrimSpace(in.PhoneLine),
		WhatsappLine: strings.TrimSpace(in.WhatsappLine),
		Bank:         strings.TrimSpace(in.Bank),
		AccountNo:    strings.TrimSpace(in.AccountNo),
		AccountOwner: strings.TrimSpace(in.AccountOwner),
		PasswordHash: string(hash),
		ReferralCode: in.ReferralCode,
		JoinOrder:    order,
	}
	if err := s.members.Create(m); err != nil {
		return nil, err
	}
	if _, err := s.placement.PlaceNewMember(m.ID); err != nil {
		return nil, err
	}
	if code != nil {
		_, _ = s.codes.MarkUsed(code.ID)
	}
	placed, err := s.members.GetByID(m.ID)
	if err != nil {
		return m, nil
	}
	return placed, nil
}

// CheckPassword verifies a member's password.
func (s *MemberService) CheckPassword(memberID uint, password string) (bool, error) {
	m, err := s.members.GetByID(memberID)
	if err != nil {
		return false, ErrNotFound
	}
	return bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil, nil
}

// Get returns one member.
func (s *MemberService) Get(memberID uint) (*models.Member, error) {
	m, err := s.members.GetByID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// MyReferralCode returns the member's invite code, creating one on first
// access.
func (s *MemberService) MyReferralCode(memberID uint) (*models.ReferralCode, error) {
	if _, err := s.members.GetByID(memberID); err != nil {
		return nil, ErrNotFound
	}
	return s.codes.GetOrCreateCode(memberID)
}
