package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/jwt"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username or email already registered")
	ErrUnknownSponsor     = errors.New("sponsor code not found")
	ErrWeakPassword       = errors.New("password must be at least 8 characters with letters and digits")
	ErrUserInactive       = errors.New("account is inactive")
)

const referralCodeLength = 8

// AuthService handles registration and login
type AuthService struct {
	accountRepo repositories.AccountRepository
	cfg         *config.Config
	log         *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(accountRepo repositories.AccountRepository, cfg *config.Config, log *logger.Logger) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		cfg:         cfg,
		log:         log,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	SponsorCode string `json:"sponsor_code"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Account     *models.AccountResponse `json:"account"`
	AccessToken string                  `json:"access_token"`
}

// Register creates an INACTIVE account with a zero balance and its own referral code
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.SponsorCode = strings.ToUpper(strings.TrimSpace(input.SponsorCode))

	if len(input.Username) < 3 || len(input.Username) > 50 || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: username must be 3-50 characters and email must be valid", domain.ErrInvalidInput)
	}
	if !password.ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}

	// 1. Uniqueness
	exists, err := s.accountRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if !exists {
		exists, err = s.accountRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, err
		}
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// 2. Sponsor must resolve
	var sponsorCode *string
	if input.SponsorCode != "" {
		if _, err := s.accountRepo.GetByReferralCode(ctx, input.SponsorCode); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownSponsor
			}
			return nil, err
		}
		sponsorCode = &input.SponsorCode
	}

	// 3. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	referralCode, err := s.newReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:         input.Username,
		Email:            input.Email,
		Password:         hashedPassword,
		Role:             models.RoleUser,
		ReferralCode:     referralCode,
		SponsorCode:      sponsorCode,
		MembershipStatus: string(domain.MembershipInactive),
		IsActive:         true,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, err
	}

	s.log.WithField("account_id", account.ID).Infof("✅ Account registered: %s", account.Username)

	return &AuthResponse{Account: account.ToResponse(), AccessToken: token}, nil
}

// Login authenticates an account and issues an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(input.Password, account.Password) {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrUserInactive
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, err
	}

	s.log.WithField("account_id", account.ID).Infof("✅ Account logged in: %s", account.Username)

	return &AuthResponse{Account: account.ToResponse(), AccessToken: token}, nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
}

func (s *AuthService) issueToken(account *models.Account) (string, error) {
	return jwt.GenerateAccessToken(
		account.ID,
		account.ReferralCode,
		account.Username,
		account.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
}

// newReferralCode draws codes from a uuid until an unused one is found
func (s *AuthService) newReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:referralCodeLength])
		taken, err := s.accountRepo.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique referral code")
}
