package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxCommissionLevels is the depth of the sponsor chain that earns commission
const MaxCommissionLevels = 5

// CommissionService fans a triggering payment out to up to five sponsors.
// Each level is credited in its own ledger transaction; the batchId|level
// reference makes a re-run after partial failure credit only missing levels.
type CommissionService struct {
	accountRepo repositories.AccountRepository
	planRepo    repositories.PlanRepository
	ledger      *LedgerService
	log         *logger.Logger
	now         func() time.Time
}

// NewCommissionService creates a new commission service
func NewCommissionService(
	accountRepo repositories.AccountRepository,
	planRepo repositories.PlanRepository,
	ledger *LedgerService,
	log *logger.Logger,
) *CommissionService {
	return &CommissionService{
		accountRepo: accountRepo,
		planRepo:    planRepo,
		ledger:      ledger,
		log:         log,
		now:         time.Now,
	}
}

// CommissionReference builds the idempotency key for one level of a batch
func CommissionReference(batchID string, level int) string {
	return batchID + "|" + strconv.Itoa(level)
}

// Distribute credits REFERRAL_COMMISSION to the sponsors of triggeringAccountID.
// Levels with an inactive rate or a non-participating sponsor are skipped and
// the walk continues with the same basis. On failure the credits already made
// are returned together with the error.
func (s *CommissionService) Distribute(ctx context.Context, triggeringAccountID uint, basis decimal.Decimal, batchID string) ([]*models.Transaction, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" || strings.Contains(batchID, "|") {
		return nil, fmt.Errorf("%w: batch id is required and must not contain '|'", domain.ErrInvalidInput)
	}
	if basis.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	trigger, err := s.accountRepo.GetByID(ctx, triggeringAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %d: %w", triggeringAccountID, domain.ErrNotFound)
		}
		return nil, err
	}

	// Rates are read on every call so edits take effect without a restart.
	rates, err := s.loadRates(ctx)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"trigger_account_id": trigger.ID,
		"batch_id":           batchID,
	}

	visited := map[uint]bool{trigger.ID: true}
	credited := make([]*models.Transaction, 0, MaxCommissionLevels)
	sponsorCode := trigger.SponsorCode

	for level := 1; level <= MaxCommissionLevels; level++ {
		if sponsorCode == nil || *sponsorCode == "" {
			break
		}

		sponsor, err := s.accountRepo.GetByReferralCode(ctx, *sponsorCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.integrity(fields, level, "orphan", fmt.Sprintf("⚠️ Sponsor code %s does not resolve, stopping fan-out", *sponsorCode))
				break
			}
			return credited, fmt.Errorf("resolve sponsor at level %d: %w", level, err)
		}

		if visited[sponsor.ID] {
			s.integrity(fields, level, "cycle", fmt.Sprintf("⚠️ Sponsor cycle at account %d, aborting fan-out", sponsor.ID))
			break
		}
		visited[sponsor.ID] = true
		sponsorCode = sponsor.SponsorCode

		rate, ok := rates[level]
		if !ok {
			metrics.CommissionLevels.WithLabelValues("skipped_rate").Inc()
			continue
		}
		if !s.participates(sponsor) {
			metrics.CommissionLevels.WithLabelValues("skipped_sponsor").Inc()
			s.log.WithFields(fields).WithFields(logrus.Fields{
				"level":      level,
				"account_id": sponsor.ID,
			}).Debug("⏭️ Sponsor not active, level skipped")
			continue
		}

		amount := rate.AmountFor(basis)
		if !amount.IsPositive() {
			metrics.CommissionLevels.WithLabelValues("skipped_rate").Inc()
			continue
		}

		reference := CommissionReference(batchID, level)
		paid, err := s.ledger.ReferenceExists(ctx, domain.KindReferralCommission, reference)
		if err != nil {
			return credited, err
		}
		if paid {
			metrics.CommissionLevels.WithLabelValues("duplicate").Inc()
			continue
		}

		txn, err := s.ledger.Credit(ctx, LedgerEntry{
			AccountID:   sponsor.ID,
			Amount:      amount,
			Kind:        domain.KindReferralCommission,
			Reference:   reference,
			Description: fmt.Sprintf("Level %d commission from account #%d", level, trigger.ID),
		})
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateReference) {
				metrics.CommissionLevels.WithLabelValues("duplicate").Inc()
				continue
			}
			s.log.WithFields(fields).WithField("level", level).WithError(err).Error("❌ Commission credit failed")
			return credited, fmt.Errorf("credit level %d: %w", level, err)
		}

		metrics.CommissionLevels.WithLabelValues("paid").Inc()
		credited = append(credited, txn)
	}

	s.log.WithFields(fields).WithField("credited", len(credited)).Info("✅ Commission distributed")
	return credited, nil
}

// ListRates returns the configured commission rates ordered by level
func (s *CommissionService) ListRates(ctx context.Context) ([]*models.CommissionRate, error) {
	return s.planRepo.ListCommissionRates(ctx)
}

func (s *CommissionService) loadRates(ctx context.Context) (map[int]*models.CommissionRate, error) {
	rows, err := s.planRepo.ListCommissionRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commission rates: %w", err)
	}

	rates := make(map[int]*models.CommissionRate, len(rows))
	for _, rate := range rows {
		if !rate.IsActive {
			continue
		}
		if !rate.IsValid() {
			s.log.WithField("level", rate.Level).Warn("⚠️ Commission rate has both or neither of percentage and fixed amount, ignored")
			continue
		}
		rates[rate.Level] = rate
	}
	return rates, nil
}

// participates reports whether a sponsor may receive commission
func (s *CommissionService) participates(sponsor *models.Account) bool {
	return !sponsor.DeletedAt.Valid && membershipActive(sponsor, s.now())
}

func (s *CommissionService) integrity(fields logrus.Fields, level int, source, msg string) {
	metrics.IntegrityWarnings.WithLabelValues("commission_" + source).Inc()
	s.log.Integrity(logrus.Fields{
		"trigger_account_id": fields["trigger_account_id"],
		"batch_id":           fields["batch_id"],
		"level":              level,
		"reason":             source,
	}, msg)
}

// membershipActive reports whether the account may earn right now
func membershipActive(account *models.Account, now time.Time) bool {
	if !account.IsActive || account.MembershipStatus != string(domain.MembershipActive) {
		return false
	}
	return account.EarningsExpiryDate == nil || now.Before(*account.EarningsExpiryDate)
}
