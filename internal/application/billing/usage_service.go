package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/resumeroast/backend/internal/domain/billing"
	"github.com/resumeroast/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RecordUsageInput describes one completed billable action to meter
type RecordUsageInput struct {
	UserID  uuid.UUID
	Action  billing.UsageAction
	Metrics billing.ProviderMetrics

	// OccurredAt is when the action completed. Zero means "now". The usage
	// record's billing month is derived from this timestamp.
	OccurredAt time.Time
}

// RecordUsageResult reports what the meter decided
type RecordUsageResult struct {
	Record       *billing.UsageRecord
	Overage      bool
	MonthlyUsed  int64
	MonthlyLimit int64
	BonusCredits int64
	WindowReset  bool
}

// CheckQuotaResult is the read-only variant of a metering decision
type CheckQuotaResult struct {
	Allowed      bool
	Action       billing.UsageAction
	MonthlyUsed  int64
	MonthlyLimit int64
	BonusCredits int64
	Err          error
}

// UsageService meters billable actions against tier quotas and bonus
// credits. Counter updates go through optimistic locking: on a version
// conflict the whole decision is recomputed against fresh state and retried,
// bounded by maxRetries. The user row update and the usage record insert
// commit in one transaction, so a retried attempt never leaves a stray
// ledger entry behind.
type UsageService struct {
	userRepo   billing.UserRepository
	tiers      billing.TierTable
	accountant *billing.CostAccountant
	clock      billing.QuotaClock
	logger     *zap.Logger
	maxRetries int
	observer   MeterObserver
}

// UsageServiceConfig contains configuration for UsageService
type UsageServiceConfig struct {
	// MaxRetries bounds the optimistic-lock retry loop
	MaxRetries int
}

// DefaultUsageServiceConfig returns default configuration
func DefaultUsageServiceConfig() UsageServiceConfig {
	return UsageServiceConfig{MaxRetries: 3}
}

// NewUsageService creates a new UsageService
func NewUsageService(
	userRepo billing.UserRepository,
	tiers billing.TierTable,
	accountant *billing.CostAccountant,
	logger *zap.Logger,
	config UsageServiceConfig,
) *UsageService {
	retries := config.MaxRetries
	if retries < 1 {
		retries = DefaultUsageServiceConfig().MaxRetries
	}
	return &UsageService{
		userRepo:   userRepo,
		tiers:      tiers,
		accountant: accountant,
		clock:      billing.NewQuotaClock(),
		logger:     logger,
		maxRetries: retries,
		observer:   noopObserver{},
	}
}

// SetObserver wires a telemetry observer. Must be called before the service
// starts handling traffic.
func (s *UsageService) SetObserver(observer MeterObserver) {
	if observer != nil {
		s.observer = observer
	}
}

// RecordUsage meters one action. It resolves the user's tier, rolls the
// quota window if stale, decides between the monthly allowance and the
// bonus-credit overage path, prices the action, and commits counters plus
// ledger entry atomically.
//
// Outcome resolution when the monthly allowance is full:
//   - bonus balance zero: QuotaExceededError
//   - bonus balance positive but below the credit cost: CreditExceededError
//   - otherwise: the action proceeds as overage, debiting the balance
func (s *UsageService) RecordUsage(ctx context.Context, input RecordUsageInput) (*RecordUsageResult, error) {
	if input.UserID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if !input.Action.IsValid() {
		return nil, shared.NewDomainError(shared.ErrUnknownAction.Code,
			"unknown usage action "+string(input.Action))
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		result, err := s.tryRecord(ctx, input, occurredAt)
		if err == nil {
			if attempt > 0 {
				s.logger.Debug("Usage recorded after retry",
					zap.String("user_id", input.UserID.String()),
					zap.Int("attempt", attempt+1))
			}
			return result, nil
		}
		if !shared.ErrConcurrencyConflict.Is(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Version conflict while recording usage, retrying",
			zap.String("user_id", input.UserID.String()),
			zap.Int("attempt", attempt+1))
	}

	s.logger.Warn("Usage recording exhausted retries",
		zap.String("user_id", input.UserID.String()),
		zap.String("action", string(input.Action)),
		zap.Int("max_retries", s.maxRetries))
	return nil, lastErr
}

func (s *UsageService) tryRecord(ctx context.Context, input RecordUsageInput, occurredAt time.Time) (*RecordUsageResult, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	limits, err := s.tiers.LimitsFor(user.Tier)
	if err != nil {
		return nil, err
	}
	if !limits.Allows(input.Action) {
		s.observer.RecordDenied(ctx, string(input.Action), string(user.Tier), DenyReasonActionNotAllowed)
		return nil, NewActionNotAllowedError(input.Action, user.Tier)
	}

	windowReset, err := s.clock.Reset(user, occurredAt)
	if err != nil {
		return nil, err
	}

	price, err := s.accountant.Price(input.Action, input.Metrics)
	if err != nil {
		return nil, err
	}

	overage := false
	if limits.HasQuotaRoom(user.MonthlyRoasts) {
		user.ConsumeQuota()
	} else {
		required := price.Credits * limits.CreditMultiplier
		switch {
		case user.BonusCredits == 0:
			s.observer.RecordDenied(ctx, string(input.Action), string(user.Tier), DenyReasonQuotaExceeded)
			return nil, NewQuotaExceededError(input.Action, user.MonthlyRoasts, limits.MonthlyQuota)
		case user.BonusCredits < required:
			s.observer.RecordDenied(ctx, string(input.Action), string(user.Tier), DenyReasonCreditExceeded)
			return nil, NewCreditExceededError(input.Action, user.BonusCredits, required)
		default:
			if err := user.ConsumeBonusCredits(required); err != nil {
				return nil, err
			}
			overage = true
			// The ledger entry carries the credits actually debited,
			// multiplier included, so summing records reconciles against
			// the balance.
			price.Credits = required
		}
	}

	record, err := billing.NewUsageRecord(user.ID, input.Action,
		input.Metrics.Provider, input.Metrics.Model, price, overage, occurredAt)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SaveWithUsageRecord(ctx, user, record); err != nil {
		return nil, err
	}

	s.observer.RecordUsage(ctx, string(input.Action), input.Metrics.Model,
		string(user.Tier), record.Cost.Amount().InexactFloat64(), overage)

	s.logger.Info("Usage recorded",
		zap.String("user_id", user.ID.String()),
		zap.String("action", string(input.Action)),
		zap.String("model", input.Metrics.Model),
		zap.String("cost", record.Cost.String()),
		zap.Bool("overage", overage),
		zap.Int64("monthly_used", user.MonthlyRoasts))

	return &RecordUsageResult{
		Record:       record,
		Overage:      overage,
		MonthlyUsed:  user.MonthlyRoasts,
		MonthlyLimit: limits.MonthlyQuota,
		BonusCredits: user.BonusCredits,
		WindowReset:  windowReset,
	}, nil
}

// CheckQuota previews whether an action would be admitted, without consuming
// anything. The answer can go stale immediately under concurrency; only
// RecordUsage is authoritative.
func (s *UsageService) CheckQuota(ctx context.Context, userID uuid.UUID, action billing.UsageAction) (*CheckQuotaResult, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.ErrUnknownAction.Code,
			"unknown usage action "+string(action))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	limits, err := s.tiers.LimitsFor(user.Tier)
	if err != nil {
		return nil, err
	}

	result := &CheckQuotaResult{
		Action:       action,
		MonthlyLimit: limits.MonthlyQuota,
		BonusCredits: user.BonusCredits,
	}

	// A stale window counts as zero usage even before the next write
	// actually resets it.
	monthlyUsed := user.MonthlyRoasts
	if s.clock.ShouldReset(user, time.Now()) {
		monthlyUsed = 0
	}
	result.MonthlyUsed = monthlyUsed

	switch {
	case !limits.Allows(action):
		result.Err = NewActionNotAllowedError(action, user.Tier)
	case limits.HasQuotaRoom(monthlyUsed):
		result.Allowed = true
	case user.BonusCredits > 0:
		result.Allowed = true
	default:
		result.Err = NewQuotaExceededError(action, monthlyUsed, limits.MonthlyQuota)
	}
	return result, nil
}

// GrantCredits tops up a user's bonus-credit balance, retrying on version
// conflicts the same way RecordUsage does
func (s *UsageService) GrantCredits(ctx context.Context, userID uuid.UUID, credits int64) error {
	if userID == uuid.Nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "user ID cannot be empty")
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := user.AddBonusCredits(credits); err != nil {
			return err
		}
		err = s.userRepo.SaveWithLock(ctx, user)
		if err == nil {
			s.observer.RecordCreditsGranted(ctx, credits)
			s.logger.Info("Bonus credits granted",
				zap.String("user_id", userID.String()),
				zap.Int64("credits", credits),
				zap.Int64("balance", user.BonusCredits))
			return nil
		}
		if !shared.ErrConcurrencyConflict.Is(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
