package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// RuleContext is the input of one rule evaluation.
type RuleContext struct {
	Payment *model.Payment
	Now     time.Time
	History repository.PaymentHistoryReader
}

// FraudRule is one heuristic of the fraud engine. Evaluate reads history but
// never writes.
type FraudRule interface {
	Name() string
	Weight() int
	Description() string
	Evaluate(ctx context.Context, rc RuleContext) (bool, error)
}

// NewFraudRules builds the configured rules in order.
func NewFraudRules(cfg config.FraudConfig) ([]FraudRule, error) {
	rules := make([]FraudRule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		switch rc.Name {
		case config.RuleDuplicatePayment:
			rules = append(rules, &DuplicatePaymentRule{weight: rc.Weight, Window: rc.Window})
		case config.RuleUnusualAmount:
			rules = append(rules, &UnusualAmountRule{weight: rc.Weight, Window: rc.Window, Deviations: rc.Deviations})
		case config.RuleBankDetailsChanged:
			rules = append(rules, &BankDetailsChangedRule{weight: rc.Weight})
		case config.RuleHighFrequency:
			rules = append(rules, &HighFrequencyRule{weight: rc.Weight, Window: rc.Window, MaxCount: rc.MaxCount})
		default:
			return nil, fmt.Errorf("unknown fraud rule %q", rc.Name)
		}
	}
	return rules, nil
}

// DuplicatePaymentRule fires when the grant already has a submitted or
// completed payment of the same amount inside Window.
type DuplicatePaymentRule struct {
	weight int
	Window time.Duration
}

// NewDuplicatePaymentRule creates the rule.
func NewDuplicatePaymentRule(weight int, window time.Duration) *DuplicatePaymentRule {
	return &DuplicatePaymentRule{weight: weight, Window: window}
}

func (r *DuplicatePaymentRule) Name() string { return config.RuleDuplicatePayment }
func (r *DuplicatePaymentRule) Weight() int  { return r.weight }

func (r *DuplicatePaymentRule) Description() string {
	return fmt.Sprintf("same grant and amount already paid within %s", r.Window)
}

func (r *DuplicatePaymentRule) Evaluate(ctx context.Context, rc RuleContext) (bool, error) {
	count, err := rc.History.CountByGrantAmountStatusSince(ctx,
		rc.Payment.GrantID,
		rc.Payment.Amount,
		[]entity.PaymentStatus{entity.PaymentStatusSubmitted, entity.PaymentStatusCompleted},
		rc.Now.Add(-r.Window),
		rc.Payment.ID,
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UnusualAmountRule fires when the amount exceeds the mean plus Deviations
// sample standard deviations of the grant's completed amounts inside Window.
// Without history it never fires; a single sample has zero deviation.
type UnusualAmountRule struct {
	weight     int
	Window     time.Duration
	Deviations float64
}

// NewUnusualAmountRule creates the rule.
func NewUnusualAmountRule(weight int, window time.Duration, deviations float64) *UnusualAmountRule {
	return &UnusualAmountRule{weight: weight, Window: window, Deviations: deviations}
}

func (r *UnusualAmountRule) Name() string { return config.RuleUnusualAmount }
func (r *UnusualAmountRule) Weight() int  { return r.weight }

func (r *UnusualAmountRule) Description() string {
	return fmt.Sprintf("amount exceeds grant average by more than %g standard deviations", r.Deviations)
}

func (r *UnusualAmountRule) Evaluate(ctx context.Context, rc RuleContext) (bool, error) {
	amounts, err := rc.History.CompletedAmountsSince(ctx, rc.Payment.GrantID, rc.Now.Add(-r.Window))
	if err != nil {
		return false, err
	}
	if len(amounts) == 0 {
		return false, nil
	}

	mean, stddev := meanAndStdDev(amounts)
	limit := mean.Add(stddev.Mul(decimal.NewFromFloat(r.Deviations)))
	return rc.Payment.Amount.GreaterThan(limit), nil
}

func meanAndStdDev(values []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	n := decimal.NewFromInt(int64(len(values)))
	mean := decimal.Sum(values[0], values[1:]...).Div(n)
	if len(values) < 2 {
		return mean, decimal.Zero
	}

	squares := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		squares = squares.Add(diff.Mul(diff))
	}
	variance := squares.Div(n.Sub(decimal.NewFromInt(1)))
	return mean, decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}

// BankDetailsChangedRule fires when the grant's most recent completed payment
// went to a different account.
type BankDetailsChangedRule struct {
	weight int
}

// NewBankDetailsChangedRule creates the rule.
func NewBankDetailsChangedRule(weight int) *BankDetailsChangedRule {
	return &BankDetailsChangedRule{weight: weight}
}

func (r *BankDetailsChangedRule) Name() string { return config.RuleBankDetailsChanged }
func (r *BankDetailsChangedRule) Weight() int  { return r.weight }

func (r *BankDetailsChangedRule) Description() string {
	return "bank details differ from the last completed payment"
}

func (r *BankDetailsChangedRule) Evaluate(ctx context.Context, rc RuleContext) (bool, error) {
	if !rc.Payment.Method.RequiresBankDetails() {
		return false, nil
	}
	last, err := rc.History.LatestCompleted(ctx, rc.Payment.GrantID)
	if err != nil {
		return false, err
	}
	if last == nil || last.BankDetails().IsZero() {
		return false, nil
	}
	return !last.BankDetails().SameAccount(rc.Payment.BankDetails()), nil
}

// HighFrequencyRule fires when more than MaxCount payments of the grant were
// created inside Window.
type HighFrequencyRule struct {
	weight   int
	Window   time.Duration
	MaxCount int
}

// NewHighFrequencyRule creates the rule.
func NewHighFrequencyRule(weight int, window time.Duration, maxCount int) *HighFrequencyRule {
	return &HighFrequencyRule{weight: weight, Window: window, MaxCount: maxCount}
}

func (r *HighFrequencyRule) Name() string { return config.RuleHighFrequency }
func (r *HighFrequencyRule) Weight() int  { return r.weight }

func (r *HighFrequencyRule) Description() string {
	return fmt.Sprintf("more than %d payments within %s", r.MaxCount, r.Window)
}

func (r *HighFrequencyRule) Evaluate(ctx context.Context, rc RuleContext) (bool, error) {
	count, err := rc.History.CountByGrantSince(ctx, rc.Payment.GrantID, rc.Now.Add(-r.Window))
	if err != nil {
		return false, err
	}
	return count > int64(r.MaxCount), nil
}
