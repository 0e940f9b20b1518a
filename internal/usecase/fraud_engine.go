package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// FraudEvaluator scores a candidate payment.
type FraudEvaluator interface {
	Evaluate(ctx context.Context, payment *model.Payment) *entity.FraudVerdict
}

// FraudEngine runs an ordered rule set and sums the weights of the rules that
// fire. A rule that fails to evaluate counts as not triggered.
type FraudEngine struct {
	rules           []FraudRule
	history         repository.PaymentHistoryReader
	highThreshold   int
	mediumThreshold int
	now             func() time.Time
	logger          *zap.Logger
}

// NewFraudEngine builds the engine from configuration.
func NewFraudEngine(cfg config.FraudConfig, history repository.PaymentHistoryReader, logger *zap.Logger) (*FraudEngine, error) {
	rules, err := NewFraudRules(cfg)
	if err != nil {
		return nil, err
	}
	return NewFraudEngineWithRules(rules, cfg.HighThreshold, cfg.MediumThreshold, history, logger), nil
}

// NewFraudEngineWithRules creates an engine over an explicit rule set.
func NewFraudEngineWithRules(
	rules []FraudRule,
	highThreshold, mediumThreshold int,
	history repository.PaymentHistoryReader,
	logger *zap.Logger,
) *FraudEngine {
	return &FraudEngine{
		rules:           rules,
		history:         history,
		highThreshold:   highThreshold,
		mediumThreshold: mediumThreshold,
		now:             time.Now,
		logger:          logger,
	}
}

// SetClock replaces the engine's time source.
func (e *FraudEngine) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate never fails and never modifies payment.
func (e *FraudEngine) Evaluate(ctx context.Context, payment *model.Payment) *entity.FraudVerdict {
	ctx, span := tracer.Start(ctx, "FraudEngine.Evaluate")
	defer span.End()

	rc := RuleContext{
		Payment: payment,
		Now:     e.now().UTC(),
		History: e.history,
	}

	verdict := &entity.FraudVerdict{
		TriggeredRules: []string{},
		Reasons:        []string{},
	}
	for _, rule := range e.rules {
		triggered, err := rule.Evaluate(ctx, rc)
		if err != nil {
			e.logger.Warn("Fraud rule evaluation failed, treating as not triggered",
				zap.String("rule", rule.Name()),
				zap.String("payment_id", payment.ID),
				zap.String("grant_id", payment.GrantID),
				zap.Error(err))
			continue
		}
		if !triggered {
			continue
		}
		verdict.TriggeredRules = append(verdict.TriggeredRules, rule.Name())
		verdict.Reasons = append(verdict.Reasons, rule.Description())
		verdict.RiskScore += rule.Weight()
	}
	verdict.RiskLevel = e.Level(verdict.RiskScore)

	span.SetAttributes(
		attribute.Int("fraud.risk_score", verdict.RiskScore),
		attribute.String("fraud.risk_level", string(verdict.RiskLevel)),
	)
	return verdict
}

// Level maps a score to a risk level. Thresholds are inclusive.
func (e *FraudEngine) Level(score int) entity.RiskLevel {
	switch {
	case score >= e.highThreshold:
		return entity.RiskLevelHigh
	case score >= e.mediumThreshold:
		return entity.RiskLevelMedium
	default:
		return entity.RiskLevelLow
	}
}
