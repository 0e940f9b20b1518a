package config

import (
	"fmt"
	"time"
)

// ProvidersConfig configures the settlement rails.
type ProvidersConfig struct {
	EFT  EFTConfig  `yaml:"eft"`
	Card CardConfig `yaml:"card"`
	Cash CashConfig `yaml:"cash"`
}

type EFTConfig struct {
	BaseURL        string        `yaml:"base_url"`
	InstitutionID  string        `yaml:"institution_id"`
	APIKey         string        `yaml:"api_key"`
	SigningSecret  string        `yaml:"signing_secret"`
	DebtorAccount  string        `yaml:"debtor_account"`
	DebtorBankCode string        `yaml:"debtor_bank_code"`
	Timeout        time.Duration `yaml:"timeout"`
}

type CardConfig struct {
	SecretKey string `yaml:"secret_key"`
	// BaseURL overrides the Stripe API endpoint.
	BaseURL           string        `yaml:"base_url"`
	MaxNetworkRetries int64         `yaml:"max_network_retries"`
	Timeout           time.Duration `yaml:"timeout"`
}

type CashConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	VoucherValidity time.Duration `yaml:"voucher_validity"`
	Timeout         time.Duration `yaml:"timeout"`
}

func (c *ProvidersConfig) applyDefaults() {
	if c.EFT.Timeout == 0 {
		c.EFT.Timeout = 30 * time.Second
	}
	if c.Card.Timeout == 0 {
		c.Card.Timeout = 30 * time.Second
	}
	if c.Cash.Timeout == 0 {
		c.Cash.Timeout = 30 * time.Second
	}
	if c.Cash.VoucherValidity == 0 {
		c.Cash.VoucherValidity = 30 * 24 * time.Hour
	}
}

// Fraud rule names.
const (
	RuleDuplicatePayment   = "duplicate_payment"
	RuleUnusualAmount      = "unusual_amount"
	RuleBankDetailsChanged = "bank_details_changed"
	RuleHighFrequency      = "high_frequency_payments"
)

// FraudConfig lists the active rules in evaluation order.
type FraudConfig struct {
	HighThreshold   int               `yaml:"high_threshold"`
	MediumThreshold int               `yaml:"medium_threshold"`
	Rules           []FraudRuleConfig `yaml:"rules"`
}

// FraudRuleConfig parameterizes one rule. Fields that do not apply to the
// named rule are ignored.
type FraudRuleConfig struct {
	Name   string        `yaml:"name"`
	Weight int           `yaml:"weight"`
	Window time.Duration `yaml:"window"`
	// MaxCount is the payment count above which high_frequency_payments fires.
	MaxCount int `yaml:"max_count"`
	// Deviations is the standard deviation multiplier for unusual_amount.
	Deviations float64 `yaml:"deviations"`
}

// DefaultFraudRules returns the standard rule set.
func DefaultFraudRules() []FraudRuleConfig {
	return []FraudRuleConfig{
		{Name: RuleDuplicatePayment, Weight: 30, Window: 24 * time.Hour},
		{Name: RuleUnusualAmount, Weight: 20, Window: 180 * 24 * time.Hour, Deviations: 2},
		{Name: RuleBankDetailsChanged, Weight: 25},
		{Name: RuleHighFrequency, Weight: 15, Window: time.Hour, MaxCount: 3},
	}
}

func (c *FraudConfig) applyDefaults() error {
	if c.HighThreshold == 0 {
		c.HighThreshold = 50
	}
	if c.MediumThreshold == 0 {
		c.MediumThreshold = 25
	}
	if c.MediumThreshold > c.HighThreshold {
		return fmt.Errorf("fraud: medium_threshold %d exceeds high_threshold %d",
			c.MediumThreshold, c.HighThreshold)
	}
	if len(c.Rules) == 0 {
		c.Rules = DefaultFraudRules()
		return nil
	}

	defaults := make(map[string]FraudRuleConfig)
	for _, rule := range DefaultFraudRules() {
		defaults[rule.Name] = rule
	}
	for i := range c.Rules {
		rule := &c.Rules[i]
		def, ok := defaults[rule.Name]
		if !ok {
			return fmt.Errorf("fraud: unknown rule %q", rule.Name)
		}
		if rule.Weight == 0 {
			rule.Weight = def.Weight
		}
		if rule.Window == 0 {
			rule.Window = def.Window
		}
		if rule.MaxCount == 0 {
			rule.MaxCount = def.MaxCount
		}
		if rule.Deviations == 0 {
			rule.Deviations = def.Deviations
		}
	}
	return nil
}

type BatchConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

func (c *BatchConfig) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 100
	}
}

type SweeperConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
	Limit      int           `yaml:"limit"`
}

func (c *SweeperConfig) applyDefaults() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = time.Hour
	}
	if c.Limit <= 0 {
		c.Limit = 500
	}
}

// BankConfig is one entry of the bank directory used for referential
// validation of recipient bank details.
type BankConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	// UniversalBranch is accepted in addition to Branches.
	UniversalBranch string   `yaml:"universal_branch"`
	Branches        []string `yaml:"branches"`
	AccountLengths  []int    `yaml:"account_lengths"`
}
