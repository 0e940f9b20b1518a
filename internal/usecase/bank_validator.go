package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
)

// BankValidator checks recipient bank details before dispatch.
type BankValidator interface {
	Validate(ctx context.Context, details entity.BankDetails) error
}

// BankDetailsValidator validates bank details syntactically with struct tags
// and referentially against the configured bank directory. An empty directory
// disables the referential checks.
type BankDetailsValidator struct {
	validate *validator.Validate
	banks    map[string]config.BankConfig
	logger   *zap.Logger
}

// NewBankDetailsValidator creates a validator over the given bank directory.
func NewBankDetailsValidator(banks []config.BankConfig, logger *zap.Logger) *BankDetailsValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	directory := make(map[string]config.BankConfig, len(banks))
	for _, bank := range banks {
		directory[strings.ToUpper(bank.Code)] = bank
	}
	if len(directory) == 0 {
		logger.Warn("Bank directory is empty, only syntactic bank detail checks are active")
	}

	return &BankDetailsValidator{
		validate: validate,
		banks:    directory,
		logger:   logger,
	}
}

// Validate returns an invalid bank details ValidationError for the first
// failing field.
func (v *BankDetailsValidator) Validate(ctx context.Context, details entity.BankDetails) error {
	if err := v.validate.StructCtx(ctx, details); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domainErrors.NewInvalidBankDetailsError(fe.Field(), failedTag(fe))
		}
		return domainErrors.NewInvalidBankDetailsError("", err.Error())
	}

	if len(v.banks) == 0 {
		return nil
	}

	bank, ok := v.banks[strings.ToUpper(details.BankCode)]
	if !ok {
		return domainErrors.NewInvalidBankDetailsError("bank_code", "unknown bank")
	}

	if !branchAllowed(bank, details.BranchCode) {
		return domainErrors.NewInvalidBankDetailsError("branch_code", "branch does not belong to "+bank.Name)
	}

	if len(bank.AccountLengths) > 0 && !containsInt(bank.AccountLengths, len(details.AccountNumber)) {
		return domainErrors.NewInvalidBankDetailsError("account_number", "invalid length for "+bank.Name)
	}

	return nil
}

func branchAllowed(bank config.BankConfig, branch string) bool {
	if bank.UniversalBranch == "" && len(bank.Branches) == 0 {
		return true
	}
	if branch == bank.UniversalBranch {
		return true
	}
	for _, b := range bank.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func failedTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "numeric":
		return "must contain digits only"
	case "alphanum":
		return "must be alphanumeric"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// jsonFieldName reports fields by their JSON name.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
