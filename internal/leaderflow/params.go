package leaderflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SignalParams are the thresholds of the leader-signal predicate.
type SignalParams struct {
	MoneyMultiplier    float64 `json:"money_multiplier" yaml:"money_multiplier" validate:"gt=1"`
	MinAmount          float64 `json:"min_amount" yaml:"min_amount" validate:"gte=0"`
	MinPriceChange     float64 `json:"min_price_change" yaml:"min_price_change" validate:"gte=0"`
	EnhancedMultiplier float64 `json:"enhanced_multiplier,omitempty" yaml:"enhanced_multiplier" validate:"omitempty,gt=1"`
}

// Enhanced returns the effective enhanced multiplier.
func (p SignalParams) Enhanced() float64 {
	if p.EnhancedMultiplier > 0 {
		return p.EnhancedMultiplier
	}
	return p.MoneyMultiplier * EnhancedFactor
}

// MatchParams control the follower response window.
type MatchParams struct {
	MaxLagMinutes int     `json:"max_lag_minutes" yaml:"max_lag_minutes" validate:"gt=0"`
	MinGain       float64 `json:"min_gain" yaml:"min_gain" validate:"gte=0"` // percent
	Workers       int     `json:"workers,omitempty" yaml:"workers" validate:"gte=0"`
}

// Params is the full engine configuration.
type Params struct {
	Signal SignalParams `json:"signal" yaml:"signal"`
	Match  MatchParams  `json:"match" yaml:"match"`
}

// DefaultParams returns the thresholds tuned for Taiwan minute data.
func DefaultParams() Params {
	return Params{
		Signal: SignalParams{
			MoneyMultiplier: 1.3,
			MinAmount:       5_000_000,
			MinPriceChange:  0.003,
		},
		Match: MatchParams{
			MaxLagMinutes: 30,
			MinGain:       0.5,
			Workers:       1,
		},
	}
}

// Merge returns p with every non-zero field of o laid over it. A partial
// override such as {"signal":{"money_multiplier":1.5}} keeps the remaining
// thresholds of p; zero in o always means "unset", so a threshold cannot be
// lowered to zero through Merge.
func (p Params) Merge(o Params) Params {
	if o.Signal.MoneyMultiplier != 0 {
		p.Signal.MoneyMultiplier = o.Signal.MoneyMultiplier
	}
	if o.Signal.MinAmount != 0 {
		p.Signal.MinAmount = o.Signal.MinAmount
	}
	if o.Signal.MinPriceChange != 0 {
		p.Signal.MinPriceChange = o.Signal.MinPriceChange
	}
	if o.Signal.EnhancedMultiplier != 0 {
		p.Signal.EnhancedMultiplier = o.Signal.EnhancedMultiplier
	}
	if o.Match.MaxLagMinutes != 0 {
		p.Match.MaxLagMinutes = o.Match.MaxLagMinutes
	}
	if o.Match.MinGain != 0 {
		p.Match.MinGain = o.Match.MinGain
	}
	if o.Match.Workers != 0 {
		p.Match.Workers = o.Match.Workers
	}
	return p
}

// ValidationError reports a rejected parameter.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator, keyed by json field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate rejects misconfigured parameters before any scan begins.
func (p Params) Validate() error {
	if err := Validator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Params."),
				Message: describeTag(fe),
				Value:   fe.Value(),
			}
		}
		return fmt.Errorf("validate params: %w", err)
	}

	if p.Signal.EnhancedMultiplier > 0 && p.Signal.EnhancedMultiplier < p.Signal.MoneyMultiplier {
		return &ValidationError{
			Field:   "signal.enhanced_multiplier",
			Message: "must not be below money_multiplier",
			Value:   p.Signal.EnhancedMultiplier,
		}
	}

	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
