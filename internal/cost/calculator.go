// Package cost estimates spend on completion calls.
package cost

import (
	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/model"
)

// ModelRate is per-model pricing in USD per million tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// Calculator prices token usage per model.
type Calculator struct {
	rates map[string]ModelRate
}

// NewCalculator builds a calculator from the built-in rates overlaid with
// any configured ones.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	rates := DefaultRates()
	for name, p := range cfg.Models {
		rates[name] = ModelRate{Input: p.Input, Output: p.Output}
	}
	return &Calculator{rates: rates}
}

// Cost returns the USD cost of one call. Unknown models cost zero.
func (c *Calculator) Cost(modelName string, input, output int) float64 {
	if c == nil {
		return 0
	}
	rate, ok := c.rates[modelName]
	if !ok {
		return 0
	}
	return float64(input)/1e6*rate.Input + float64(output)/1e6*rate.Output
}

// Usage prices the counts in u and returns it with Cost filled in.
func (c *Calculator) Usage(modelName string, u model.TokenUsage) model.TokenUsage {
	u.Cost = c.Cost(modelName, u.InputTokens, u.OutputTokens)
	return u
}

// Known reports whether the calculator has a rate for modelName.
func (c *Calculator) Known(modelName string) bool {
	if c == nil {
		return false
	}
	_, ok := c.rates[modelName]
	return ok
}

// DefaultRates returns list prices for the models the providers default to.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"gpt-4o":                     {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
		"gemini-2.0-flash":           {Input: 0.10, Output: 0.40},
	}
}
