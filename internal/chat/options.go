package chat

import (
	"errors"
	"fmt"
)

// Option is one entry of a selection menu. Disabled entries are listed but cannot be chosen.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

var ModelOptions = []Option{
	{Value: "gpt-4o-mini", Label: "GPT-4o mini"},
	{Value: "gpt-4o", Label: "GPT-4o", Disabled: true},
	{Value: "claude-3-5-sonnet", Label: "Claude 3.5 Sonnet", Disabled: true},
	{Value: "llama-3.1-70b", Label: "Llama 3.1 70B", Disabled: true},
}

var RetrievalOptions = []Option{
	{Value: "similarity", Label: "Similarity search"},
	{Value: "mmr", Label: "Max marginal relevance", Disabled: true},
	{Value: "hybrid", Label: "Hybrid keyword + vector", Disabled: true},
}

var ErrOptionUnavailable = errors.New("option unavailable")

func validateOption(options []Option, value string) error {
	for _, opt := range options {
		if opt.Value != value {
			continue
		}
		if opt.Disabled {
			return fmt.Errorf("%w: %s is disabled", ErrOptionUnavailable, value)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown option %s", ErrOptionUnavailable, value)
}

func firstEnabled(options []Option) string {
	for _, opt := range options {
		if !opt.Disabled {
			return opt.Value
		}
	}
	return ""
}

func ValidateModel(value string) error {
	return validateOption(ModelOptions, value)
}

func ValidateRetrievalMethod(value string) error {
	return validateOption(RetrievalOptions, value)
}

func DefaultModel() string {
	return firstEnabled(ModelOptions)
}

func DefaultRetrievalMethod() string {
	return firstEnabled(RetrievalOptions)
}
