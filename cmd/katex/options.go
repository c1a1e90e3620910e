package main

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/joetifa2003/katex"
)

// optionsFile uses KaTeX's option names. maxExpand below zero means
// unlimited. trust is a boolean or {commands, protocols}; strict is a level
// or {default, codes}.
type optionsFile struct {
	DisplayMode      *bool             `yaml:"displayMode"`
	Output           *string           `yaml:"output"`
	Leqno            *bool             `yaml:"leqno"`
	Fleqn            *bool             `yaml:"fleqn"`
	ThrowOnError     *bool             `yaml:"throwOnError"`
	ErrorColor       *string           `yaml:"errorColor"`
	Macros           map[string]string `yaml:"macros"`
	MinRuleThickness *float64          `yaml:"minRuleThickness"`
	ColorIsTextColor *bool             `yaml:"colorIsTextColor"`
	MaxSize          *float64          `yaml:"maxSize"`
	MaxExpand        *int              `yaml:"maxExpand"`
	Trust            any               `yaml:"trust"`
	Strict           any               `yaml:"strict"`
	GlobalGroup      *bool             `yaml:"globalGroup"`
}

func parseOptionsFile(data []byte) ([]katex.Option, error) {
	var f optionsFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}

	var options []katex.Option
	add := func(o katex.Option) { options = append(options, o) }

	if f.DisplayMode != nil {
		add(katex.WithDisplayMode(*f.DisplayMode))
	}
	if f.Output != nil {
		output, err := katex.ParseOutputType(*f.Output)
		if err != nil {
			return nil, err
		}
		add(katex.WithOutput(output))
	}
	if f.Leqno != nil {
		add(katex.WithLeqno(*f.Leqno))
	}
	if f.Fleqn != nil {
		add(katex.WithFleqn(*f.Fleqn))
	}
	if f.ThrowOnError != nil {
		add(katex.WithThrowOnError(*f.ThrowOnError))
	}
	if f.ErrorColor != nil {
		add(katex.WithErrorColor(*f.ErrorColor))
	}
	if len(f.Macros) > 0 {
		add(katex.WithMacros(f.Macros))
	}
	if f.MinRuleThickness != nil {
		add(katex.WithMinRuleThickness(*f.MinRuleThickness))
	}
	if f.ColorIsTextColor != nil {
		add(katex.WithColorIsTextColor(*f.ColorIsTextColor))
	}
	if f.MaxSize != nil {
		add(katex.WithMaxSize(*f.MaxSize))
	}
	if f.MaxExpand != nil {
		if *f.MaxExpand < 0 {
			add(katex.WithUnlimitedExpand())
		} else {
			add(katex.WithMaxExpand(*f.MaxExpand))
		}
	}
	if f.GlobalGroup != nil {
		add(katex.WithGlobalGroup(*f.GlobalGroup))
	}

	trust, err := trustOption(f.Trust)
	if err != nil {
		return nil, err
	}
	if trust != nil {
		add(trust)
	}

	strict, err := strictOption(f.Strict)
	if err != nil {
		return nil, err
	}
	if strict != nil {
		add(strict)
	}

	return options, nil
}

func trustOption(v any) (katex.Option, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return katex.WithTrust(v), nil
	case map[string]any:
		commands, err := stringList(v["commands"])
		if err != nil {
			return nil, fmt.Errorf("trust.commands: %w", err)
		}
		protocols, err := stringList(v["protocols"])
		if err != nil {
			return nil, fmt.Errorf("trust.protocols: %w", err)
		}
		return katex.WithTrustRules(katex.TrustRules{Commands: commands, Protocols: protocols}), nil
	default:
		return nil, fmt.Errorf("trust: want a boolean or {commands, protocols}, got %T", v)
	}
}

func strictOption(v any) (katex.Option, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		// KaTeX reads true as "error" and false as "ignore".
		if v {
			return katex.WithStrict(katex.StrictError), nil
		}
		return katex.WithStrict(katex.StrictIgnore), nil
	case string:
		return katex.WithStrict(katex.StrictLevel(v)), nil
	case map[string]any:
		fallback, _ := v["default"].(string)
		if fallback == "" {
			fallback = string(katex.DefaultStrict)
		}
		codes := make(map[string]katex.StrictLevel)
		if raw, ok := v["codes"].(map[string]any); ok {
			for code, level := range raw {
				s, ok := level.(string)
				if !ok {
					return nil, fmt.Errorf("strict.codes.%s: want a level, got %T", code, level)
				}
				codes[code] = katex.StrictLevel(s)
			}
		}
		return katex.WithStrictRules(katex.StrictLevel(fallback), codes), nil
	default:
		return nil, fmt.Errorf("strict: want a level or {default, codes}, got %T", v)
	}
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list, got %T", v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: want a string, got %T", i, item)
		}
		out[i] = s
	}
	return out, nil
}
