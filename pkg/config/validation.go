package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/divoxx/echosrv/pkg/activation"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	adapters := []struct {
		name      string
		cfg       *AdapterConfig
		pathBased bool
	}{
		{"tcp", &cfg.Adapters.TCP, false},
		{"udp", &cfg.Adapters.UDP, false},
		{"unix_stream", &cfg.Adapters.UnixStream, true},
		{"unix_datagram", &cfg.Adapters.UnixDatagram, true},
	}

	// Validate at least one adapter is enabled
	anyEnabled := false
	for _, a := range adapters {
		if a.cfg.Enabled {
			anyEnabled = true
		}
	}
	if !anyEnabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	// Validate enabled adapters have a bind target and a usable inherit policy
	names := make(map[string]string)
	for _, a := range adapters {
		if !a.cfg.Enabled {
			continue
		}

		if a.pathBased && a.cfg.Path == "" {
			return fmt.Errorf("adapters.%s: path is required", a.name)
		}
		if !a.pathBased && a.cfg.Address == "" {
			return fmt.Errorf("adapters.%s: address is required", a.name)
		}

		// Explicit inheritance with a pinned descriptor below the
		// inheritable range can never resolve
		if a.cfg.Inherit == "inherit" && a.cfg.InheritFD >= 0 && a.cfg.InheritFD < activation.ListenFDsStart {
			return fmt.Errorf("adapters.%s: inherit_fd %d is below the inheritable descriptor range (first is %d)",
				a.name, a.cfg.InheritFD, activation.ListenFDsStart)
		}

		// Service names identify sockets in the inheritance environment;
		// duplicates would make inherited descriptors ambiguous
		if prev, ok := names[a.cfg.ServiceName]; ok {
			return fmt.Errorf("adapters.%s: service_name %q already used by adapters.%s",
				a.name, a.cfg.ServiceName, prev)
		}
		names[a.cfg.ServiceName] = a.name
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
