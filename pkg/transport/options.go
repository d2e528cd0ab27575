package transport

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a transport option map into a typed options
// struct. Unknown keys are an error so a typo in configuration fails
// loudly instead of being ignored.
func decodeOptions(transportName string, raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("build %s option decoder: %w", transportName, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid %s options: %w", transportName, err)
	}
	return nil
}
