package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/aidanlsb/skycat/internal/resolve"
)

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	allowed []string
	value   *string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(p *string, def string, allowed ...string) *enumValue {
	*p = def
	return &enumValue{allowed: allowed, value: p}
}

func (e *enumValue) String() string { return *e.value }

func (e *enumValue) Set(s string) error {
	for _, a := range e.allowed {
		if strings.EqualFold(s, a) {
			*e.value = a
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string { return "string" }

// modeValue selects the resolution mode of emitted catalogs.
type modeValue struct {
	mode *resolve.Mode
}

var _ pflag.Value = modeValue{}

func (m modeValue) String() string {
	if m.mode == nil {
		return resolve.Absolute.String()
	}
	return m.mode.String()
}

func (m modeValue) Set(s string) error {
	mode, err := resolve.ParseMode(s)
	if err != nil {
		return err
	}
	*m.mode = mode
	return nil
}

func (m modeValue) Type() string { return "mode" }
