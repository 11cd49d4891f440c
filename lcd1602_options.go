/*
Copyright 2024 Tim St. Pierre
Options for lcd1602 character display
*/
package lcd1602

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

// MaxPin is the highest GPIO index a PinConfig may use. Masks are 32 bits wide.
const MaxPin = 31

var (
	ErrInvalidPins = errors.New("lcd1602: invalid pin configuration")
	ErrInvalidOpts = errors.New("lcd1602: invalid options")
)

// PinConfig maps the six LCD lines to GPIO indices. D4..D7 form the 4-bit
// bus, low to high.
type PinConfig struct {
	RS uint8 `toml:"rs" validate:"lte=31"`
	EN uint8 `toml:"en" validate:"lte=31"`
	D4 uint8 `toml:"d4" validate:"lte=31"`
	D5 uint8 `toml:"d5" validate:"lte=31"`
	D6 uint8 `toml:"d6" validate:"lte=31"`
	D7 uint8 `toml:"d7" validate:"lte=31"`
}

// DefaultPins wires RS, EN and D4..D7 to GPIO 0 through 5.
var DefaultPins = PinConfig{RS: 0, EN: 1, D4: 2, D5: 3, D6: 4, D7: 5}

// Sleeper blocks the caller for a duration. clockwork.Clock satisfies it.
type Sleeper interface {
	Sleep(d time.Duration)
}

type Opts struct {
	Pins PinConfig
	// How many lines does the display have
	Lines uint8
	Cols  uint8
	// Extra pause after every character written, 0 for none.
	CharDelay time.Duration
	// Used for every device delay. Nil means the wall clock.
	Clock Sleeper
}

var DefaultOpts = Opts{
	Pins:  DefaultPins,
	Lines: 2,
	Cols:  16,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(uniquePins, PinConfig{})
	return v
}

// uniquePins reports every field that reuses a GPIO already taken by an
// earlier field.
func uniquePins(sl validator.StructLevel) {
	p, ok := sl.Current().Interface().(PinConfig)
	if !ok {
		return
	}
	seen := make(map[uint8]string, 6)
	for _, f := range p.fields() {
		if prev, dup := seen[f.pin]; dup {
			sl.ReportError(f.pin, f.name, f.name, "unique", prev)
			continue
		}
		seen[f.pin] = f.name
	}
}

type namedPin struct {
	name string
	pin  uint8
}

func (p PinConfig) fields() []namedPin {
	return []namedPin{
		{"RS", p.RS}, {"EN", p.EN},
		{"D4", p.D4}, {"D5", p.D5}, {"D6", p.D6}, {"D7", p.D7},
	}
}

// Validate checks that all six pins are distinct and within [0, MaxPin].
func (p PinConfig) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPins, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s shares GPIO %v with %s", fe.Field(), fe.Value(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s GPIO %v above %d", fe.Field(), fe.Value(), MaxPin))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidPins, strings.Join(msgs, "; "))
}

// DataMask returns the GPIO bitmask of the four data lines.
func (p PinConfig) DataMask() uint32 {
	return 1<<p.D4 | 1<<p.D5 | 1<<p.D6 | 1<<p.D7
}

// FullMask returns the GPIO bitmask of every line the display uses.
func (p PinConfig) FullMask() uint32 {
	return 1<<p.RS | 1<<p.EN | p.DataMask()
}

// nibbleValue spreads the low four bits of n over the data pins.
func (p PinConfig) nibbleValue(n byte) uint32 {
	var v uint32
	if n&0x8 != 0 {
		v |= 1 << p.D7
	}
	if n&0x4 != 0 {
		v |= 1 << p.D6
	}
	if n&0x2 != 0 {
		v |= 1 << p.D5
	}
	if n&0x1 != 0 {
		v |= 1 << p.D4
	}
	return v
}

func (o *Opts) validate() error {
	if err := o.Pins.Validate(); err != nil {
		return err
	}
	if o.Lines != 1 && o.Lines != 2 {
		return fmt.Errorf("%w: %d lines not supported", ErrInvalidOpts, o.Lines)
	}
	if o.Cols == 0 || o.Cols > 40 {
		return fmt.Errorf("%w: %d cols not supported", ErrInvalidOpts, o.Cols)
	}
	return nil
}

func (o *Opts) clock() Sleeper {
	if o.Clock == nil {
		return clockwork.NewRealClock()
	}
	return o.Clock
}
