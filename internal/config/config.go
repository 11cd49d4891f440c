/*
Copyright 2024 Tim St. Pierre
TOML configuration for the lcdscroll demo
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	lcd1602 "github.com/tstpierre-tc/lcd1602gpio"
)

var ErrInvalid = errors.New("config: invalid")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Display struct {
	Lines       uint8 `toml:"lines" validate:"oneof=1 2"`
	Cols        uint8 `toml:"cols" validate:"gte=1,lte=40"`
	CharDelayUS int   `toml:"char_delay_us" validate:"gte=0"`
}

type Scroll struct {
	Message string `toml:"message"`
	Width   int    `toml:"width" validate:"gte=1,lte=40"`
	Steps   int    `toml:"steps" validate:"gte=1"`
	DelayMS int    `toml:"delay_ms" validate:"gte=0"`
}

// File is the on-disk layout:
//
//	log_level = "info"
//
//	[pins]
//	rs = 0
//	en = 1
//	d4 = 2
//	d5 = 3
//	d6 = 4
//	d7 = 5
//
//	[display]
//	lines = 2
//	cols = 16
//
//	[scroll]
//	message = "hello"
//	width = 16
//	steps = 18
//	delay_ms = 200
type File struct {
	LogLevel string            `toml:"log_level" validate:"oneof=trace debug info warn error"`
	Pins     lcd1602.PinConfig `toml:"pins" validate:"-"`
	Display  Display           `toml:"display"`
	Scroll   Scroll            `toml:"scroll"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		LogLevel: "info",
		Pins:     lcd1602.DefaultPins,
		Display: Display{
			Lines: lcd1602.DefaultOpts.Lines,
			Cols:  lcd1602.DefaultOpts.Cols,
		},
		Scroll: Scroll{
			Message: lcd1602.DefaultMessage,
			Width:   lcd1602.DefaultWindow,
			Steps:   lcd1602.DefaultSteps,
			DelayMS: int(lcd1602.DefaultFrameDelay / time.Millisecond),
		},
	}
}

// Load reads path from fs on top of Default. Unknown keys are rejected.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return f.Pins.Validate()
}

// Opts converts the display section to driver options.
func (f *File) Opts() *lcd1602.Opts {
	return &lcd1602.Opts{
		Pins:      f.Pins,
		Lines:     f.Display.Lines,
		Cols:      f.Display.Cols,
		CharDelay: time.Duration(f.Display.CharDelayUS) * time.Microsecond,
	}
}

// Delay is the pause between scroll frames.
func (f *File) Delay() time.Duration {
	return time.Duration(f.Scroll.DelayMS) * time.Millisecond
}
