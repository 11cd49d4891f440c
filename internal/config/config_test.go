package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lcd1602 "github.com/tstpierre-tc/lcd1602gpio"
)

func writeFile(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, lcd1602.DefaultPins, cfg.Pins)
	assert.Equal(t, 200*time.Millisecond, cfg.Delay())

	opts := cfg.Opts()
	assert.Equal(t, uint8(2), opts.Lines)
	assert.Equal(t, uint8(16), opts.Cols)
	assert.Zero(t, opts.CharDelay)
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/lcdscroll.toml", `
log_level = "debug"

[pins]
rs = 20
en = 21
d4 = 6
d5 = 13
d6 = 19
d7 = 26

[display]
lines = 1
char_delay_us = 50

[scroll]
message = "hola mundo"
delay_ms = 350
`)

	cfg, err := Load(fs, "/etc/lcdscroll.toml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, lcd1602.PinConfig{RS: 20, EN: 21, D4: 6, D5: 13, D6: 19, D7: 26}, cfg.Pins)
	assert.Equal(t, "hola mundo", cfg.Scroll.Message)
	assert.Equal(t, 350*time.Millisecond, cfg.Delay())
	// unset keys keep their defaults
	assert.Equal(t, lcd1602.DefaultWindow, cfg.Scroll.Width)
	assert.Equal(t, lcd1602.DefaultSteps, cfg.Scroll.Steps)

	opts := cfg.Opts()
	assert.Equal(t, uint8(1), opts.Lines)
	assert.Equal(t, uint8(16), opts.Cols)
	assert.Equal(t, 50*time.Microsecond, opts.CharDelay)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{"unknown key", "[pins]\nrw = 7\n", nil, "parse"},
		{"bad syntax", "[pins\n", nil, "parse"},
		{"pin collision", "[pins]\nen = 0\n", lcd1602.ErrInvalidPins, "EN shares GPIO 0 with RS"},
		{"pin out of range", "[pins]\nd7 = 32\n", lcd1602.ErrInvalidPins, "D7 GPIO 32 above 31"},
		{"three lines", "[display]\nlines = 3\n", ErrInvalid, "Lines"},
		{"zero steps", "[scroll]\nsteps = 0\n", ErrInvalid, "Steps"},
		{"bad log level", "log_level = \"loud\"\n", ErrInvalid, "LogLevel"},
		{"empty log level", "log_level = \"\"\n", ErrInvalid, "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "c.toml", tt.body)

			cfg, err := Load(fs, "c.toml")
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "nope.toml")
	require.ErrorIs(t, err, os.ErrNotExist)
}
