// lcdscroll scrolls a message across a 16x2 HD44780 display wired to GPIO in
// 4-bit mode.
//
// Default wiring:
//
//	LCD   GPIO
//	RS    0
//	EN    1
//	D4    2
//	D5    3
//	D6    4
//	D7    5
//	RW    GND
//
// Pins, geometry and the message can come from a TOML file (-config) and
// are overridden by flags.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	lcd1602 "github.com/tstpierre-tc/lcd1602gpio"
	"github.com/tstpierre-tc/lcd1602gpio/internal/config"
	"periph.io/x/host/v3"
)

var (
	configPath = flag.String("config", "", "TOML configuration file")
	logLevel   = flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	message    = flag.String("message", "", "Text to scroll")
	delay      = flag.Duration("delay", 0, "Pause between frames")
	rs         = flag.Uint("rs", 0, "GPIO for RS")
	en         = flag.Uint("en", 1, "GPIO for EN")
	d4         = flag.Uint("d4", 2, "GPIO for D4")
	d5         = flag.Uint("d5", 3, "GPIO for D5")
	d6         = flag.Uint("d6", 4, "GPIO for D6")
	d7         = flag.Uint("d7", 5, "GPIO for D7")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(afero.NewOsFs(), *configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if _, err := host.Init(); err != nil {
		log.Fatalf("Failed to initialize periph.io: %v", err)
	}

	dev, err := lcd1602.New(lcd1602.NewPinBus(), cfg.Opts())
	if err != nil {
		log.Fatalf("Failed to initialize display: %v", err)
	}
	log.Infof("Display initialized: %s", dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := lcd1602.NewScroller(dev, clockwork.NewRealClock())
	s.Text = cfg.Scroll.Message
	s.Width = cfg.Scroll.Width
	s.Steps = cfg.Scroll.Steps
	s.Delay = cfg.Delay()

	err = s.Run(ctx)
	if haltErr := dev.Halt(); haltErr != nil {
		log.Errorf("Failed to halt display: %v", haltErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scroll stopped: %v", err)
	}
}

// applyFlags copies the flags given on the command line over cfg.
func applyFlags(cfg *config.File) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = *logLevel
		case "message":
			cfg.Scroll.Message = *message
		case "delay":
			cfg.Scroll.DelayMS = int(*delay / time.Millisecond)
		case "rs":
			cfg.Pins.RS = pinFlag(*rs)
		case "en":
			cfg.Pins.EN = pinFlag(*en)
		case "d4":
			cfg.Pins.D4 = pinFlag(*d4)
		case "d5":
			cfg.Pins.D5 = pinFlag(*d5)
		case "d6":
			cfg.Pins.D6 = pinFlag(*d6)
		case "d7":
			cfg.Pins.D7 = pinFlag(*d7)
		}
	})
}

// pinFlag saturates out-of-range values so validation rejects them instead
// of wrapping them onto a valid pin.
func pinFlag(v uint) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
