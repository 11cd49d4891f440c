/*
Copyright 2024 Tim St. Pierre
GPIO access for the 4-bit parallel interface
*/
package lcd1602

import (
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"strconv"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var ErrPinNotFound = errors.New("lcd1602: gpio pin not found")

// Bus is the GPIO surface the driver needs. Masks and values are indexed by
// GPIO number.
type Bus interface {
	// InitMask claims every pin set in mask.
	InitMask(mask uint32) error
	// SetDirOutMasked makes every pin set in mask an output.
	SetDirOutMasked(mask uint32) error
	// PutMasked drives the pins set in mask to the matching bits of value.
	PutMasked(mask, value uint32) error
	// Put drives a single pin.
	Put(pin uint8, high bool) error
}

// PinBus is a Bus over periph.io pins looked up in gpioreg as "GPIO<n>", or
// by the bare number alias some hosts register.
// host.Init must have run before InitMask.
type PinBus struct {
	pins   map[uint8]gpio.PinOut
	lookup func(n uint8) gpio.PinIO
}

// NewPinBus returns a PinBus resolving GPIO numbers through gpioreg.
func NewPinBus() *PinBus {
	return &PinBus{
		pins: make(map[uint8]gpio.PinOut),
		lookup: func(n uint8) gpio.PinIO {
			if p := gpioreg.ByName("GPIO" + strconv.Itoa(int(n))); p != nil {
				return p
			}
			return gpioreg.ByName(strconv.Itoa(int(n)))
		},
	}
}

func (b *PinBus) InitMask(mask uint32) error {
	for n := range eachPin(mask) {
		p := b.lookup(n)
		if p == nil {
			return fmt.Errorf("%w: GPIO%d", ErrPinNotFound, n)
		}
		log.Debugf("lcd1602: claimed %s for GPIO%d", p, n)
		b.pins[n] = p
	}
	return nil
}

// SetDirOutMasked drives the pins low. periph switches a pin to output on
// its first Out call.
func (b *PinBus) SetDirOutMasked(mask uint32) error {
	for n := range eachPin(mask) {
		p, err := b.pin(n)
		if err != nil {
			return err
		}
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("lcd1602: GPIO%d as output: %w", n, err)
		}
	}
	return nil
}

func (b *PinBus) PutMasked(mask, value uint32) error {
	for n := range eachPin(mask) {
		if err := b.Put(n, value&(1<<n) != 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *PinBus) Put(n uint8, high bool) error {
	p, err := b.pin(n)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("lcd1602: GPIO%d out: %w", n, err)
	}
	return nil
}

// Halt releases every claimed pin.
func (b *PinBus) Halt() error {
	var errs []error
	for n, p := range b.pins {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("lcd1602: GPIO%d halt: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

func (b *PinBus) pin(n uint8) (gpio.PinOut, error) {
	p, ok := b.pins[n]
	if !ok {
		return nil, fmt.Errorf("%w: GPIO%d not initialized", ErrPinNotFound, n)
	}
	return p, nil
}

// eachPin yields the set bit positions of mask, lowest first.
func eachPin(mask uint32) iter.Seq[uint8] {
	return func(yield func(uint8) bool) {
		for mask != 0 {
			n := uint8(bits.TrailingZeros32(mask))
			if !yield(n) {
				return
			}
			mask &^= 1 << n
		}
	}
}
