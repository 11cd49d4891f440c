package lcd1602

import (
	"errors"
	"time"
)

type busOp string

const (
	opInit   busOp = "init"
	opDirOut busOp = "dirout"
	opMasked busOp = "masked"
	opPut    busOp = "put"
)

type busEvent struct {
	op    busOp
	mask  uint32
	value uint32
	pin   uint8
	high  bool
}

// fakeBus records every call. failOp makes the first matching call return
// errBus.
type fakeBus struct {
	events []busEvent
	failOp busOp
	halted bool
}

var errBus = errors.New("bus failure")

func (b *fakeBus) record(e busEvent) error {
	if b.failOp == e.op {
		return errBus
	}
	b.events = append(b.events, e)
	return nil
}

func (b *fakeBus) InitMask(mask uint32) error {
	return b.record(busEvent{op: opInit, mask: mask})
}

func (b *fakeBus) SetDirOutMasked(mask uint32) error {
	return b.record(busEvent{op: opDirOut, mask: mask})
}

func (b *fakeBus) PutMasked(mask, value uint32) error {
	return b.record(busEvent{op: opMasked, mask: mask, value: value})
}

func (b *fakeBus) Put(pin uint8, high bool) error {
	return b.record(busEvent{op: opPut, pin: pin, high: high})
}

func (b *fakeBus) Halt() error {
	b.halted = true
	return nil
}

func (b *fakeBus) reset() {
	b.events = nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (c *sleepRecorder) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func (c *sleepRecorder) reset() {
	c.sleeps = nil
}

// latched is one nibble as the controller sees it on the rising edge of EN.
type latched struct {
	rs     bool
	nibble byte
}

// decode replays events against pins and returns the latched nibbles.
func decode(p PinConfig, events []busEvent) []latched {
	var (
		rs   bool
		data uint32
		out  []latched
	)
	for _, e := range events {
		switch e.op {
		case opMasked:
			data = data&^e.mask | e.value&e.mask
		case opPut:
			switch e.pin {
			case p.RS:
				rs = e.high
			case p.EN:
				if e.high {
					out = append(out, latched{rs: rs, nibble: dataNibble(p, data)})
				}
			}
		}
	}
	return out
}

func dataNibble(p PinConfig, data uint32) byte {
	var n byte
	for i, pin := range []uint8{p.D4, p.D5, p.D6, p.D7} {
		if data&(1<<pin) != 0 {
			n |= 1 << i
		}
	}
	return n
}

// framed joins nibble pairs into bytes. It panics on an odd count.
func framed(ls []latched) []byte {
	if len(ls)%2 != 0 {
		panic("odd nibble count")
	}
	out := make([]byte, 0, len(ls)/2)
	for i := 0; i < len(ls); i += 2 {
		out = append(out, ls[i].nibble<<4|ls[i+1].nibble)
	}
	return out
}

func nibblesOf(ls []latched) []byte {
	out := make([]byte, len(ls))
	for i, l := range ls {
		out[i] = l.nibble
	}
	return out
}

func newTestDev(opts Opts) (*Dev, *fakeBus, *sleepRecorder) {
	bus := &fakeBus{}
	clk := &sleepRecorder{}
	opts.Clock = clk
	d, err := New(bus, &opts)
	if err != nil {
		panic(err)
	}
	bus.reset()
	clk.reset()
	return d, bus, clk
}
