/*
Copyright 2024 Tim St. Pierre
Controls a 1602 character LCD display wired in 4-bit mode straight to GPIO
*/
package lcd1602

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const (
	// Commands
	CMD_Clear_Display        = 0x01
	CMD_Return_Home          = 0x02
	CMD_Entry_Mode           = 0x04
	CMD_Display_Control      = 0x08
	CMD_Cursor_Display_Shift = 0x10
	CMD_Function_Set         = 0x20
	CMD_CGRAM_Set            = 0x40
	CMD_DDRAM_Set            = 0x80

	// Options
	OPT_Increment      = 0x02 // CMD_Entry_Mode 0 = decrement
	OPT_Entry_Shift    = 0x01 // CMD_Entry_Mode shift display on each write
	OPT_Enable_Display = 0x04 // CMD_Display_Control
	OPT_Enable_Cursor  = 0x02 // CMD_Display_Control
	OPT_Enable_Blink   = 0x01 // CMD_Display_Control
	OPT_Display_Shift  = 0x08 // CMD_Cursor_Display_Shift 0 = move cursor
	OPT_Shift_Right    = 0x04 // CMD_Cursor_Display_Shift 0 = Left
	OPT_8_Bit          = 0x10 // CMD_Function_Set 0 = 4 bit
	OPT_2_Lines        = 0x08 // CMD_Function_Set 0 = 1 line
	OPT_5x10_Dots      = 0x04 // CMD_Function_Set 0 = 5x7 dots

	// DDRAM address of the first column of the second row
	Row2_Offset = 0x40
)

// ErrInvalidCursor is returned by Cursor for a mode the controller cannot show.
var ErrInvalidCursor = errors.New("lcd1602: invalid cursor mode")

// Device timings. The enable pulse also covers the 37µs execution time of
// every command except clear and home.
const (
	EnablePulse     = 40 * time.Microsecond
	ClearDelay      = 4 * time.Millisecond
	HomeDelay       = 2 * time.Millisecond
	ResetDelay      = 5 * time.Millisecond
	ResetShortDelay = 100 * time.Microsecond
)

type Dev struct {
	displayEnable bool
	cursor        bool
	blink         bool
	displayShift  bool
	bus           Bus
	clock         Sleeper
	pins          PinConfig
	opts          Opts
}

func (d *Dev) String() string {
	p := d.pins
	return fmt.Sprintf("lcd1602{RS:%d EN:%d D4-D7:%d,%d,%d,%d %dx%d}",
		p.RS, p.EN, p.D4, p.D5, p.D6, p.D7, d.opts.Cols, d.opts.Lines)
}

// New validates opts, claims the pins on bus and runs the 4-bit bring-up
// sequence. It must be called once per display.
//
// Use default options if nil is used.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	d := &Dev{
		displayEnable: true,
		bus:           bus,
		clock:         opts.clock(),
		pins:          opts.Pins,
		opts:          *opts,
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) init() error {
	mask := d.pins.FullMask()
	log.Infof("lcd1602: initializing %s on mask %#08x", d, mask)
	if err := d.bus.InitMask(mask); err != nil {
		return fmt.Errorf("lcd1602: init pins: %w", err)
	}
	if err := d.bus.SetDirOutMasked(mask); err != nil {
		return fmt.Errorf("lcd1602: pin direction: %w", err)
	}

	// The controller powers up in 8-bit mode. Three 0x3 nibbles put it in a
	// known state whatever it was doing, then 0x2 switches to 4-bit.
	reset := []struct {
		nibble byte
		wait   time.Duration
	}{
		{0x3, ResetDelay},
		{0x3, ResetShortDelay},
		{0x3, 0},
		{0x2, 0},
	}
	for _, r := range reset {
		if err := d.commandNibble(r.nibble); err != nil {
			return err
		}
		if r.wait > 0 {
			d.clock.Sleep(r.wait)
		}
	}

	function := byte(CMD_Function_Set)
	if d.opts.Lines > 1 {
		function |= OPT_2_Lines
	}
	if err := d.command(function); err != nil {
		return err
	}
	if err := d.writeDisplaySwitch(); err != nil {
		return err
	}
	return d.writeEntryMode()
}

// Halt blanks the screen, turns the display off and releases the bus if
// it holds resources.
func (d *Dev) Halt() error {
	log.Info("lcd1602: halting")
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Display(false); err != nil {
		return err
	}
	if r, ok := d.bus.(interface{ Halt() error }); ok {
		return r.Halt()
	}
	return nil
}

// Clear blanks the display and returns the cursor to the first cell.
func (d *Dev) Clear() error {
	if err := d.command(CMD_Clear_Display); err != nil {
		return err
	}
	d.clock.Sleep(ClearDelay)
	return nil
}

func (d *Dev) Home() error {
	if err := d.command(CMD_Return_Home); err != nil {
		return err
	}
	d.clock.Sleep(HomeDelay)
	return nil
}

// GotoXY sends address 0x40+x for row 0 and 0xC0+x for row 1 as a command.
// Other rows are ignored. Row 0 uses the CGRAM opcode rather than DDRAM, so
// character writes after GotoXY(x, 0) land in CGRAM; use MoveTo to address
// the first row of the display.
func (d *Dev) GotoXY(x, y byte) error {
	var address byte
	switch y {
	case 0:
		address = CMD_CGRAM_Set + x
	case 1:
		address = CMD_DDRAM_Set + Row2_Offset + x
	default:
		return nil
	}
	return d.command(address)
}

// MoveTo places the cursor at a zero based row and column.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row >= d.Rows() {
		return fmt.Errorf("lcd1602: device does not support row %d", row)
	}
	if col < d.MinCol() || col >= d.Cols() {
		return fmt.Errorf("lcd1602: device does not support col %d", col)
	}
	address := byte(row*Row2_Offset + col)
	return d.command(CMD_DDRAM_Set | address)
}

// PutString writes text at the cursor. See Encode for how runes map to the
// character ROM.
func (d *Dev) PutString(text string) error {
	_, err := d.WriteString(text)
	return err
}

// WriteString encodes text for the character ROM and writes it. n counts
// display cells written.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write(Encode(text))
}

// Write sends raw character codes.
func (d *Dev) Write(buf []byte) (int, error) {
	for i, c := range buf {
		if err := d.write(c, false); err != nil {
			return i, err
		}
		if d.opts.CharDelay > 0 {
			d.clock.Sleep(d.opts.CharDelay)
		}
	}
	return len(buf), nil
}

func (d *Dev) Rows() int {
	return int(d.opts.Lines)
}

func (d *Dev) Cols() int {
	return int(d.opts.Cols)
}

func (d *Dev) MinRow() int {
	return 0
}

func (d *Dev) MinCol() int {
	return 0
}

// Display turns the whole display on or off. DDRAM is kept either way.
func (d *Dev) Display(on bool) error {
	d.displayEnable = on
	return d.writeDisplaySwitch()
}

// Cursor sets the cursor style. Modes accumulate, CursorOff resets.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	cursor, blink := d.cursor, d.blink
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			cursor, blink = false, false
		case display.CursorUnderline:
			cursor = true
		case display.CursorBlock, display.CursorBlink:
			blink = true
		default:
			return fmt.Errorf("%w: %d", ErrInvalidCursor, mode)
		}
	}
	d.cursor, d.blink = cursor, blink
	return d.writeDisplaySwitch()
}

// Move shifts the cursor one cell. Only Forward and Backward exist on this
// controller.
func (d *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Forward:
		return d.CursorShift(true)
	case display.Backward:
		return d.CursorShift(false)
	default:
		return fmt.Errorf("lcd1602: move %d: %w", dir, display.ErrNotImplemented)
	}
}

// AutoScroll shifts the display on every character write instead of moving
// the cursor.
func (d *Dev) AutoScroll(enabled bool) error {
	d.displayShift = enabled
	return d.writeEntryMode()
}

func (d *Dev) writeDisplaySwitch() error {
	option := byte(CMD_Display_Control)
	if d.displayEnable {
		option = option | OPT_Enable_Display
	}
	if d.cursor {
		option = option | OPT_Enable_Cursor
	}
	if d.blink {
		option = option | OPT_Enable_Blink
	}
	log.Debug("lcd1602: writing display switch")
	return d.command(option)
}

// DisplayShift moves the whole display contents one cell.
func (d *Dev) DisplayShift(right bool) error {
	option := byte(CMD_Cursor_Display_Shift | OPT_Display_Shift)
	if right {
		option = option | OPT_Shift_Right
	}
	return d.command(option)
}

func (d *Dev) CursorShift(right bool) error {
	log.Debug("lcd1602: writing cursor shift")
	option := byte(CMD_Cursor_Display_Shift)
	if right {
		option = option | OPT_Shift_Right
	}
	return d.command(option)
}

func (d *Dev) writeEntryMode() error {
	option := byte(CMD_Entry_Mode | OPT_Increment)
	if d.displayShift {
		option = option | OPT_Entry_Shift
	}
	return d.command(option)
}

func (d *Dev) command(data byte) error {
	return d.write(data, true)
}

// write frames one byte: RS first, then high and low nibble.
func (d *Dev) write(data byte, command bool) error {
	log.Debugf("lcd1602: writing %08b %#02x command=%t", data, data, command)
	if err := d.bus.Put(d.pins.RS, !command); err != nil {
		return fmt.Errorf("lcd1602: register select: %w", err)
	}
	if err := d.putNibble(data >> 4); err != nil {
		return err
	}
	return d.putNibble(data & 0x0F)
}

// commandNibble sends a lone nibble with RS low. Only the reset handshake
// uses it, while the controller still expects 8-bit transfers.
func (d *Dev) commandNibble(n byte) error {
	if err := d.bus.Put(d.pins.RS, false); err != nil {
		return fmt.Errorf("lcd1602: register select: %w", err)
	}
	return d.putNibble(n)
}

func (d *Dev) putNibble(n byte) error {
	if err := d.bus.PutMasked(d.pins.DataMask(), d.pins.nibbleValue(n)); err != nil {
		return fmt.Errorf("lcd1602: data pins: %w", err)
	}
	return d.enable()
}

// enable latches the data pins on the falling edge of EN.
func (d *Dev) enable() error {
	if err := d.bus.Put(d.pins.EN, true); err != nil {
		return fmt.Errorf("lcd1602: enable high: %w", err)
	}
	d.clock.Sleep(EnablePulse)
	if err := d.bus.Put(d.pins.EN, false); err != nil {
		return fmt.Errorf("lcd1602: enable low: %w", err)
	}
	return nil
}

var _ display.TextDisplay = &Dev{}
var _ conn.Resource = &Dev{}
