/*
Copyright 2024 Tim St. Pierre
Marquee style scrolling of a message through a one line window
*/
package lcd1602

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// DefaultMessage is the demo text. The trailing spaces scroll it out of the
// window before the pass restarts.
const DefaultMessage = "escuela tecnica nº7 " + "                "

const (
	DefaultWindow     = 16
	DefaultSteps      = 18
	DefaultFrameDelay = 200 * time.Millisecond
)

// Screen is what a Scroller draws on. *Dev satisfies it.
type Screen interface {
	Clear() error
	Write(p []byte) (int, error)
}

type Scroller struct {
	Screen Screen
	Clock  clockwork.Clock
	Text   string
	Width  int
	Steps  int
	Delay  time.Duration
}

// NewScroller returns a Scroller with the demo defaults for text, window,
// steps and delay.
func NewScroller(s Screen, clock clockwork.Clock) *Scroller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scroller{
		Screen: s,
		Clock:  clock,
		Text:   DefaultMessage,
		Width:  DefaultWindow,
		Steps:  DefaultSteps,
		Delay:  DefaultFrameDelay,
	}
}

// Window returns width bytes of text starting at offset, padded with spaces
// where text runs out.
func Window(text string, offset, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(width)
	if offset >= 0 && offset < len(text) {
		end := min(offset+width, len(text))
		b.WriteString(text[offset:end])
	}
	for b.Len() < width {
		b.WriteByte(' ')
	}
	return b.String()
}

// Frames returns the windows shown by one pass, in order. Text is encoded
// for the character ROM first so every frame is exactly Width cells.
func (s *Scroller) Frames() []string {
	text := string(Encode(s.Text))
	frames := make([]string, 0, s.Steps)
	for i := 0; i < s.Steps; i++ {
		frames = append(frames, Window(text, i, s.Width))
	}
	return frames
}

// Pass clears the screen and shows every frame once, Delay apart.
func (s *Scroller) Pass(ctx context.Context) error {
	if err := s.Screen.Clear(); err != nil {
		return err
	}
	for i, frame := range s.Frames() {
		if err := s.Screen.Clear(); err != nil {
			return err
		}
		if _, err := s.Screen.Write([]byte(frame)); err != nil {
			return err
		}
		log.Debugf("lcd1602: frame %d %q", i, frame)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Clock.After(s.Delay):
		}
	}
	return nil
}

// Run repeats Pass until ctx is done or the screen fails.
func (s *Scroller) Run(ctx context.Context) error {
	for {
		if err := s.Pass(ctx); err != nil {
			return err
		}
	}
}
