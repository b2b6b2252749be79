// Package input turns SDL2 events into viewer commands.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Command is a viewer action bound to an input.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandResize
	CommandToggleShadows
	CommandToggleHighlight
	CommandToggleBlendOrder
	CommandNextAction
	CommandZoom
	CommandPitch
	CommandPoint
	CommandScreenshot
	CommandSaveConfig
)

// Event represents a processed input event.
type Event struct {
	Command Command
	Width   int
	Height  int
	Delta   float32 // zoom or pitch amount
	X, Y    float32 // cursor position for CommandPoint
}

// Bindings maps keys to commands.
type Bindings map[sdl.Scancode]Command

// DefaultBindings returns the viewer's key layout.
func DefaultBindings() Bindings {
	return Bindings{
		sdl.SCANCODE_ESCAPE: CommandQuit,
		sdl.SCANCODE_S:      CommandToggleShadows,
		sdl.SCANCODE_H:      CommandToggleHighlight,
		sdl.SCANCODE_B:      CommandToggleBlendOrder,
		sdl.SCANCODE_SPACE:  CommandNextAction,
		sdl.SCANCODE_UP:     CommandPitch,
		sdl.SCANCODE_DOWN:   CommandPitch,
		sdl.SCANCODE_F5:     CommandSaveConfig,
		sdl.SCANCODE_F12:    CommandScreenshot,
	}
}

const pitchStep = 0.05

// Input handles all input processing.
type Input struct {
	bindings Bindings
	events   []Event
}

// New creates a new input handler.
func New(b Bindings) *Input {
	return &Input{
		bindings: b,
		events:   make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to commands.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0] // Clear previous events

	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := i.Translate(event); ok {
			i.events = append(i.events, e)
			quit = quit || e.Command == CommandQuit
		}
	}
	return quit
}

// Translate maps one SDL event to a command.
func (i *Input) Translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Command: CommandQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED {
			return Event{
				Command: CommandResize,
				Width:   int(e.Data1),
				Height:  int(e.Data2),
			}, true
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN {
			break
		}
		cmd, ok := i.bindings[e.Keysym.Scancode]
		if !ok {
			break
		}
		ev := Event{Command: cmd}
		if cmd == CommandPitch {
			ev.Delta = pitchStep
			if e.Keysym.Scancode == sdl.SCANCODE_DOWN {
				ev.Delta = -pitchStep
			}
		}
		return ev, true

	case *sdl.MouseMotionEvent:
		return Event{Command: CommandPoint, X: float32(e.X), Y: float32(e.Y)}, true

	case *sdl.MouseWheelEvent:
		return Event{Command: CommandZoom, Delta: float32(e.Y)}, true
	}
	return Event{}, false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}
