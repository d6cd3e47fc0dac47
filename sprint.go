package sprintpatch

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/pboyd/sprintpatch/internal/logging"
)

// Field offsets inside the host's objects. Only the fields read or written
// here are known.
const (
	buttonEventValueOffset = 0x48
	buttonEventHeldOffset  = 0x4c

	playerFlagsOffset = 0x10e4
)

// FlagSprinting is the bit in the player's flags byte at 0x10E4 that keeps
// the character sprinting.
const FlagSprinting = 0x4

// ButtonEvent is the part of the host's button event the handler looks at.
type ButtonEvent struct {
	// Value is the analog pressure, 0 when released.
	Value float32
	// HeldDownSecs is how long the button has been held. It is still set
	// on the event that reports the release.
	HeldDownSecs float32
}

// ReadButtonEvent reads the event at addr.
func ReadButtonEvent(mem Memory, addr Address) (ButtonEvent, error) {
	var raw [8]byte
	if err := mem.Read(addr+buttonEventValueOffset, raw[:]); err != nil {
		return ButtonEvent{}, fmt.Errorf("read button event at %v: %w", addr, err)
	}
	return ButtonEvent{
		Value:        math.Float32frombits(binary.LittleEndian.Uint32(raw[0:])),
		HeldDownSecs: math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])),
	}, nil
}

// Decide maps a button event to the classic sprint behavior. down is what
// the game should treat as "sprint pressed": only the first frame of a
// press. stop reports that the button was just released and the sprint
// flag must be cleared.
func Decide(ev ButtonEvent) (down, stop bool) {
	switch {
	case ev.Value > 0 && ev.HeldDownSecs == 0:
		return true, false
	case ev.Value == 0 && ev.HeldDownSecs > 0:
		return false, true
	}
	return false, false
}

// SprintHandler is the injected replacement for the sprint handler's
// IsDown check.
//
// The host calls it from its input thread only, so it does no locking. The
// player object belongs to the host and is looked up through PlayerSlot on
// every release rather than cached.
type SprintHandler struct {
	Memory Memory

	// PlayerSlot holds a pointer to the live player character.
	PlayerSlot Address

	Log *slog.Logger
}

func (h *SprintHandler) log() *slog.Logger {
	if h.Log == nil {
		return logging.Discard()
	}
	return h.Log
}

// IsDown is called with the address of the host's button event and returns
// whether the button counts as pressed.
func (h *SprintHandler) IsDown(event Address) bool {
	ev, err := ReadButtonEvent(h.Memory, event)
	if err != nil {
		h.log().Error("Unable to read button event", "error", err)
		return false
	}

	down, stop := Decide(ev)
	if stop {
		if err := h.StopSprinting(); err != nil {
			h.log().Error("Unable to stop sprinting", "error", err)
		}
	}
	return down
}

// StopSprinting clears FlagSprinting on the player character. It does
// nothing if there is no player yet.
func (h *SprintHandler) StopSprinting() error {
	var ptr [8]byte
	if err := h.Memory.Read(h.PlayerSlot, ptr[:]); err != nil {
		return fmt.Errorf("read player singleton: %w", err)
	}

	player := Address(binary.LittleEndian.Uint64(ptr[:]))
	if player == 0 {
		return nil
	}

	flags := player + playerFlagsOffset
	var b [1]byte
	if err := h.Memory.Read(flags, b[:]); err != nil {
		return fmt.Errorf("read player flags: %w", err)
	}
	if b[0]&FlagSprinting == 0 {
		return nil
	}

	b[0] &^= FlagSprinting
	if err := h.Memory.Write(flags, b[:]); err != nil {
		return fmt.Errorf("write player flags: %w", err)
	}
	return nil
}
