// internal/humanoid/keyboard.go
package humanoid

import (
	"unicode"

	"github.com/xkilldash9x/auroch/api/schemas"
	"go.uber.org/zap"
)

// hidUsage maps unshifted US-QWERTY characters to HID keyboard usage codes.
var hidUsage = map[rune]int{
	'a': 0x04, 'b': 0x05, 'c': 0x06, 'd': 0x07, 'e': 0x08, 'f': 0x09,
	'g': 0x0A, 'h': 0x0B, 'i': 0x0C, 'j': 0x0D, 'k': 0x0E, 'l': 0x0F,
	'm': 0x10, 'n': 0x11, 'o': 0x12, 'p': 0x13, 'q': 0x14, 'r': 0x15,
	's': 0x16, 't': 0x17, 'u': 0x18, 'v': 0x19, 'w': 0x1A, 'x': 0x1B,
	'y': 0x1C, 'z': 0x1D,
	'1': 0x1E, '2': 0x1F, '3': 0x20, '4': 0x21, '5': 0x22,
	'6': 0x23, '7': 0x24, '8': 0x25, '9': 0x26, '0': 0x27,
	'\n': 0x28, ' ': 0x2C, '-': 0x2D, '=': 0x2E, '[': 0x2F, ']': 0x30,
	'\\': 0x31, ';': 0x33, '\'': 0x34, '`': 0x35, ',': 0x36, '.': 0x37,
	'/': 0x38,
}

// shifted maps characters that need the shift modifier to their base key.
var shifted = map[rune]rune{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', '|': '\\',
	':': ';', '"': '\'', '~': '`', '<': ',', '>': '.', '?': '/',
}

// KeyFor resolves a character to its HID usage code and modifier byte.
// ok is false for characters the layout cannot produce.
func KeyFor(r rune) (code, modifier int, ok bool) {
	if base, isShifted := shifted[r]; isShifted {
		code, ok = hidUsage[base]
		return code, schemas.ModShift, ok
	}
	if r < unicode.MaxASCII && unicode.IsUpper(r) {
		code, ok = hidUsage[unicode.ToLower(r)]
		return code, schemas.ModShift, ok
	}
	code, ok = hidUsage[r]
	return code, 0, ok
}

// TypeText appends press/hold/release/gap events for each character.
// Characters outside the layout are skipped silently.
func (h *Humanoid) TypeText(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	skipped := 0
	for _, r := range text {
		code, mod, ok := KeyFor(r)
		if !ok {
			skipped++
			continue
		}
		h.plan = append(h.plan,
			schemas.Key(code, mod, schemas.PhasePress),
			schemas.Pause(uniform(h.rng, 0.03, 0.09)),
			schemas.Key(code, mod, schemas.PhaseRelease),
			schemas.Pause(uniform(h.rng, 0.05, 0.15)),
		)
	}
	if skipped > 0 {
		h.logger.Debug("Skipped characters without a key mapping", zap.Int("count", skipped))
	}
}
