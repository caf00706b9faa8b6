package hotkey

import (
	"fmt"
	"strings"

	gohotkey "golang.design/x/hotkey"
)

// keyNames maps the config-file spelling of a key to the tap-layer key code.
// Only keys available on every supported platform are listed; the modifier
// vocabulary is likewise restricted to ctrl/shift, the two modifiers the
// tap library defines everywhere.
var keyNames = map[string]gohotkey.Key{
	"space": gohotkey.KeySpace,
	"0":     gohotkey.Key0,
	"1":     gohotkey.Key1,
	"2":     gohotkey.Key2,
	"3":     gohotkey.Key3,
	"4":     gohotkey.Key4,
	"5":     gohotkey.Key5,
	"6":     gohotkey.Key6,
	"7":     gohotkey.Key7,
	"8":     gohotkey.Key8,
	"9":     gohotkey.Key9,
	"a":     gohotkey.KeyA,
	"b":     gohotkey.KeyB,
	"c":     gohotkey.KeyC,
	"d":     gohotkey.KeyD,
	"e":     gohotkey.KeyE,
	"f":     gohotkey.KeyF,
	"g":     gohotkey.KeyG,
	"h":     gohotkey.KeyH,
	"i":     gohotkey.KeyI,
	"j":     gohotkey.KeyJ,
	"k":     gohotkey.KeyK,
	"l":     gohotkey.KeyL,
	"m":     gohotkey.KeyM,
	"n":     gohotkey.KeyN,
	"o":     gohotkey.KeyO,
	"p":     gohotkey.KeyP,
	"q":     gohotkey.KeyQ,
	"r":     gohotkey.KeyR,
	"s":     gohotkey.KeyS,
	"t":     gohotkey.KeyT,
	"u":     gohotkey.KeyU,
	"v":     gohotkey.KeyV,
	"w":     gohotkey.KeyW,
	"x":     gohotkey.KeyX,
	"y":     gohotkey.KeyY,
	"z":     gohotkey.KeyZ,
	"f1":    gohotkey.KeyF1,
	"f2":    gohotkey.KeyF2,
	"f3":    gohotkey.KeyF3,
	"f4":    gohotkey.KeyF4,
	"f5":    gohotkey.KeyF5,
	"f6":    gohotkey.KeyF6,
	"f7":    gohotkey.KeyF7,
	"f8":    gohotkey.KeyF8,
	"f9":    gohotkey.KeyF9,
	"f10":   gohotkey.KeyF10,
	"f11":   gohotkey.KeyF11,
	"f12":   gohotkey.KeyF12,
	"f13":   gohotkey.KeyF13,
	"f14":   gohotkey.KeyF14,
	"f15":   gohotkey.KeyF15,
	"f16":   gohotkey.KeyF16,
	"f17":   gohotkey.KeyF17,
	"f18":   gohotkey.KeyF18,
	"f19":   gohotkey.KeyF19,
	"f20":   gohotkey.KeyF20,
}

// ParseBinding turns a config string like "F9" or "Ctrl+Shift+D" into a
// Binding. Parsing is case-insensitive; modifiers come before the key,
// separated by "+". Escape is rejected — it is reserved for cancel.
func ParseBinding(s string) (Binding, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Binding{}, fmt.Errorf("hotkey: empty binding %q", s)
	}

	var b Binding
	for _, mod := range parts[:len(parts)-1] {
		switch strings.TrimSpace(mod) {
		case "ctrl", "control":
			b.Modifiers = append(b.Modifiers, gohotkey.ModCtrl)
		case "shift":
			b.Modifiers = append(b.Modifiers, gohotkey.ModShift)
		default:
			return Binding{}, fmt.Errorf("hotkey: unsupported modifier %q in binding %q", mod, s)
		}
	}

	keyName := strings.TrimSpace(parts[len(parts)-1])
	if keyName == "escape" || keyName == "esc" {
		return Binding{}, fmt.Errorf("hotkey: escape is reserved for cancel")
	}
	key, ok := keyNames[keyName]
	if !ok {
		return Binding{}, fmt.Errorf("hotkey: unknown key %q in binding %q", keyName, s)
	}
	b.Key = key
	return b, nil
}
