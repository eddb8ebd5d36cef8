package constants

import "strings"

// Reaction emojis for the registration menu, keyed by role. The role keys
// match the template role slots plus the leader/fill/clear controls.
var Buttons = map[string]string{
	"dps0":    "\U0001f5e1️", // dagger
	"dps1":    "⚔️",     // crossed swords
	"healer0": "\U0001f3e5",       // hospital
	"healer1": "⚕️",     // medical symbol
	"tank0":   "\U0001f6e1️", // shield
	"tank1":   "\U0001f9a7",       // orangutan
	"leader":  "\U0001f451",       // crown
	"fill":    "\U0001f4ad",       // thought balloon
	"clear":   "❌",           // cross mark
}

// ReverseButtons maps an emoji back to its role key.
var ReverseButtons = func() map[string]string {
	m := make(map[string]string, len(Buttons))
	for role, emoji := range Buttons {
		m[emoji] = role
	}
	return m
}()

// ButtonOrder is the order reactions are seeded on a roster message:
// leader first, then the capacity roles, then fill and clear.
var ButtonOrder = []string{
	"leader",
	"tank0", "tank1",
	"healer0", "healer1",
	"dps0", "dps1",
	"fill",
	"clear",
}

// RoleForEmoji resolves a reaction emoji to its role key. Discord reports
// some emojis without the trailing variation selector, so the lookup
// tolerates both forms.
func RoleForEmoji(emoji string) (string, bool) {
	if role, ok := ReverseButtons[emoji]; ok {
		return role, true
	}
	trimmed := strings.TrimSuffix(emoji, "️")
	if role, ok := ReverseButtons[trimmed]; ok {
		return role, true
	}
	if role, ok := ReverseButtons[trimmed+"️"]; ok {
		return role, true
	}
	return "", false
}
