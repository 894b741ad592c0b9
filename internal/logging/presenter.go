// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"unicode/utf8"
)

// MaxExcerpt is the longest error detail shown to the user.
const MaxExcerpt = 200

// PresentError formats err for the terminal as "<action>: <message>" with
// secrets masked. A nil error yields the empty string.
func PresentError(action string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", action, Mask(err.Error()))
}

// Excerpt masks s and cuts it to at most max bytes on a rune boundary,
// appending "..." when anything was dropped.
func Excerpt(s string, max int) string {
	s = Mask(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
