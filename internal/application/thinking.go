package application

import (
	"regexp"
	"strings"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinking drops reasoning blocks emitted by thinking models along with
// any unbalanced tag left behind.
func stripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, thinkOpen, "")
	return strings.ReplaceAll(s, thinkClose, "")
}
