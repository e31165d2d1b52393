package domain

import (
	"strings"
	"unicode"
)

const (
	PinnedMarker = "已置顶"
	UnreadMarker = "条新消息"
)

// ContactID is the normalized contact name used as the throttling key.
type ContactID string

// Entry is one row of a conversation list as read during a scan.
type Entry struct {
	Label   string
	Preview string
	Control Control
}

// ParsedEntry is the result of parsing an entry label.
type ParsedEntry struct {
	Contact ContactID
	Unread  bool
}

// ParseEntryLabel turns a raw conversation label such as "已置顶3小明条新消息"
// into the contact it belongs to and whether it carries the unread marker.
//
// The pinned marker is removed until none is left, so a label and the same
// label with the marker removed always parse identically. A label is unread
// only when the cleaned label contains the unread marker and a non-empty
// contact remains once the unread count digits are stripped.
func ParseEntryLabel(label string) ParsedEntry {
	cleaned := stripPinned(label)

	prefix, _, found := strings.Cut(cleaned, UnreadMarker)
	if !found {
		return ParsedEntry{Contact: ContactID(cleaned)}
	}

	name := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, prefix))
	if name == "" {
		return ParsedEntry{Contact: ContactID(cleaned)}
	}

	return ParsedEntry{Contact: ContactID(name), Unread: true}
}

func stripPinned(label string) string {
	cleaned := label
	for strings.Contains(cleaned, PinnedMarker) {
		cleaned = strings.ReplaceAll(cleaned, PinnedMarker, "")
	}
	return strings.TrimSpace(cleaned)
}
