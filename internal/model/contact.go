package model

import (
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IconColors is the fixed palette contact badges are drawn from.
var IconColors = []string{
	"#FF7A00", "#FF5EB3", "#6E52FF", "#9327FF",
	"#00BEE8", "#1FD7C1", "#FF745E", "#FFA35E",
	"#FC71FF", "#FFC701", "#0038FF", "#C3FF2B",
	"#FFE62B", "#FF4646", "#FFBB2B",
}

// Contact is a user of the board. Guests are created by guest login.
type Contact struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	ProfilePicture string
	IconColor      string
	IsGuest        bool
}

// NewContact builds a contact with a palette color picked from rnd.
// A nil rnd uses the global source.
func NewContact(name, email string, rnd *rand.Rand) Contact {
	var idx int
	if rnd != nil {
		idx = rnd.Intn(len(IconColors))
	} else {
		idx = rand.Intn(len(IconColors))
	}
	return Contact{
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		IconColor: IconColors[idx],
	}
}

// Initials derives up to two uppercase letters from the current name:
// the first letter of the first word and of the last word.
func (c Contact) Initials() string {
	words := strings.Fields(c.Name)
	if len(words) == 0 {
		return ""
	}
	first := firstLetter(words[0])
	if len(words) == 1 {
		return first
	}
	return first + firstLetter(words[len(words)-1])
}

// Group returns the letter the contact is listed under.
func (c Contact) Group() string {
	g := firstLetter(strings.TrimSpace(c.Name))
	if g == "" {
		return "#"
	}
	return g
}

func firstLetter(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}
