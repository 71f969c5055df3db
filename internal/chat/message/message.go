// Package message defines chat message value and its textual rendering,
// which clients parse back to recover sender, time and body.
package message

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout - timestamp layout used inside rendered message.
const TimeLayout = "02-01-06 | 15:04"

const (
	timeOpen  = " ["
	timeClose = "] : "
)

var (
	// ErrEmptySender - message must have an author.
	ErrEmptySender = errors.New("message: empty sender")
	// ErrEmptyBody - message must have a content.
	ErrEmptyBody = errors.New("message: empty body")
	// ErrMalformed - rendered message can't be parsed.
	ErrMalformed = errors.New("message: malformed")
)

// Message - immutable chat message.
type Message struct {
	Sender string
	Body   string
	Time   time.Time
}

// New - builds message, sender and body must not be empty.
func New(sender, body string, t time.Time) (Message, error) {
	if sender == "" {
		return Message{}, ErrEmptySender
	}
	if body == "" {
		return Message{}, ErrEmptyBody
	}
	return Message{Sender: sender, Body: body, Time: t}, nil
}

// Render - returns wire representation: "<sender> [<time>] : <body>".
func (m Message) Render() string {
	b := strings.Builder{}
	b.Grow(len(m.Sender) + len(m.Body) + len(TimeLayout) + len(timeOpen) + len(timeClose))
	b.WriteString(m.Sender)
	b.WriteString(timeOpen)
	b.WriteString(m.Time.Format(TimeLayout))
	b.WriteString(timeClose)
	b.WriteString(m.Body)
	return b.String()
}

func (m Message) String() string {
	return m.Render()
}

// Parse - restores message from its rendered form.
// Time is interpreted in local time zone and has minute precision.
func Parse(s string) (Message, error) {
	nameEnd := strings.Index(s, timeOpen)
	if nameEnd < 0 {
		return Message{}, fmt.Errorf("%w: no %q before timestamp", ErrMalformed, timeOpen)
	}
	timeStart := nameEnd + len(timeOpen)
	timeLen := strings.Index(s[timeStart:], timeClose)
	if timeLen < 0 {
		return Message{}, fmt.Errorf("%w: no %q after timestamp", ErrMalformed, timeClose)
	}
	t, err := time.ParseInLocation(TimeLayout, s[timeStart:timeStart+timeLen], time.Local)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Message{
		Sender: s[:nameEnd],
		Body:   s[timeStart+timeLen+len(timeClose):],
		Time:   t,
	}, nil
}
