package conversation

import (
	"net/url"
	"strings"

	"github.com/vovakirdan/dmview/internal/store"
)

// Participants is the pair whose shared thread the view shows.
type Participants struct {
	Sender    string
	Recipient string
}

// ParseLocation reads sender and recipient from the query string of a
// navigation location such as "/message?sender=a&recipient=b". Missing
// values stay empty.
func ParseLocation(location string) Participants {
	query := location
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	} else if !strings.Contains(query, "=") {
		query = ""
	}

	// ParseQuery keeps every pair it could decode even when it reports an error.
	values, _ := url.ParseQuery(query)
	return Participants{
		Sender:    values.Get("sender"),
		Recipient: values.Get("recipient"),
	}
}

// Location renders the pair back into a navigation location.
func (p Participants) Location() string {
	values := url.Values{}
	values.Set("sender", p.Sender)
	values.Set("recipient", p.Recipient)
	return "/message?" + values.Encode()
}

// Matches reports whether msg belongs to the pair, in either direction.
func (p Participants) Matches(msg store.Message) bool {
	return (msg.Sender == p.Sender && msg.Recipient == p.Recipient) ||
		(msg.Sender == p.Recipient && msg.Recipient == p.Sender)
}

// Filter keeps the messages of the pair, in their original order.
func Filter(msgs []store.Message, p Participants) []store.Message {
	out := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		if p.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}
