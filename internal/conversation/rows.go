package conversation

import "github.com/vovakirdan/dmview/internal/session"

// OwnLabel replaces the sender id on the signed-in user's messages.
const OwnLabel = "You"

// Align is the horizontal placement of a row.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Row is one snapshot message prepared for display.
type Row struct {
	// Index is 1-based and follows snapshot order.
	Index int
	ID    string

	Sender string
	Label  string
	Text   string
	Align  Align

	// Own rows are the only ones offering edit and delete.
	Own bool

	Editing  bool
	EditText string
}

// Header is the title shown above the thread.
func (v *View) Header() string {
	return "Message to " + v.Participants().Recipient
}

// Rows lays out the snapshot for user. A nil user owns nothing.
func (v *View) Rows(user *session.User) []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := make([]Row, 0, len(v.snapshot))
	for i, m := range v.snapshot {
		row := Row{
			Index:  i + 1,
			ID:     m.ID,
			Sender: m.Sender,
			Label:  m.Sender,
			Text:   m.Message,
			Align:  AlignLeft,
		}
		if user != nil && m.Sender == user.Email {
			row.Own = true
			row.Label = OwnLabel
			row.Align = AlignRight
		}
		if v.edit.Active && v.edit.ID == m.ID {
			row.Editing = true
			row.EditText = v.edit.Text
		}
		rows = append(rows, row)
	}
	return rows
}
