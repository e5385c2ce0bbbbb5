package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmview/internal/conversation"
	"github.com/vovakirdan/dmview/internal/session"
	"github.com/vovakirdan/dmview/internal/tui"
)

// oneShot builds a view bound to the signed-in user and the given recipient
// and loads it once. It never starts polling.
func oneShot(cmd *cobra.Command, st *state, recipient string) (*conversation.View, *session.User, error) {
	user, err := st.signedIn()
	if err != nil {
		return nil, nil, err
	}

	v := conversation.New(conversation.Participants{Sender: user.Email, Recipient: recipient}, conversation.Options{
		Store:   st.storeClient(),
		Session: session.Static{User: user},
		Logger:  st.logger,
	})
	v.Fetch(cmd.Context())
	return v, user, nil
}

func render(out io.Writer, st *state, v *conversation.View, user *session.User) error {
	frame := tui.NewRenderer(st.cfg.RenderWidth).Render(tui.Frame{
		Username: user.Username,
		Header:   v.Header(),
		Rows:     v.Rows(user),
	})
	_, err := io.WriteString(out, frame)
	return err
}

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list <recipient>",
		Short: "Print the conversation with a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, user, err := oneShot(cmd, st, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), st, v, user)
		},
	}
}

func newSendCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> [text]",
		Short: "Send a message",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := st.signedIn()
			if err != nil {
				return err
			}
			text := ""
			if len(args) == 2 {
				text = args[1]
			}

			v := conversation.New(conversation.Participants{Sender: user.Email, Recipient: args[0]}, conversation.Options{
				Store:   st.storeClient(),
				Session: session.Static{User: user},
				Logger:  st.logger,
			})
			v.SetCompose(text)
			if err := v.Submit(cmd.Context()); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), st, v, user)
		},
	}
}

func newEditCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <recipient> <N|id> <text>",
		Short: "Replace the text of one of your messages",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, user, err := oneShot(cmd, st, args[0])
			if err != nil {
				return err
			}
			row, err := tui.FindOwnRow(v.Rows(user), args[1])
			if err != nil {
				return err
			}

			if err := v.BeginEdit(row.ID); err != nil {
				return err
			}
			if err := v.SetEditText(args[2]); err != nil {
				return err
			}
			if err := v.Save(cmd.Context()); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), st, v, user)
		},
	}
}

func newDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recipient> <N|id>",
		Short: "Delete one of your messages",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, user, err := oneShot(cmd, st, args[0])
			if err != nil {
				return err
			}
			row, err := tui.FindOwnRow(v.Rows(user), args[1])
			if err != nil {
				return err
			}

			if err := v.Delete(cmd.Context(), row.ID); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), st, v, user)
		},
	}
}
