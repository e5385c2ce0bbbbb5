package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmview/internal/conversation"
	"github.com/vovakirdan/dmview/internal/tui"
)

func newChatCmd(st *state) *cobra.Command {
	var sender, recipient string

	cmd := &cobra.Command{
		Use:   "chat [location]",
		Short: "Open the conversation with a recipient",
		Long: `Open the conversation between sender and recipient and keep it refreshed.

The pair can be given as a location such as "/message?sender=a&recipient=b"
or with flags. The sender defaults to the signed-in user's email.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := st.signedIn()
			if err != nil {
				return err
			}

			var p conversation.Participants
			if len(args) == 1 {
				p = conversation.ParseLocation(args[0])
			}
			if sender != "" {
				p.Sender = sender
			}
			if recipient != "" {
				p.Recipient = recipient
			}
			if p.Sender == "" {
				p.Sender = user.Email
			}

			st.logger.Info().Str("sender", p.Sender).Str("recipient", p.Recipient).Msg("opening conversation")

			chat := tui.NewChat(p, tui.ChatOptions{
				Store:        st.storeClient(),
				Session:      st.sessionProvider(),
				PollInterval: st.cfg.PollInterval,
				Width:        st.cfg.RenderWidth,
				Out:          cmd.OutOrStdout(),
				Logger:       st.logger,
			})

			err = chat.Run(cmd.Context(), cmd.InOrStdin())
			if errors.Is(err, conversation.ErrSignedOut) {
				return fmt.Errorf("redirected to %s: %w", conversation.LoginRoute, errNotSignedIn)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "sender id (defaults to your email)")
	cmd.Flags().StringVar(&recipient, "recipient", "", "recipient id")
	return cmd
}
