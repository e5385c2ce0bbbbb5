package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmview/internal/session"
)

func newLoginCmd(st *state) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := session.Issue(st.tokenConfig(), session.User{Username: username, Email: email}, time.Now())
			if err != nil {
				return err
			}
			if err := session.Save(st.cfg.SessionPath, token); err != nil {
				return err
			}

			st.logger.Info().Str("username", username).Str("path", st.cfg.SessionPath).Msg("session saved")
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s>\n", username, email)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email, used as your sender id")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.Clear(st.cfg.SessionPath); err != nil {
				return err
			}
			st.logger.Info().Str("path", st.cfg.SessionPath).Msg("session cleared")
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := st.signedIn()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}
