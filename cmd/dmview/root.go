package main

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmview/internal/config"
	applog "github.com/vovakirdan/dmview/internal/log"
	"github.com/vovakirdan/dmview/internal/session"
	"github.com/vovakirdan/dmview/internal/store/rest"
)

var errNotSignedIn = errors.New("not signed in, run 'dmview login' first")

// state is shared by every subcommand once the root pre-run has loaded it.
type state struct {
	configPath string
	logLevel   string
	storeURL   string

	cfg    config.Config
	logger *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	st := &state{}

	cmd := &cobra.Command{
		Use:           "dmview",
		Short:         "Two-party chat over a REST message store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "path to config file")
	flags.StringVar(&st.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVar(&st.storeURL, "store-url", "", "message store base URL")

	cmd.AddCommand(
		newChatCmd(st),
		newListCmd(st),
		newSendCmd(st),
		newEditCmd(st),
		newDeleteCmd(st),
		newLoginCmd(st),
		newLogoutCmd(st),
		newWhoamiCmd(st),
		newServeCmd(st),
	)
	return cmd
}

func (s *state) load(cmd *cobra.Command) error {
	bootstrap := applog.New(s.logLevel)

	cfg, path, err := config.Load(bootstrap, s.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{
		LogLevel: s.logLevel,
		StoreURL: s.storeURL,
	})

	s.cfg = cfg
	s.logger = applog.New(cfg.LogLevel)
	s.logger.Debug().Str("config", path).Str("command", cmd.Name()).Msg("config loaded")
	return nil
}

func (s *state) tokenConfig() *session.TokenConfig {
	return &session.TokenConfig{
		Secret:   []byte(s.cfg.SessionSecret),
		Issuer:   s.cfg.SessionIssuer,
		Audience: s.cfg.SessionAudience,
		TTL:      s.cfg.SessionTTL,
	}
}

func (s *state) sessionProvider() *session.TokenProvider {
	return session.NewTokenProvider(s.cfg.SessionPath, s.tokenConfig())
}

func (s *state) storeClient() *rest.Client {
	return rest.NewClient(s.cfg.StoreURL, s.cfg.RequestTimeout, s.logger)
}

// signedIn returns the current user or an error asking to log in.
func (s *state) signedIn() (*session.User, error) {
	user, err := s.sessionProvider().Load()
	if err != nil {
		s.logger.Debug().Err(err).Msg("no usable session")
		return nil, errNotSignedIn
	}
	return user, nil
}
