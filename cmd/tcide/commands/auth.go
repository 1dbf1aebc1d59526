package commands

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// LoginCmd implements the 'login' command.
type LoginCmd struct {
	Token string `arg:"" optional:"" help:"Access token; read from stdin when omitted"`
}

func (l *LoginCmd) Run(g *Global, root *CLI) error {
	token := strings.TrimSpace(l.Token)
	if token == "" {
		line, err := bufio.NewReader(g.In).ReadString('\n')
		if err != nil && line == "" {
			return errors.ValidationError("no token given").WithCause(err).Build()
		}
		token = strings.TrimSpace(line)
	}
	id, err := auth.Decode(token)
	if err != nil {
		return err
	}
	if id.Expired(time.Now()) {
		return auth.ErrTokenExpired
	}

	_, store, err := root.tokenProvider()
	if err != nil {
		return err
	}
	if err := store.Save(token); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Logged in as %s\n", id.Handle)
	return nil
}

// LogoutCmd implements the 'logout' command.
type LogoutCmd struct{}

func (LogoutCmd) Run(g *Global, root *CLI) error {
	_, store, err := root.tokenProvider()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, "Logged out")
	return nil
}

// WhoamiCmd implements the 'whoami' command.
type WhoamiCmd struct{}

func (WhoamiCmd) Run(g *Global, root *CLI) error {
	provider, _, err := root.tokenProvider()
	if err != nil {
		return err
	}
	_, id, err := provider.ValidToken(g.Ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Handle:  %s\nUser ID: %s\n", id.Handle, id.UserID)
	if !id.ExpiresAt.IsZero() {
		_, _ = fmt.Fprintf(g.Out, "Expires: %s\n", id.ExpiresAt.Local().Format(time.RFC3339))
	}
	return nil
}
