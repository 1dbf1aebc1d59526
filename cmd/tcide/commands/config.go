package commands

import (
	"fmt"

	"git.home.luguber.info/inful/tcide/internal/config"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write an example configuration file"`
}

// ConfigInitCmd implements the 'config init' command.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *ConfigInitCmd) Run(g *Global, root *CLI) error {
	_, _ = fmt.Fprintf(g.Out, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write configuration").
			WithContext("path", root.Config).
			Build()
	}
	_, _ = fmt.Fprintln(g.Out, "initialized successfully")
	return nil
}
