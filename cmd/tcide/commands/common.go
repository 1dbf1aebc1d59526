package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/config"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/version"
)

// Global carries process state shared by every command.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"${config_path}" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format: text or json (default from config)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Login       LoginCmd       `cmd:"" help:"Store a platform access token"`
	Logout      LogoutCmd      `cmd:"" help:"Remove the stored access token"`
	Whoami      WhoamiCmd      `cmd:"" help:"Show the member the current token belongs to"`
	Challenges  ChallengesCmd  `cmd:"" help:"List active challenges"`
	Show        ShowCmd        `cmd:"" help:"Show challenge details and requirements"`
	Register    RegisterCmd    `cmd:"" help:"Register for a challenge"`
	Init        InitCmd        `cmd:"" help:"Mark a directory as the workspace of a challenge"`
	StarterPack StarterPackCmd `cmd:"" name:"starter-pack" help:"Copy a starter pack into a challenge workspace"`
	Submit      SubmitCmd      `cmd:"" help:"Package the workspace and submit it"`
	Submissions SubmissionsCmd `cmd:"" help:"List challenges with submissions awaiting review"`
	Reviews     ReviewsCmd     `cmd:"" help:"Show your submissions and review scores for a challenge"`
	Download    DownloadCmd    `cmd:"" help:"Download a submission artifact"`
	History     HistoryCmd     `cmd:"" help:"Show recent local submission attempts"`
	ConfigCmd   ConfigCmd      `cmd:"" name:"config" help:"Manage the configuration file"`

	cfg    *config.Config
	global *Global
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	c.global = g
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	c.setLogger(level, config.NormalizeLogFormat(c.LogFormat))
	return nil
}

func (c *CLI) setLogger(level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(c.global.Err, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(c.global.Err, opts)
	}
	c.global.Logger = slog.New(handler)
	slog.SetDefault(c.global.Logger)
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig reads the configuration once per invocation.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load configuration").
			WithContext("path", c.Config).
			Build()
	}
	c.cfg = cfg

	// Flags win over the file.
	if c.global != nil && !c.Verbose && c.LogFormat == "" {
		c.setLogger(cfg.Logging.Level, cfg.Logging.Format)
	}
	return cfg, nil
}

func (c *CLI) tokenProvider() (*auth.Provider, *auth.Store, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	store := auth.NewStore(cfg.Auth.TokenFile)
	return auth.NewProvider(store, cfg.Auth.TokenEnv), store, nil
}

// session resolves a valid token and an API client.
func (c *CLI) session(ctx context.Context) (*challenge.Client, string, auth.Identity, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, "", auth.Identity{}, err
	}
	provider, _, err := c.tokenProvider()
	if err != nil {
		return nil, "", auth.Identity{}, err
	}
	token, id, err := provider.ValidToken(ctx)
	if err != nil {
		return nil, "", auth.Identity{}, err
	}
	return challenge.NewClient(cfg.API), token, id, nil
}

// Execute parses args, runs the selected command and returns the exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cli := &CLI{}
	global := &Global{Ctx: ctx, Logger: slog.Default(), In: in, Out: out, Err: errOut}

	exitCode := -1
	parser, err := kong.New(cli,
		kong.Name("tcide"),
		kong.Description("Browse, register for and submit to programming challenges."),
		kong.UsageOnError(),
		kong.Writers(out, errOut),
		kong.Exit(func(code int) { exitCode = code }),
		kong.Vars{"version": version.String(), "config_path": config.DefaultPath()},
		kong.Bind(global),
	)
	if err != nil {
		_, _ = io.WriteString(errOut, err.Error()+"\n")
		return 1
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		// --help and --version exit during parsing.
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}
	if err := kctx.Run(global, cli); err != nil {
		return errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).Report(err, errOut)
	}
	return 0
}
