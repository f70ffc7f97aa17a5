package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/assistcart/pkg/log"
)

// RunFunc is the entrypoint of a binary once options are loaded and valid.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// App is a cobra command wrapped with option loading and validation.
type App struct {
	basename    string
	shortDesc   string
	description string
	runFunc     RunFunc
	options     NamedFlagSetOptions
	args        cobra.PositionalArgs
	silence     bool
	watch       bool

	cfgFile string
	v       *viper.Viper
	cmd     *cobra.Command
}

// WithOptions sets the options loaded from flags, env and the config file.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the function run after the options are validated.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDescription sets the long description of the command.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithWatchConfig hot-applies the log level when the config file changes.
func WithWatchConfig() Option {
	return func(a *App) {
		a.watch = true
	}
}

// WithSilence suppresses the startup banner.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// NewApp creates an App named basename.
func NewApp(basename string, shortDesc string, opts ...Option) *App {
	a := &App{
		basename:  basename,
		shortDesc: shortDesc,
		v:         viper.New(),
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process with status 1 on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.basename,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}
	a.addConfigFlag(fss.FlagSet("global"))
	fss.FlagSet("global").BoolP("help", "h", false, fmt.Sprintf("Help for %s.", a.basename))

	for _, fs := range fss.FlagSets {
		cmd.Flags().AddFlagSet(fs)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if a.options != nil {
		if err := a.loadConfig(cmd.Flags()); err != nil {
			return err
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
		if lo, ok := a.options.(LogOptionsGetter); ok {
			log.Init(lo.LogOptions())
		}
	}
	defer log.Sync()

	if !a.silence {
		log.Info("Starting application", "name", a.basename)
		if a.cfgFile != "" {
			log.Info("Using configuration file", "path", a.cfgFile)
		}
	}

	a.watchConfig()
	return a.runFunc()
}
