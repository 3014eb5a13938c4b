package commands

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/internal/hubctl/app"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/spf13/cobra"
)

// Option customises the root command. Tests use it to point the CLI at a
// fake backend.
type Option func(*runtime)

// WithConfig replaces the environment-derived configuration.
func WithConfig(load func() app.Config) Option {
	return func(rt *runtime) { rt.loadConfig = load }
}

// WithAppOptions passes opts to app.New.
func WithAppOptions(opts ...app.Option) Option {
	return func(rt *runtime) { rt.appOpts = append(rt.appOpts, opts...) }
}

// runtime builds the Application lazily, once flags are parsed, and closes
// it when the command returns.
type runtime struct {
	loadConfig func() app.Config
	appOpts    []app.Option

	baseURL  string
	profile  string
	store    string
	logLevel string

	app *app.Application
}

func (rt *runtime) config() app.Config {
	cfg := rt.loadConfig()
	if rt.baseURL != "" {
		cfg.BaseURL = rt.baseURL
	}
	if rt.profile != "" {
		cfg.Profile = rt.profile
	}
	if rt.store != "" {
		cfg.Store = rt.store
	}
	if rt.logLevel != "" {
		cfg.LogLevel = rt.logLevel
	}
	return cfg
}

func (rt *runtime) application() (*app.Application, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	a, err := app.New(rt.config(), rt.appOpts...)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

func (rt *runtime) client() (*hubsdk.Client, error) {
	a, err := rt.application()
	if err != nil {
		return nil, err
	}
	return a.Client(), nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}

// NewRootCMD command entry
func NewRootCMD(opts ...Option) *cobra.Command {
	rt := &runtime{loadConfig: app.LoadConfig}
	for _, opt := range opts {
		opt(rt)
	}
	return newRootCMD(rt)
}

func newRootCMD(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hubctl",
		Short: "Command-line client for FrenchTutor Hub",
		Long: fmt.Sprintf(`
Browse courses, manage enrollments and join live lessons on FrenchTutor Hub.
Credentials are kept in %s and refreshed automatically when they expire.`,
			color.HiCyanString("~/.hubctl")),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       app.BuildVersion,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.baseURL, "base-url", "", "API origin (overrides HUB_BASE_URL)")
	flags.StringVar(&rt.profile, "profile", "", "credential profile (overrides HUB_PROFILE)")
	flags.StringVar(&rt.store, "store", "", "credential store: sqlite, memory or redis (overrides HUB_STORE)")
	flags.StringVar(&rt.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		loginCommand(rt),
		logoutCommand(rt),
		registerCommand(rt),
		whoamiCommand(rt),
		statusCommand(rt),
		coursesCommand(rt),
		enrollCommand(rt),
		enrollmentsCommand(rt),
		progressCommand(rt),
		paymentsCommand(rt),
		ordersCommand(rt),
		liveCommand(rt),
		profilesCommand(rt),
	)
	closeAfterRun(rt, cmd)

	return cmd
}

// closeAfterRun wraps every RunE in the tree so the runtime is closed when
// the command returns. Cobra skips post-run hooks after a failed RunE.
func closeAfterRun(rt *runtime, cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			err := run(c, args)
			if cerr := rt.close(); err == nil {
				err = cerr
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(rt, sub)
	}
}

// parseID parses a positive numeric identifier argument.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", what, s)
	}
	return id, nil
}
