package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/papercraft-labs/pcrelease/internal/branding"
	"github.com/papercraft-labs/pcrelease/internal/config"
	"github.com/papercraft-labs/pcrelease/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	flagWorkspace string
	flagSource    string
	flagPipeline  string
	flagStore     string
	flagLogLevel  string
	flagLogFormat string

	settings config.Settings
	logger   = zap.NewNop()
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagWorkspace, "workspace", "", "Directory for toolchains, job builds and local artifacts")
	pf.StringVar(&flagSource, "source", "", "Application checkout to build")
	pf.StringVar(&flagPipeline, "pipeline", "", "Pipeline manifest (defaults to the embedded pipeline)")
	pf.StringVar(&flagStore, "store", "", "Artifact store backend: fs or redis")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console or json")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` builds ` + branding.AppName() + ` for every supported platform in parallel,
packages each build into its platform's distributable and publishes the
results together as one pre-release.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		config.Override(config.KeyWorkspace, flagWorkspace)
		config.Override(config.KeySource, flagSource)
		config.Override(config.KeyPipeline, flagPipeline)
		config.Override(config.KeyStoreBackend, flagStore)
		config.Override(config.KeyLogLevel, flagLogLevel)
		config.Override(config.KeyLogFormat, flagLogFormat)
		settings = config.Resolve()

		l, err := logging.New(logging.Config{Level: settings.LogLevel, Format: settings.LogFormat})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
}

// ExitError carries a process exit code. A nil Err means the command already
// reported the failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	_ = logger.Sync()

	var exitErr *ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.Err == nil) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
