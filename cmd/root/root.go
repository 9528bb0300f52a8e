package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/logging"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
	"github.com/LucasSabena/codemobile-sub001/pkg/paths"
)

const AppName = "codemobile"

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	logFilePath string
	logFile     io.Closer
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "codemobile - chat with LLMs that can work on your project",
		Long:  "codemobile talks to OpenAI, Anthropic, GitHub Copilot, Codex and other compatible providers, and lets the model read, edit and run code in a project directory.",
		Example: `  codemobile login github-copilot
  codemobile chat --provider anthropic "explain main.go"
  codemobile chat --build --project . "add a unit test for the parser"`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags.setupLogging(cmd)

			if flags.enableOtel {
				if err := initOTelSDK(cmd.Context()); err != nil {
					slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
				} else {
					slog.Debug("OpenTelemetry SDK initialized successfully")
				}
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.codemobile/codemobile.debug.log; only used with --debug)")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "auth", Title: "Authentication Commands:"})

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging sends debug logs to a rotating file. Without --debug only
// warnings and errors are logged, to stderr.
func (f *rootFlags) setupLogging(cmd *cobra.Command) {
	if !f.debugMode {
		slog.SetDefault(slog.New(logging.NewHandler(cmd.ErrOrStderr(), false)))
		return
	}

	path := f.logFilePath
	if path == "" {
		path = filepath.Join(paths.GetDataDir(), AppName+".debug.log")
	}
	file, err := logging.NewRotatingFile(path)
	if err != nil {
		slog.SetDefault(slog.New(logging.NewHandler(cmd.ErrOrStderr(), true)))
		slog.Warn("Failed to open log file, logging to stderr", "path", path, "error", err)
		return
	}
	f.logFile = file
	slog.SetDefault(slog.New(logging.NewHandler(file, true)))
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return processErr(err, stderr)
	}
	return nil
}

func processErr(err error, stderr io.Writer) error {
	var cfgErr *provider.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(stderr, red("%s", cfgErr.Error()))
		return err
	}
	fmt.Fprintln(stderr, red("Error: %s", err))
	return err
}
