// Package cli implements the arbor command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/arbor/internal/logging"
	"github.com/mesh-intelligence/arbor/internal/paths"
	"github.com/mesh-intelligence/arbor/pkg/arbor"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// state is shared by the commands of one root command tree.
type state struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
}

// NewRootCmd creates the top-level "arbor" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	st := &state{}
	root := &cobra.Command{
		Use:     "arbor",
		Short:   "Query parent-linked node hierarchies",
		Long:    "Arbor stores named nodes linked to their parents and answers ancestor,\ndescendant, root and membership queries with recursive SQL.",
		Version: arbor.Version,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&st.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $"+paths.EnvConfigDir+")")
	pf.StringVar(&st.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.BoolVar(&st.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&st.flags.logLevel, "log-level", "", "log level written to stderr (trace, debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(st))
	root.AddCommand(newAddCmd(st))
	root.AddCommand(newGetCmd(st))
	root.AddCommand(newMoveCmd(st))
	root.AddCommand(newDeleteCmd(st))
	root.AddCommand(newListCmd(st))
	root.AddCommand(newRootsCmd(st))
	for _, cmd := range newSetCmds(st) {
		root.AddCommand(cmd)
	}
	root.AddCommand(newContainsCmd(st))
	root.AddCommand(newTreeCmd(st))

	return root
}

// load resolves the config directory, reads config.yaml and installs the
// logger. A missing config file is not an error.
func (st *state) load(stderr io.Writer) error {
	configDir, err := paths.ResolveConfigDir(st.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	st.configDir = configDir
	st.v = v

	level := st.flags.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	if err := logging.Setup(level, stderr); err != nil {
		return userError(err)
	}
	return nil
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCodeError tags an error with the process exit code it maps to.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

func userError(err error) error { return &exitCodeError{code: exitUserError, err: err} }

func sysError(err error) error { return &exitCodeError{code: exitSysError, err: err} }

// exitCode maps err to a process exit code. Errors not tagged by a command
// are classified by classify.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return classify(err)
}
