package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/arbor/internal/paths"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	PostgresDSN  string `yaml:"postgres_dsn,omitempty"`
	SyncStrategy string `yaml:"sync_strategy,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
}

func newInitCmd(st *state) *cobra.Command {
	var (
		backend  string
		dsn      string
		userData bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize arbor configuration and storage",
		Long: `Init writes config.yaml to the config directory if it does not exist yet,
then attaches to the configured backend once so that the data directory
or database schema is created. Running init again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cf := configFile{Backend: backend, PostgresDSN: dsn}
			if userData {
				dir, err := paths.DefaultDataDir()
				if err != nil {
					return sysError(fmt.Errorf("resolve user data dir: %w", err))
				}
				cf.DataDir = dir
			} else if st.flags.dataDir != "" {
				cf.DataDir = st.flags.dataDir
			}

			path := paths.ConfigFile(st.configDir)
			created, err := writeConfigIfMissing(st.configDir, path, cf)
			if err != nil {
				return sysError(fmt.Errorf("write config: %w", err))
			}
			if created {
				v, err := loadConfig(st.configDir)
				if err != nil {
					return err
				}
				st.v = v
			}

			if err := st.withGrove(func(types.Grove) error { return nil }); err != nil {
				return err
			}
			return st.printer(cmd).message("config", path, "arbor initialized: "+path)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", types.BackendSQLite, "storage backend (sqlite or postgres)")
	cmd.Flags().StringVar(&dsn, "postgres-dsn", "", "PostgreSQL connection string for the postgres backend")
	cmd.Flags().BoolVar(&userData, "user-data", false, "keep data in the per-user data directory instead of $(CWD)/"+paths.DefaultDataDirName)
	return cmd
}

// writeConfigIfMissing creates configDir and writes cf to path unless the file
// already exists. It reports whether it wrote the file.
func writeConfigIfMissing(configDir, path string, cf configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, err
	}
	data, err := yaml.Marshal(&cf)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
