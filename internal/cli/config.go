package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/arbor/internal/paths"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "ARBOR"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyPostgresDSN  = "postgres_dsn"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyLogLevel     = "log_level"
)

// loadConfig reads config.yaml from configDir. Every key may be overridden by
// an ARBOR_-prefixed environment variable, e.g. ARBOR_POSTGRES_DSN.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, userError(fmt.Errorf("read config: %w", err))
	}
	return v, nil
}

// groveConfig assembles the backend configuration from flags and viper.
func (st *state) groveConfig() (types.Config, error) {
	cfg := types.Config{
		Backend:      st.v.GetString(cfgKeyBackend),
		PostgresDSN:  st.v.GetString(cfgKeyPostgresDSN),
		SQLiteConfig: types.SQLiteConfig{SyncStrategy: st.v.GetString(cfgKeySyncStrategy)},
	}
	if cfg.Backend == types.BackendSQLite {
		dataDir, err := paths.ResolveDataDir(st.flags.dataDir, st.v.GetString(cfgKeyDataDir))
		if err != nil {
			return cfg, sysError(fmt.Errorf("resolve data dir: %w", err))
		}
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, userError(fmt.Errorf("invalid configuration: %w", err))
	}
	return cfg, nil
}
