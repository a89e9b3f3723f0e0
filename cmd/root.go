package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/obarth/ogate/internal/config"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "ogate",
	Short:   "HTTP gateway for named management objects",
	Long: `ogate exposes named management objects over HTTP. Attributes can be
read and written, operations invoked, and registries introspected through
path-encoded GET requests or JSON POST bodies.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/ogate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	// OGATE_PLATFORM, OGATE_HISTORY_ENABLED, ... override file values.
	viper.SetEnvPrefix("OGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defaults := config.Default()
	viper.SetDefault("addr", defaults.Addr)
	viper.SetDefault("platform", defaults.Platform)
	viper.SetDefault("prime_domain", defaults.PrimeDomain)
	viper.SetDefault("catalog", defaults.Catalog)
	viper.SetDefault("limits.max_depth", defaults.Limits.MaxDepth)
	viper.SetDefault("limits.max_collection_size", defaults.Limits.MaxCollectionSize)
	viper.SetDefault("limits.max_objects", defaults.Limits.MaxObjects)
	viper.SetDefault("bulk.max_depth", defaults.Bulk.MaxDepth)
	viper.SetDefault("bulk.max_collection_size", defaults.Bulk.MaxCollectionSize)
	viper.SetDefault("bulk.max_objects", defaults.Bulk.MaxObjects)
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.retention", defaults.History.Retention)
	viper.SetDefault("history.max_entries", defaults.History.MaxEntries)
	viper.SetDefault("history.path", defaults.History.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order: ./ogate.yaml, then the user config dir.
		if _, err := os.Stat("ogate.yaml"); err == nil {
			viper.SetConfigFile("ogate.yaml")
		} else {
			home, _ := os.UserConfigDir()
			viper.AddConfigPath(filepath.Join(home, "ogate"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if defaultPath, pathErr := config.DefaultPath(); pathErr == nil {
				if writeErr := config.WriteDefault(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If the write fails, continue with built-in defaults.
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
