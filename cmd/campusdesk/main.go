package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// overrides holds values bound from CAMPUSDESK_* variables and command flags.
var overrides = viper.New()

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "campusdesk",
		Short:         "Multilingual campus help-desk chatbot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(".env")
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "campusdesk.yaml", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db-path", "", "path to the usage/cache database")
	rootCmd.PersistentFlags().String("knowledge", "", "knowledge source (file path or s3://bucket/key)")

	overrides.SetEnvPrefix("CAMPUSDESK")
	overrides.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for key, flag := range map[string]string{
		"log_level":      "log-level",
		"db_path":        "db-path",
		"knowledge_path": "knowledge",
	} {
		_ = overrides.BindEnv(key)
		_ = overrides.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
	_ = overrides.BindEnv("listen")

	rootCmd.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newMCPCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newBudgetCmd(),
		newAuditCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv copies variables from a dotenv file into the process
// environment. Variables already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
