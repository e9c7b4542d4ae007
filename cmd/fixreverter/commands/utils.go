/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the fixreverter commands. Provides configuration
loading, logging setup and helpers used across all command implementations.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kleascm/fixreverter-harness/pkg/logging"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	// Set environment variable prefix
	viper.SetEnvPrefix("FIXREVERTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// SetupLogging configures the logging system
func SetupLogging() (*logging.Logger, error) {
	config := logging.DefaultConfig()
	config.Level = logging.LogLevel(viper.GetString("log.level"))
	config.Format = logging.LogFormat(viper.GetString("log.format"))
	config.OutputDir = viper.GetString("log.output_dir")
	if n := viper.GetInt("log.max_files"); n > 0 {
		config.MaxFiles = n
	}

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return logger, nil
}

// TriageConfig decodes the triage settings and applies command overrides.
func TriageConfig() (*triage.Config, error) {
	config := triage.DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if d := viper.GetDuration("triage.unit_timeout"); d > 0 {
		config.UnitTimeout = d
	}
	if n := viper.GetInt("triage.max_combination"); n > 0 {
		config.MaxCombination = n
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// setup runs the steps every command shares.
func setup() (*triage.Config, *logging.Logger, error) {
	if err := LoadConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := SetupLogging()
	if err != nil {
		return nil, nil, err
	}
	config, err := TriageConfig()
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	return config, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
