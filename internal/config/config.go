// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the application.
type Options struct {
	// DataFile is the path to the JSON account store.
	DataFile string

	// DatabaseDSN holds the Postgres connection string. When set, the
	// Postgres account repository is used instead of the file store.
	DatabaseDSN string

	// Issuer is the name embedded in OTP provisioning URIs.
	Issuer string

	// DriftWindow is the number of adjacent 30-second TOTP steps accepted
	// on either side of the current step.
	DriftWindow uint

	// ReseedOnCorrupt allows the file store to discard unparseable data
	// and reseed the demo accounts instead of failing at startup.
	ReseedOnCorrupt bool

	// LogLevel sets the zap logging level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.DataFile, "f", "users.json", "path to the account store file")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Issuer, "issuer", "FinCore Demo", "issuer name for OTP enrollment")
	flag.UintVar(&options.DriftWindow, "drift", 1, "accepted TOTP drift window in steps")
	flag.BoolVar(&options.ReseedOnCorrupt, "reseed", false, "reseed demo accounts when the store is corrupt")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if dataFile := os.Getenv("DATA_FILE"); dataFile != "" {
		options.DataFile = dataFile
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}

	if issuer := os.Getenv("OTP_ISSUER"); issuer != "" {
		options.Issuer = issuer
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options
}
