// Package pipeline runs the two staffload stages: deduplicating the input
// workbook into the intermediate workbook, and loading the intermediate
// workbook into the employee store.
package pipeline

import (
	"errors"
	"strings"

	"github.com/finops-tools/staffload/internal/config"
)

const (
	defaultInputPath  = "dummyData.xlsx"
	defaultOutputPath = "cleanedDATA.xlsx"
)

var (
	// ErrInputPathEmpty is returned when no input workbook is configured.
	ErrInputPathEmpty = errors.New("input path cannot be empty")

	// ErrOutputPathEmpty is returned when no output workbook is configured.
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
)

// Config holds the run parameters that are not store connection settings.
type Config struct {
	InputPath  string // workbook to deduplicate
	OutputPath string // deduplicated workbook, also the load source

	// StrictIdentifiers collision-checks the base identifier of new name pairs.
	StrictIdentifiers bool

	// InsertsPerSecond caps the insert rate; zero disables the cap.
	InsertsPerSecond float64
}

// LoadConfig loads run configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		InputPath:         config.GetEnvStr("STAFFLOAD_INPUT_PATH", defaultInputPath),
		OutputPath:        config.GetEnvStr("STAFFLOAD_OUTPUT_PATH", defaultOutputPath),
		StrictIdentifiers: config.GetEnvBool("STAFFLOAD_STRICT_IDENTIFIERS", false),
		InsertsPerSecond:  config.GetEnvFloat("STAFFLOAD_INSERTS_PER_SECOND", 0),
	}
}

// Validate checks that both workbook paths are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return ErrInputPathEmpty
	}

	if strings.TrimSpace(c.OutputPath) == "" {
		return ErrOutputPathEmpty
	}

	return nil
}
