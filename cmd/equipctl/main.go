package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kirillkom/solar-equipment-parser/internal/bootstrap"
	"github.com/kirillkom/solar-equipment-parser/internal/config"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/logging"
)

func main() {
	root := newRootCommand(os.Stdout, os.Stderr, newParser)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errParseFailed) {
			fmt.Fprintln(os.Stderr, "equipctl:", err)
		}
		os.Exit(1)
	}
}

// newParser builds the stateless pipeline. Logs go to stderr so stdout carries only results.
func newParser(level string) (ports.EquipmentParser, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.LogLevel = level
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "equipctl", cfg.LogLevel)
	return bootstrap.NewParser(cfg, bootstrap.Options{Logger: logger})
}
