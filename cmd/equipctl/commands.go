package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/solar-equipment-parser/internal/adapters/mcp"
	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
)

type parserFactory func(logLevel string) (ports.EquipmentParser, error)

var errParseFailed = errors.New("parse failed")

func newRootCommand(stdout, stderr io.Writer, factory parserFactory) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "equipctl",
		Short:         "Extract solar equipment records from PDF datasheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newParseCommand(factory, &logLevel))
	root.AddCommand(newMCPCommand(factory, &logLevel))
	return root
}

func newParseCommand(factory parserFactory, logLevel *string) *cobra.Command {
	var (
		documentURL string
		filePath    string
		pretty      bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse one datasheet and print the result envelope as JSON",
		Example: "  equipctl parse --url https://example.com/panel.pdf\n" +
			"  equipctl parse --file ./inverter.pdf --pretty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (documentURL == "") == (filePath == "") {
				return errors.New("exactly one of --url or --file is required")
			}

			parser, err := factory(*logLevel)
			if err != nil {
				return fmt.Errorf("init parser: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var data []byte
			if filePath != "" {
				data, err = os.ReadFile(filePath)
				if err != nil {
					return fmt.Errorf("read %s: %w", filePath, err)
				}
			}

			result := runParse(ctx, parser, documentURL, data)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			if !result.Success {
				return errParseFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&documentURL, "url", "", "absolute http(s) URL of the PDF datasheet")
	cmd.Flags().StringVar(&filePath, "file", "", "path to a local PDF datasheet")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newMCPCommand(factory parserFactory, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the parser as an MCP tool over stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			parser, err := factory(*logLevel)
			if err != nil {
				return fmt.Errorf("init parser: %w", err)
			}
			return mcpadapter.ServeStdio(parser)
		},
	}
}

func runParse(ctx context.Context, parser ports.EquipmentParser, documentURL string, data []byte) domain.ParseResult {
	if documentURL != "" {
		return parser.Parse(ctx, documentURL)
	}
	return parser.ParseUpload(ctx, data)
}
