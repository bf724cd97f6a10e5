package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/darelteb/domain"
	"github.com/tfkr-ae/darelteb/export"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the favorites as JSON, YAML, XML or HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			favorites, err := app.Favorites.Load()
			if err != nil {
				return fmt.Errorf("failed to load favorites: %w", err)
			}

			rendered, err := export.Render(exportFormat, favorites)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(rendered)
				return err
			}

			if err := os.WriteFile(out, rendered, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d favorites to %s\n", len(favorites), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "json", "output format: json, yaml, xml or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default is stdout)")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add every test listed in a JSON, XML or YAML file",
		Long: `Add every test listed in a JSON, XML or YAML file, such as one written by export.
Tests that are already favorites are skipped. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			favorites, err := export.Parse(data)
			if err != nil {
				return err
			}

			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var added, skipped int
			for _, favorite := range favorites {
				ok, err := app.Favorites.Insert(favorite)
				if errors.Is(err, domain.ErrInvalidFavorite) {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping entry: %v\n", err)
					skipped++
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", favorite.ID, err)
				}
				if !ok {
					skipped++
					continue
				}
				added++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d favorites, skipped %d\n", added, skipped)
			return nil
		},
	}
}
