package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/darelteb/domain"
)

// testFlags are the details of a lab test given on the command line.
type testFlags struct {
	name     string
	image    string
	coins    float64
	category string
}

func (f *testFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "display name of the test")
	cmd.Flags().StringVarP(&f.image, "image", "i", "", "image URL or path")
	cmd.Flags().Float64VarP(&f.coins, "coins", "c", 0, "price in coins")
	cmd.Flags().StringVar(&f.category, "category", "", "optional category")
}

func (f *testFlags) test(id string) domain.FavoriteTest {
	return domain.FavoriteTest{
		ID:       id,
		Name:     f.name,
		ImageURL: f.image,
		Coins:    f.coins,
		Category: f.category,
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorite tests in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			favorites, err := app.Favorites.Load()
			if err != nil {
				return fmt.Errorf("failed to load favorites: %w", err)
			}

			if len(favorites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorite tests yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOINS\tCATEGORY")
			for _, favorite := range favorites {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", favorite.ID, favorite.Name,
					strconv.FormatFloat(favorite.Coins, 'f', -1, 64), favorite.Category)
			}
			return w.Flush()
		},
	}
}

func newAddCmd(c *cli) *cobra.Command {
	var flags testFlags

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a test to the favorites",
		Long: `Add a test to the favorites. Adding a test that is already a favorite changes nothing.

Examples:
  darelteb add t1 --name "CBC" --coins 50
  darelteb add t9 --name "Vitamin D" --image https://cdn.example/9.png --coins 120 --category vitamins`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			added, err := app.Favorites.Insert(flags.test(args[0]))
			if err != nil {
				return fmt.Errorf("failed to add favorite: %w", err)
			}

			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already a favorite\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", args[0])
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a test from the favorites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Favorites.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to remove favorite: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", args[0])
			return nil
		},
	}
}

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>",
		Short: "Print whether a test is a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			found, err := app.Favorites.Contains(args[0])
			if err != nil {
				return fmt.Errorf("failed to check favorite: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(found))
			return nil
		},
	}
}

func newToggleCmd(c *cli) *cobra.Command {
	var flags testFlags

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Add the test if it is not a favorite, remove it otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Favorites.Toggle(flags.test(args[0])) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now a favorite\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not a favorite\n", args[0])
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Favorites.Clear(); err != nil {
				return fmt.Errorf("failed to clear favorites: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Cleared all favorites")
			return nil
		},
	}
}

func newCountCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintln(cmd.OutOrStdout(), app.Favorites.Count())
			return nil
		},
	}
}
