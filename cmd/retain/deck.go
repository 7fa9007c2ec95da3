package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfield/retain/internal/config"
	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/sched"
)

// NewDeckCmd creates the deck management command
func NewDeckCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Manage decks",
		Long: `Manage decks: list them with their due counts, create new ones, and
import deck-options presets.

Decks form a tree via "::" in their names; "Languages::French" is a child of
"Languages". Child decks consume their parents' daily limits.`,
	}

	cmd.AddCommand(newDeckListCmd(cfg))
	cmd.AddCommand(newDeckCreateCmd(cfg))
	cmd.AddCommand(newDeckPresetCmd(cfg))

	return cmd
}

func newDeckListCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the deck tree with due counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			tree, err := app.Scheduler.DeckDueTree()
			if err != nil {
				return fmt.Errorf("failed to compute due counts: %w", err)
			}

			fmt.Printf("%-40s %6s %6s %6s\n", "Deck", "New", "Learn", "Due")
			printTree(tree, 0)
			return nil
		},
	}
}

func printTree(nodes []*sched.DeckTreeNode, depth int) {
	for _, n := range nodes {
		name := strings.Repeat("  ", depth) + n.Head
		fmt.Printf("%-40s %6d %6d %6d\n", name, n.New, n.Lrn, n.Rev)
		printTree(n.Children, depth+1)
	}
}

func newDeckCreateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a deck (missing parents are created too)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			d, err := app.Collection.Decks.Create(args[0], nil)
			if err != nil {
				return err
			}
			fmt.Printf("Created deck %q (id %d)\n", d.Name, d.ID)
			return nil
		},
	}
}

func newDeckPresetCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage deck-options presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import deck-options presets from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			presets, err := deck.LoadPresets(args[0])
			if err != nil {
				return err
			}
			for _, p := range presets {
				if err := app.Collection.Decks.AddConfig(p); err != nil {
					return fmt.Errorf("failed to store preset %q: %w", p.Name, err)
				}
				fmt.Printf("Imported preset %q (id %d)\n", p.Name, p.ID)
			}
			return nil
		},
	})
	return cmd
}
