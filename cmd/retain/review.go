package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfield/retain/internal/config"
	"github.com/mfield/retain/internal/domain"
)

// NewReviewCmd creates the interactive review command
func NewReviewCmd(cfg func() *config.Config) *cobra.Command {
	var (
		deckID   int64
		maxCards int
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Start a flashcard review session",
		Long: `Start an interactive review session over a deck and its subdecks.
Cards are presented one at a time; grade your recall with 1-4 or
a/h/g/e (Again | Hard | Good | Easy). Quit with 'q'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if maxCards == 0 {
				maxCards = c.Review.MaxCardsPerSession
			}
			app, err := NewApp(c)
			if err != nil {
				return err
			}
			defer app.Close()

			session, err := app.StudyService.StartSession(deckID, maxCards)
			if err != nil {
				return fmt.Errorf("failed to start review session: %w", err)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				card, err := app.StudyService.NextCard(session.ID)
				if err != nil {
					return err
				}
				if card == nil {
					break
				}

				n, l, r := app.StudyService.Counts(session.ID)
				fmt.Printf("\n[new %d | learn %d | due %d]  card %d (deck %d)\n",
					n, l, r, card.ID, card.DID)
				fmt.Printf("buttons: %d  next intervals:", app.Scheduler.AnswerButtons(card))
				for e := domain.Again; e <= domain.Easy; e++ {
					fmt.Printf(" %s=%s", e, formatIvl(app.Scheduler.NextIvl(card, e)))
				}
				fmt.Println()

				fmt.Print("grade (1-4, q to quit): ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "q" || input == "quit" {
					break
				}
				ease, err := domain.ParseEase(input)
				if err != nil {
					fmt.Println(err)
					continue
				}
				if err := app.StudyService.Answer(session.ID, ease); err != nil {
					return fmt.Errorf("failed to record answer: %w", err)
				}
			}

			stats, err := app.StudyService.EndSession(session.ID)
			if err != nil {
				return err
			}
			fmt.Printf("\nSession done: %d cards in %s\n",
				stats.CardsReviewed, stats.Duration.Round(time.Second))
			return nil
		},
	}

	cmd.Flags().Int64Var(&deckID, "deck-id", 1, "deck to review (with its subdecks)")
	cmd.Flags().IntVar(&maxCards, "max-cards", 0, "maximum cards per session (0 = config default)")

	return cmd
}

// formatIvl renders a next-interval preview compactly.
func formatIvl(seconds int64) string {
	switch {
	case seconds == 0:
		return "-"
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%.1fh", float64(seconds)/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}
