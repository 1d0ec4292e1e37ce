package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain/models"
)

// operator is the principal corpusctl acts as for scoped reads.
var operator = models.Principal{UserID: "corpusctl", Role: models.RoleAdmin}

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired local-scope documents",
		Long: `Delete every local-scope document whose expiry has passed.

Stored content and index entries are removed along with the document.
The server runs the same sweep on a timer; use this to force one.

Examples:
  corpusctl sweep
  corpusctl sweep --as-of 2026-11-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if asOf != "" {
				t, err := time.Parse(time.RFC3339, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				now = t
			}

			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			deleted, err := b.lifecycle.SweepExpired(cmd.Context(), now)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			if deleted == 0 {
				fmt.Println("No expired documents")
				return nil
			}
			fmt.Printf("%s %d expired document(s)\n", color.New(color.FgRed).Sprint("DELETED"), deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Treat this RFC3339 time as now")
	return cmd
}

// ReconcileCmd returns the reconcile command
func ReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile PROJECT_ID...",
		Short: "Recompute project and folder counters",
		Long: `Recompute document, chunk and storage counters for the given projects
from their current memberships.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			failed := 0
			for _, id := range args {
				project, err := b.projects.ReconcileCounters(cmd.Context(), id)
				if err != nil {
					fmt.Printf("%s %s: %v\n", color.New(color.FgRed).Sprint("FAILED"), id, err)
					failed++
					continue
				}
				fmt.Printf("%s %s (%s): %d documents, %d chunks, %s\n",
					color.New(color.FgGreen).Sprint("OK"),
					project.ID, project.Name,
					project.DocumentCount, project.ChunkCount,
					formatBytes(project.StorageBytes))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d project(s) failed", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

// DuplicatesCmd returns the duplicates command
func DuplicatesCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "duplicates PROJECT_ID",
		Short: "Report duplicate documents in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			pairs, err := b.duplicates.CheckDuplicates(cmd.Context(), operator, args[0], threshold)
			if err != nil {
				return fmt.Errorf("duplicate check failed: %w", err)
			}
			if len(pairs) == 0 {
				fmt.Println("No duplicates found")
				return nil
			}

			fmt.Printf("%d duplicate pair(s):\n\n", len(pairs))
			for _, pair := range pairs {
				fmt.Printf("  %s %5.1f%%  %s  <->  %s\n",
					color.New(color.FgYellow).Sprintf("%-9s", pair.MatchType),
					pair.Similarity*100,
					pair.DocumentA.Name, pair.DocumentB.Name)
				fmt.Printf("                    %s  <->  %s\n", pair.DocumentA.ID, pair.DocumentB.ID)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultDuplicateThreshold, "Minimum similarity for non-exact matches (0-1]")
	return cmd
}

// StaleCmd returns the stale command
func StaleCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List documents and review tables stuck in processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			documents, err := b.lifecycle.ListStale(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("list stale documents: %w", err)
			}
			tables, err := b.reviewTables.ListStale(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("list stale review tables: %w", err)
			}

			fmt.Printf("Processing for more than %s\n\n", olderThan)
			fmt.Printf("Documents (%d)\n", len(documents))
			for _, id := range documents {
				fmt.Printf("  %s\n", id)
			}
			fmt.Printf("\nReview tables (%d)\n", len(tables))
			for _, t := range tables {
				fmt.Printf("  %s %s  %d/%d  since %s\n",
					t.ID, t.Name, t.ProcessedDocuments, t.TotalDocuments,
					color.New(color.FgYellow).Sprint(t.UpdatedAt.Format(time.RFC3339)))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "How long a job may sit in processing")
	return cmd
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [DOCUMENT_ID...]",
		Short: "Run ingestion for pending documents",
		Long: `Run ingestion in this process for the given documents, or for every
pending document when none are given. Documents another worker has
already claimed are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			ids := args
			if len(ids) == 0 {
				ids, err = b.lifecycle.PendingDocumentIDs(cmd.Context())
				if err != nil {
					return fmt.Errorf("list pending documents: %w", err)
				}
			}
			if len(ids) == 0 {
				fmt.Println("No pending documents")
				return nil
			}

			for _, id := range ids {
				claimed, err := b.lifecycle.Ingest(cmd.Context(), id)
				switch {
				case err != nil:
					fmt.Printf("%s %s: %v\n", color.New(color.FgRed).Sprint("FAILED "), id, err)
				case !claimed:
					fmt.Printf("%s %s\n", color.New(color.FgBlue).Sprint("SKIPPED"), id)
				default:
					fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("DONE   "), id)
				}
			}
			return nil
		},
	}
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
