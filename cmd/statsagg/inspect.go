package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/brawlstats/statsagg/internal/export"
	"github.com/brawlstats/statsagg/internal/models"
)

func newInspectCmd() *cobra.Command {
	var output, kind string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the manifest of the published run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := export.ReadManifest(output)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			printManifest(cmd.OutOrStdout(), m, kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", defaultOutputRoot(), "publish location")
	cmd.Flags().StringVar(&kind, "kind", "", "only list artifacts of this kind")
	return cmd
}

func printManifest(w io.Writer, m *models.Manifest, kind string) {
	fmt.Fprintf(w, "Run:        %s\n", m.RunID)
	fmt.Fprintf(w, "Generated:  %s\n", m.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Window:     since %s (%d days), rank >= %d\n", m.Since, m.RetentionDays, m.MinRankID)
	fmt.Fprintf(w, "Confidence: %.3f\n", m.ConfidenceLevel)
	fmt.Fprintf(w, "Battles:    %d (%d malformed)\n\n", m.Battles, m.MalformedBattle)

	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	table.Header("KIND", "PATH", "ENTRIES")

	var files, entries int
	for _, a := range m.Artifacts {
		if kind != "" && a.Kind != kind {
			continue
		}
		table.Append(a.Kind, a.Path, strconv.Itoa(a.Entries))
		files++
		entries += a.Entries
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d files, %d entries)\n", files, entries)
}
