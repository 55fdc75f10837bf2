package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollis/convoview/internal/engine"
	"github.com/hollis/convoview/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <source> <project> <session>",
	Short: "Export a whole conversation to a file or stdout",
	Long: `Export a conversation in json, jsonl, yaml, or markdown form.
The whole session is exported regardless of pagination settings.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, project, session := args[0], args[1], args[2]

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		// One oversized page keeps the export whole.
		conv, err := eng.GetConversation(src, project, session, engine.Query{PerPage: 1 << 30})
		if err != nil {
			return err
		}
		title, err := eng.SessionSummary(src, project, session)
		if err != nil {
			return err
		}

		doc := &export.Document{
			Source:   src,
			Project:  project,
			Session:  session,
			Title:    title,
			Messages: conv.Messages,
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := exporter.Export(doc, out); err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Fprintf(os.Stderr, "wrote %d messages to %s\n", len(doc.Messages), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, jsonl, yaml, md")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
