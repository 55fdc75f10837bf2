package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hollis/convoview/internal/engine"
	"github.com/hollis/convoview/internal/model"
)

var (
	showPage    int
	showPerPage int
	showSearch  string
	showRole    string
	showKind    string

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
)

var showCmd = &cobra.Command{
	Use:   "show <source> <project> <session>",
	Short: "Show one page of a conversation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := eng.GetConversation(args[0], args[1], args[2], engine.Query{
			Page:    showPage,
			PerPage: showPerPage,
			Search:  showSearch,
			Role:    showRole,
			Kind:    model.Kind(showKind),
		})
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf(
			"page %d/%d · %d messages", conv.Page, conv.TotalPages, conv.Total)))

		for _, msg := range conv.Messages {
			fmt.Printf("%s\n%s\n\n", renderHeading(msg), msg.Content)
		}
		return nil
	},
}

func renderHeading(msg model.Message) string {
	label := fmt.Sprintf("#%d", msg.Seq)
	if msg.Timestamp != "" {
		label += " · " + msg.Timestamp
	}
	switch {
	case msg.Kind == model.KindSummary:
		return titleStyle.Render("── Summary ── " + label)
	case msg.Role == model.RoleUser:
		return userStyle.Render("── User ── " + label)
	case msg.Role == model.RoleAssistant:
		return assistantStyle.Render("── Assistant ── " + label)
	default:
		return dimStyle.Render("── Record ── " + label)
	}
}

var summaryCmd = &cobra.Command{
	Use:   "summary <source> <project> <session>",
	Short: "Print the session's summary, if the vendor recorded one",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := eng.SessionSummary(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if summary == "" {
			fmt.Println(dimStyle.Render("no summary recorded"))
			return nil
		}
		fmt.Println(summary)
		return nil
	},
}

func init() {
	showCmd.Flags().IntVar(&showPage, "page", 1, "Page number (1-based)")
	showCmd.Flags().IntVar(&showPerPage, "per-page", 50, "Messages per page")
	showCmd.Flags().StringVar(&showSearch, "search", "", "Only messages containing this text")
	showCmd.Flags().StringVar(&showRole, "role", "", "Only messages from this role (user, assistant)")
	showCmd.Flags().StringVar(&showKind, "kind", "", "Only messages of this kind (summary, message, other)")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
}
