package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var projectsCmd = &cobra.Command{
	Use:   "projects <source>",
	Short: "List a source's projects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := eng.ListProjects(args[0])
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println(dimStyle.Render("no projects found"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s projects", args[0])))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY\tSESSIONS\tMODIFIED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				p.Name, p.DisplayName, p.SessionCount, p.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions <source> <project>",
	Short: "List a project's sessions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := eng.ListSessions(args[0], args[1])
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println(dimStyle.Render("no sessions found"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s / %s", args[0], args[1])))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMESSAGES\tSIZE\tMODIFIED\tTITLE")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				s.ID, s.MessageCount, s.Size, s.ModifiedAt.Format("2006-01-02 15:04"), s.Title)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(sessionsCmd)
}
