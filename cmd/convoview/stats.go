package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hollis/convoview/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count projects and sessions across all configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := eng.Stats()

		sources := make([]string, 0, len(s.Sources))
		for src := range s.Sources {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		fmt.Println(headerStyle.Render("sources"))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tPROJECTS\tSESSIONS")
		for _, src := range sources {
			st := s.Sources[src]
			fmt.Fprintf(w, "%s\t%d\t%d\n", src, st.Projects, st.Sessions)
		}
		return w.Flush()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			path = config.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.SaveTo(config.Default(), path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}
