package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Short:   "Manage named server profiles",
	GroupID: "system",
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		key, _ := cmd.Flags().GetString("access-key")
		natsURL, _ := cmd.Flags().GetString("nats")
		desc, _ := cmd.Flags().GetString("description")

		sc, err := loadServersConfig()
		if err != nil {
			return err
		}
		sc.Servers[name] = Server{URL: url, AccessKey: key, NATSURL: natsURL, Description: desc}
		if err := saveServersConfig(sc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "server %q added (%s)\n", name, url)
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		sc, err := loadServersConfig()
		if err != nil {
			return err
		}
		if _, ok := sc.Servers[name]; !ok {
			return fmt.Errorf("server %q not found", name)
		}
		delete(sc.Servers, name)
		if sc.Active == name {
			sc.Active = ""
		}
		if err := saveServersConfig(sc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "server %q removed\n", name)
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadServersConfig()
		if err != nil {
			return err
		}
		if len(sc.Servers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no servers configured")
			return nil
		}

		names := make([]string, 0, len(sc.Servers))
		for name := range sc.Servers {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tACCESS KEY\tDESCRIPTION")
		for _, name := range names {
			s := sc.Servers[name]
			marker := "  "
			if name == sc.Active {
				marker = "* "
			}
			key := ""
			if s.AccessKey != "" {
				key = mask(s.AccessKey, 8, "...")
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, s.URL, key, s.Description)
		}
		return w.Flush()
	},
}

var serverUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active server (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadServersConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			sc.Active = ""
			if err := saveServersConfig(sc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "active server cleared")
			return nil
		}
		name := args[0]
		if _, ok := sc.Servers[name]; !ok {
			return fmt.Errorf("server %q not found", name)
		}
		sc.Active = name
		if err := saveServersConfig(sc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active server set to %q\n", name)
		return nil
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a server (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadServersConfig()
		if err != nil {
			return err
		}

		name := sc.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active server; specify a name or run 'bp server use <name>'")
		}
		s, ok := sc.Servers[name]
		if !ok {
			return fmt.Errorf("server %q not found", name)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		active := ""
		if name == sc.Active {
			active = " (active)"
		}
		fmt.Fprintf(w, "name:\t%s%s\n", name, active)
		if s.Description != "" {
			fmt.Fprintf(w, "description:\t%s\n", s.Description)
		}
		fmt.Fprintf(w, "url:\t%s\n", s.URL)
		if s.AccessKey != "" {
			fmt.Fprintf(w, "access_key:\t%s\n", mask(s.AccessKey, 8, strings.Repeat("*", max(0, len(s.AccessKey)-8))))
		}
		if s.NATSURL != "" {
			fmt.Fprintf(w, "nats_url:\t%s\n", s.NATSURL)
		}
		return w.Flush()
	},
}

func init() {
	serverAddCmd.Flags().String("access-key", "", "access key for the server")
	serverAddCmd.Flags().String("nats", "", "NATS URL for event streaming")
	serverAddCmd.Flags().String("description", "", "human-readable description of the server")

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverUseCmd)
	serverCmd.AddCommand(serverShowCmd)
}
