package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/referral-labels/internal/normalize"
)

func newParseCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <address>",
		Short: "Split a free-text address into label fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := normalize.ParseAddress(strings.Join(args, " "))
			if asJSON {
				return writeJSON(cmd, parsed)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRows([]table.Row{
				{"Address 1", parsed.Address1},
				{"Address 2", parsed.Address2},
				{"City", parsed.City},
				{"State", parsed.State},
				{"Zip", parsed.Zip},
			})
			t.Render()
			switch {
			case parsed.IsParseError():
				fmt.Fprintln(cmd.OutOrStdout(), "Address could not be parsed.")
			case parsed.State == "" && parsed.Zip == "":
				fmt.Fprintln(cmd.OutOrStdout(), "No state and zip found; the whole address is in Address 1.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newContactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <office name>",
		Short: "Guess the contact person from an office name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact := normalize.ExtractContact(strings.Join(args, " "))
			if contact == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(no contact)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), contact)
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
