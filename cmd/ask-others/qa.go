package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/armatrix/agent-broadcast-go/internal/config"
	"github.com/armatrix/agent-broadcast-go/qastore"
)

func newQACmd() *cobra.Command {
	var configs []string
	var storePath string

	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Inspect questions you have answered",
	}
	wd, _ := os.Getwd()
	cmd.PersistentFlags().StringSliceVarP(&configs, "config", "c", config.DefaultSettingsPaths(wd), "settings files (json, yaml, toml)")
	cmd.PersistentFlags().StringVar(&storePath, "qa-store", "", "Q&A store path (overrides settings)")

	open := func() (qastore.Store, error) {
		path := storePath
		if path == "" {
			s, err := config.LoadSettings(configs...)
			if err != nil {
				return nil, err
			}
			path = s.QAStore
		}
		if path == "" {
			return nil, errors.New("no Q&A store configured; set qaStore or pass --qa-store")
		}
		return qastore.Open(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions with stored answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No sessions.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	})

	var asJSON bool
	show := &cobra.Command{
		Use:   "show [session]",
		Short: "Show the answers stored for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := defaultSession
			if len(args) == 1 {
				sessionID = args[0]
			}
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No answers in session %s.\n", sessionID)
				return nil
			}
			bold := color.New(color.Bold)
			for i, e := range entries {
				bold.Fprintf(out, "%d. %s\n", i+1, e.Question)
				fmt.Fprintf(out, "   %s\n", e.Answer)
				fmt.Fprintf(out, "   (%s)\n", e.AnsweredAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <session>",
		Short: "Forget every answer stored for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %s.\n", args[0])
			return nil
		},
	})

	return cmd
}
