package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"spt3g-viewer/internal/notes"
)

func newNotesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Read and write per-source notes",
	}
	cmd.AddCommand(newNotesListCmd(rt))
	cmd.AddCommand(newNotesGetCmd(rt))
	cmd.AddCommand(newNotesSetCmd(rt))
	return cmd
}

func newNotesListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withNotes(cmd.Context(), func(svc *notes.Service) error {
				all := svc.All()
				out := cmd.OutOrStdout()
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(out, all)
				}

				names := make([]string, 0, len(all))
				width := len("source_name")
				for name := range all {
					names = append(names, name)
					width = max(width, len(name))
				}
				sort.Strings(names)

				room := 0
				if tw := terminalWidth(out); tw > 0 {
					room = max(tw-width-2, 10)
				}
				rows := make([][]string, len(names))
				for i, name := range names {
					rows[i] = []string{name, truncate(all[name], room)}
				}
				PrintTable(out, []string{"source_name", "note"}, rows)
				return nil
			})
		},
	}
}

func newNotesGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <source>",
		Short: "Print the note for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withNotes(cmd.Context(), func(svc *notes.Service) error {
				text := svc.Get(args[0])
				out := cmd.OutOrStdout()
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(out, map[string]string{"source_name": args[0], "text": text})
				}
				_, _ = fmt.Fprintln(out, text)
				return nil
			})
		},
	}
}

func newNotesSetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set <source> <text|->",
		Short: "Replace the note for a source",
		Long:  "Replace the note for a source. Pass - as the text to read it from stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[1]
			if text == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(raw), "\n")
			}
			return rt.withNotes(cmd.Context(), func(svc *notes.Service) error {
				if err := svc.Save(cmd.Context(), args[0], text); err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(cmd.OutOrStdout(), map[string]string{"source_name": args[0], "text": text})
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "saved note for %s\n", args[0])
				return nil
			})
		},
	}
}
