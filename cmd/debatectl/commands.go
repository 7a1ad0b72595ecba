package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ai-debate-graph-service/internal/service/graph"
	"ai-debate-graph-service/internal/service/transcription"
)

type runFlags struct {
	title                  string
	description            string
	oracleCredential       string
	transcriptionCredsFile string
	asJSON                 bool
}

func (f *runFlags) bind(cmd *cobra.Command, withTranscription bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "debate title (default: file name)")
	fl.StringVar(&f.description, "description", "", "debate description")
	fl.StringVar(&f.oracleCredential, "oracle-credential", os.Getenv("OPENAI_API_KEY"), "reasoning oracle API key")
	if withTranscription {
		fl.StringVar(&f.transcriptionCredsFile, "transcription-credentials", "", "service account JSON for transcription")
	}
	fl.BoolVar(&f.asJSON, "json", false, "print the stored debate as JSON")
}

func (f *runFlags) titleFor(path string) string {
	if f.title != "" {
		return f.title
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (c *cli) analyzeCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Transcribe an audio recording and build its argument graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var creds string
			if f.transcriptionCredsFile != "" {
				raw, err := os.ReadFile(f.transcriptionCredsFile)
				if err != nil {
					return fmt.Errorf("read transcription credentials: %w", err)
				}
				creds = string(raw)
			}
			return c.run(cmd, &f, graph.Request{
				Title:                   f.titleFor(args[0]),
				Description:             f.description,
				Audio:                   audio,
				TranscriptionCredential: creds,
				OracleCredential:        f.oracleCredential,
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "import <transcript.json>",
		Short: "Build the argument graph of an existing transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			t, err := transcription.Decode(file)
			if err != nil {
				return err
			}
			return c.run(cmd, &f, graph.Request{
				Title:            f.titleFor(args[0]),
				Description:      f.description,
				Transcript:       t,
				OracleCredential: f.oracleCredential,
			})
		},
	}
	f.bind(cmd, false)
	return cmd
}

func (c *cli) run(cmd *cobra.Command, f *runFlags, req graph.Request) error {
	out, err := c.app.Assembler.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	detail, err := c.app.Store.GetDebate(cmd.Context(), out.DebateID)
	if err != nil {
		return err
	}
	if f.asJSON {
		return writeJSON(c.out, detail)
	}
	printDebate(c.out, detail)
	if out.SegmentationFallback {
		fmt.Fprintln(c.out, "Note: segments were merged locally because the oracle grouping was unusable.")
	}
	fmt.Fprintf(c.out, "\nAnalysis complete. Debate saved with id %d\n", out.DebateID)
	return nil
}

func (c *cli) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <debate-id>",
		Short: "Print a stored debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			detail, err := c.app.Store.GetDebate(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, detail)
			}
			printDebate(c.out, detail)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored debates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debates, err := c.app.Store.ListDebates(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tARGUMENTS\tRELATIONS")
			for _, d := range debates {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
					d.ID, d.Title, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Arguments, d.Relations)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <debate-id>",
		Short: "Delete a debate and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.Store.DeleteDebate(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted debate %d\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid debate id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
