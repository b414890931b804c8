package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

func newProcessCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "process <audio>...",
		Short: "Transcribe and summarise one or more recordings",
		Long: `Transcribe each recording, generate a title, summary, key points and
action items, and store the result. Recordings shorter than
pipeline.min_duration are skipped. A failure on one file does not stop the
others; the command exits non-zero if any file failed.`,
		Example: `  meetingassistant process standup.wav
  meetingassistant process uploads/*.m4a --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			var failed int
			for _, path := range args {
				rec, err := a.ProcessAudio(cmd.Context(), path)
				switch {
				case errors.Is(err, app.ErrAudioTooShort), errors.Is(err, app.ErrNoSpeech):
					slog.Warn("skipped recording", "path", path, "reason", err)
					failed++
					continue
				case err != nil:
					slog.Error("processing failed", "path", path, "err", err)
					failed++
					continue
				}
				if asJSON {
					if err := writeJSON(c.out, rec); err != nil {
						return err
					}
					continue
				}
				printMeeting(c.out, rec, false)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d recordings failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored records as JSON")
	return cmd
}

func newListCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored meetings, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := a.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printList(recs, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newShowCommand(c *cli) *cobra.Command {
	var (
		asJSON     bool
		transcript bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the notes of one meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := a.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, rec)
			}
			printMeeting(c.out, rec, transcript)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	cmd.Flags().BoolVarP(&transcript, "transcript", "t", false, "include the full transcript")
	return cmd
}

func newSearchCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find meetings by title, transcript or summary",
		Long: `Case-insensitive substring search over titles, transcripts and summaries.
Multiple arguments are joined with spaces.`,
		Example: `  meetingassistant search budget
  meetingassistant search "release date"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := a.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.printList(recs, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newAskCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "ask <id> <question>",
		Short:   "Answer a question from a meeting's transcript",
		Example: `  meetingassistant ask 3 "Who owns the QA sign-off?"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			answer, err := a.Ask(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, answer)
			return nil
		},
	}
}

func newRenameCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change the title of a meeting",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := a.Rename(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Meeting %d renamed to %q\n", rec.ID, rec.Title)
			return nil
		},
	}
}

func newDeleteCommand(c *cli) *cobra.Command {
	var removeAudio bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a meeting",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Delete(cmd.Context(), id, removeAudio); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Meeting %d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&removeAudio, "remove-audio", false, "also delete the recording the meeting was made from")
	return cmd
}

func (c *cli) printList(recs []meeting.Record, asJSON bool) error {
	if asJSON {
		if recs == nil {
			recs = []meeting.Record{}
		}
		return writeJSON(c.out, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "No meetings found.")
		return nil
	}
	return printTable(c.out, recs)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &meeting.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a meeting ID", s)}
	}
	return id, nil
}
