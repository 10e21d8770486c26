package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

func NewShowCmd(deps *Dependencies) *cobra.Command {
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "show <meeting-folder>",
		Short: "Print the metadata and transcript of a meeting folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			meta, err := deps.Store.ReadMetadata(folder)
			if err != nil {
				return fmt.Errorf("reading metadata: %w", err)
			}

			out := cmd.OutOrStdout()
			printMetadata(out, meta)

			tf, err := deps.Store.ReadTranscripts(folder)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(out, "Transcript:  none")
					return nil
				}
				return fmt.Errorf("reading transcripts: %w", err)
			}
			fmt.Fprintf(out, "Transcript:  %d segment(s)\n", tf.TotalSegments)
			if withTranscript {
				for _, seg := range tf.Segments {
					fmt.Fprintf(out, "%s %s\n", seg.DisplayTime, seg.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&withTranscript, "transcript", "t", false, "print every transcript segment")
	return cmd
}

func printMetadata(out io.Writer, meta *entities.MeetingMetadata) {
	fmt.Fprintf(out, "Meeting:     %s\n", deref(meta.MeetingName, "(unnamed)"))
	fmt.Fprintf(out, "ID:          %s\n", deref(meta.MeetingID, "-"))
	fmt.Fprintf(out, "Status:      %s\n", meta.Status)
	fmt.Fprintf(out, "Created:     %s\n", meta.CreatedAt)
	if meta.DurationSeconds != nil {
		fmt.Fprintf(out, "Duration:    %.1fs\n", *meta.DurationSeconds)
	}
	fmt.Fprintf(out, "Audio:       %s\n", meta.AudioFile)
	fmt.Fprintf(out, "Microphone:  %s\n", deref(meta.Devices.Microphone, "-"))
	fmt.Fprintf(out, "System:      %s\n", deref(meta.Devices.SystemAudio, "-"))
	if meta.Error != nil {
		fmt.Fprintf(out, "Error:       %s\n", *meta.Error)
	}
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
