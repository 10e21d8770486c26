package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-recorder/internal/usecase/recording"
)

func NewRecoverCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <meeting-folder>",
		Short: "Merge the checkpoints of an interrupted recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var listeners []recording.SavedListener
			if deps.Meetings != nil {
				listeners = append(listeners, recording.NewMeetingIndexer(deps.Meetings, deps.Store, deps.Logger))
			}

			r := recording.NewRecoverer(deps.Store, nil, deps.Config.Recording.FfmpegPath, deps.Logger, listeners...)
			res, err := r.RecoverSession(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("recovering %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recovered %s\n", res.MeetingID)
			fmt.Fprintf(out, "  audio:       %s\n", res.AudioFile)
			fmt.Fprintf(out, "  transcripts: %s\n", res.TranscriptFile)
			fmt.Fprintf(out, "  segments:    %d\n", res.SegmentCount)
			return nil
		},
	}
	return cmd
}
