package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	Store  repositories.SessionRepository
	// Meetings is nil when the meeting index is disabled
	Meetings repositories.MeetingRepository
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recorderctl",
		Short:         "Inspect and repair local meeting recordings",
		Long:          "recorderctl recovers interrupted recordings, shows saved meetings, edits recording preferences and mints control API tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewRecoverCmd(deps))
	rootCmd.AddCommand(NewShowCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewPrefsCmd(deps))
	rootCmd.AddCommand(NewTokenCmd(deps))

	return rootCmd
}

func (d *Dependencies) preferences() *config.PreferencesStore {
	return config.NewPreferencesStore(d.Config.Recording.PreferencesFile, d.Config.Recording.Preferences())
}
