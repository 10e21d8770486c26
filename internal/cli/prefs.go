package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewPrefsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change recording preferences",
	}
	cmd.AddCommand(newPrefsShowCmd(deps))
	cmd.AddCommand(newPrefsSetCmd(deps))
	return cmd
}

func newPrefsShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := deps.preferences()
			prefs, err := store.Load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(prefs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", store.Path(), data)
			return nil
		},
	}
}

func newPrefsSetCmd(deps *Dependencies) *cobra.Command {
	var (
		saveFolder string
		autoSave   bool
		fileFormat string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update preferences; only the given flags change",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := deps.preferences()
			prefs, err := store.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("save-folder") {
				prefs.SaveFolder = saveFolder
			}
			if flags.Changed("auto-save") {
				prefs.AutoSave = autoSave
			}
			if flags.Changed("file-format") {
				prefs.FileFormat = fileFormat
			}

			if err := store.Save(prefs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved preferences to %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&saveFolder, "save-folder", "", "folder that receives new meeting folders")
	cmd.Flags().BoolVar(&autoSave, "auto-save", true, "merge and save when a recording stops")
	cmd.Flags().StringVar(&fileFormat, "file-format", "", "checkpoint format: mp4 or wav")
	return cmd
}
