package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meeting folders in the save folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			prefs, err := deps.preferences().Load()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(prefs.SaveFolder)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(out, "No meetings found")
					return nil
				}
				return err
			}

			var dirs []string
			for _, e := range entries {
				if e.IsDir() {
					dirs = append(dirs, e.Name())
				}
			}
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No meetings found")
				return nil
			}

			// folder names end with the start timestamp
			sort.Slice(dirs, func(i, j int) bool { return dirs[i] > dirs[j] })

			for _, name := range dirs {
				status := "unknown"
				if meta, err := deps.Store.ReadMetadata(filepath.Join(prefs.SaveFolder, name)); err == nil {
					status = string(meta.Status)
				}
				fmt.Fprintf(out, "%-10s %s\n", status, name)
			}
			return nil
		},
	}
	return cmd
}
