// erlake artifacts
package cmd

import (
	"fmt"
	"os"

	"github.com/erlake-build/erlake/internal/builder"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var flagExisting bool

func doArtifacts(cmd *cobra.Command, args []string) {
	ws, err := builder.LoadWorkspace(flagDir)
	if err != nil {
		msg.Fatal("%v", err)
	}

	for _, m := range ws.Modules() {
		artifacts, err := builder.ModuleArtifacts(m)
		if err != nil {
			msg.Fatal("%s: %v", m.Name(), err)
		}
		fmt.Println(color.HiCyanString(m.Name()))
		for _, path := range artifacts.All() {
			if flagExisting {
				if _, err := os.Stat(path); err != nil {
					continue
				}
			}
			fmt.Printf("    %s\n", path)
		}
	}
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List the files the clean tasks of every module remove",
	Args:  cobra.NoArgs,
	Run:   doArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().BoolVarP(&flagExisting, "existing", "e", false, "Only list files that exist")
}
