// erlake tasks
package cmd

import (
	"fmt"

	"github.com/erlake-build/erlake/internal/msg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var flagFormat = NewEnumValue("text", map[string]string{
	"text":  "Task names with their descriptions (default)",
	"names": "One task name per line",
	"deps":  "Task names with their prerequisites",
	"order": "Every task after its prerequisites",
})

func doTasks(cmd *cobra.Command, args []string) {
	reg, _ := loadGraph()

	if flagFormat.Value() == "order" {
		order, err := reg.Order()
		if err != nil {
			msg.Fatal("%v", err)
		}
		for _, name := range order {
			fmt.Println(name)
		}
		return
	}

	width := 0
	for _, t := range reg.Tasks() {
		width = max(width, len(t.Name))
	}

	for _, t := range reg.Tasks() {
		switch flagFormat.Value() {
		case "names":
			fmt.Println(t.Name)
		case "deps":
			fmt.Printf("%s\n", color.HiCyanString(t.Name))
			for _, p := range t.Prerequisites {
				fmt.Printf("    %s\n", p)
			}
		default:
			if t.Description == "" {
				continue
			}
			fmt.Printf("%s  # %s\n", color.HiCyanString("%-*s", width, t.Name), t.Description)
		}
	}
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks of the module and its dependencies",
	Args:  cobra.NoArgs,
	Run:   doTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.Flags().VarP(&flagFormat, "format", "f", "Output format, one of "+flagFormat.HelpString())
	tasksCmd.RegisterFlagCompletionFunc("format", flagFormat.CompletionFunc())
}
