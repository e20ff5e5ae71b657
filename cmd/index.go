// erlake index
package cmd

import (
	"fmt"

	"github.com/erlake-build/erlake/internal/index"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/spf13/cobra"
)

func loadIndex() *index.Index {
	idx, err := index.Load(flagDir)
	if err != nil {
		msg.Fatal("failed to load index: %v", err)
	}
	return idx
}

func saveIndex(idx *index.Index) {
	if err := idx.Save(flagDir); err != nil {
		msg.Fatal("failed to save index: %v", err)
	}
}

func doIndexAdd(name, source string) {
	idx := loadIndex()
	if idx.HasDep(name) {
		msg.Warn("overwriting existing dependency for %s", name)
	}
	idx.SetDep(name, source)
	saveIndex(idx)
	msg.Info("added dependency %s -> %s", name, source)
}

func doIndexRemove(name string) {
	idx := loadIndex()
	if !idx.RemoveDep(name) {
		msg.Warn("dependency %s not found", name)
		return
	}
	saveIndex(idx)
	msg.Info("removed dependency %s", name)
}

func doIndexList() {
	idx := loadIndex()
	for i, name := range idx.Names() {
		source, _ := idx.Lookup(name)
		fmt.Printf("%d. %s -> %s\n", i+1, name, source)
	}
}

var indexAddCmd = &cobra.Command{
	Use:   "add <name> <source>",
	Short: "Register where a dependency declared as \"*\" comes from",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		doIndexAdd(args[0], args[1])
	},
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a dependency from the index",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doIndexRemove(args[0])
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the dependencies of the index",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		doIndexList()
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the dependency index of the module",
}

func init() {
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	indexCmd.AddCommand(indexListCmd)
	rootCmd.AddCommand(indexCmd)
}
