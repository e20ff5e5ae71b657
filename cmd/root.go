// erlake [task...]
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/erlake-build/erlake/internal/builder"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/erlake-build/erlake/internal/task"
	"github.com/erlake-build/erlake/internal/toolchain"
	"github.com/spf13/cobra"
)

var (
	flagDir     string
	flagGlobal  bool
	flagVerbose bool
	flagErlc    string
	flagErl     string
)

// loadGraph loads the workspace in flagDir and registers all of its tasks
func loadGraph() (*task.Registry, *builder.Workspace) {
	ws, err := builder.LoadWorkspace(flagDir)
	if err != nil {
		msg.Fatal("%v", err)
	}

	tc := toolchain.New()
	if flagErlc != "" {
		tc.Compiler = flagErlc
	}
	if flagErl != "" {
		tc.Runtime = flagErl
	}

	reg := task.NewRegistry()
	if err := ws.Define(builder.New(reg, tc), flagGlobal); err != nil {
		msg.Fatal("%v", err)
	}
	if err := reg.Validate(); err != nil {
		msg.Fatal("%v", err)
	}
	return reg, ws
}

func doRun(cmd *cobra.Command, args []string) {
	reg, ws := loadGraph()
	tasks := args
	if len(tasks) == 0 {
		tasks = []string{defaultTask(ws)}
	}

	if err := reg.Invoke(tasks...); err != nil {
		var buildErr *toolchain.BuildError
		if errors.As(err, &buildErr) {
			msg.Error("failed to compile %s:", buildErr.Source)
			fmt.Fprint(&msg.IndentWriter{Indent: "    ", W: msg.Out}, buildErr.Output)
			os.Exit(1)
		}
		msg.Fatal("%v", err)
	}
}

func defaultTask(ws *builder.Workspace) string {
	if flagGlobal {
		return builder.TaskBuild
	}
	return task.Join(ws.Root.Name(), builder.TaskBuild)
}

func completeTasks(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ws, err := builder.LoadWorkspace(flagDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	reg := task.NewRegistry()
	if err := ws.Define(builder.New(reg, toolchain.New()), flagGlobal); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, t := range reg.Tasks() {
		names = append(names, t.Name+"\t"+t.Description)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

var rootCmd = &cobra.Command{
	Use:   "erlake [task...]",
	Short: "Build Erlang modules",
	Long: `Build Erlang modules described by Erlake.toml.

Every module defines namespaced tasks (core:build, core:test, ...). Unless
--global=false is given, build, clean, test, retest and console of the module
in --dir are also available without a namespace. With no task, builds it.`,
	Args:              cobra.ArbitraryArgs,
	ValidArgsFunction: completeTasks,
	Run:               doRun,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.Verbosity = flagVerbose
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDir, "dir", "C", ".", "Directory of the root module")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Print what every step decides")
	pf.BoolVarP(&flagGlobal, "global", "g", true, "Define the root module's main tasks at the top level")

	f := rootCmd.Flags()
	f.StringVar(&flagErlc, "erlc", "", "Erlang compiler to use (default $ERLC or erlc on PATH)")
	f.StringVar(&flagErl, "erl", "", "Erlang runtime to use (default $ERL or erl on PATH)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
