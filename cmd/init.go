// erlake init [name], erlake new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erlake-build/erlake/internal/builder"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "erlake"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn lays out a new module in an existing directory
func initIn(dir, name string) {
	writefile(`[package]
name = "`+name+`"
version = "0.1.0"

[target]
warnings = ["all"]
# extras = [{ files = ["README.md"], to = "doc" }]

[dependencies]
# util = "../util"
# json = "gh:someone/json@main"
`, dir, builder.ManifestFilename)

	mkdir(dir, "src")
	mkdir(dir, "tests")

	writefile(`-module(`+name+`).
-export([hello/0]).

hello() ->
    io:format("Hello, World!~n").
`, dir, "src", name+".erl")

	writefile(`{application, `+name+`,
 [{description, ""},
  {vsn, "0.1.0"},
  {modules, [`+name+`]},
  {registered, []},
  {applications, [kernel, stdlib]}]}.
`, dir, "src", name+".app")

	writefile(`-module(test_runner).
-export([run_all/0]).

run_all() ->
    io:format("no tests yet~n"),
    init:stop().
`, dir, "tests", "test_runner.erl")

	writefile(`ebin/
tests/ebin/
_deps/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to run the tests.\n",
		color.HiCyanString(programName+" -C "+dir), color.HiCyanString(programName+" -C "+dir+" test"))
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new module in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new module in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
}
