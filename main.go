package main

import "github.com/erlake-build/erlake/cmd"

func main() {
	cmd.Execute()
}
