package main

import "github.com/asha/dude/internal/commands"

func main() {
	commands.Execute()
}
