package main

import "github.com/insightdelivered/statement-editor/internal/commands"

func main() {
	commands.Execute()
}
