package main

import "github.com/ivlev/codeanim/cmd/codeanim/commands"

func main() {
	commands.Execute()
}
