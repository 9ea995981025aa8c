package main

import (
	"github.com/DrSkyle/provtag/cmd/provtag/commands"
)

func main() {
	commands.Execute()
}
