package cli

import (
	"fmt"
	"os"
)

// may be changed by `-ldflags`
var VERSION = "v0.1.0"

const helpMessage = "\033[30mdnt - Build npm packages from Deno modules.\033[0m" + `

Usage: dnt [command] [options]

Commands:
  build                 Build the npm package described by "dnt.json"

Options:
  --version, -v         Show the version
  --help, -h            Display this help message
`

// Run runs the command given by the process arguments and returns the exit code.
func Run() int {
	if len(os.Args) < 2 {
		fmt.Print(helpMessage)
		return 0
	}
	switch command := os.Args[1]; command {
	case "build":
		return Build(os.Args[2:])
	case "version":
		fmt.Println("dnt " + VERSION)
	default:
		for _, arg := range os.Args[1:] {
			if arg == "--version" {
				fmt.Println("dnt " + VERSION)
				return 0
			}
			if arg == "-v" {
				fmt.Println(VERSION)
				return 0
			}
		}
		fmt.Print(helpMessage)
	}
	return 0
}
