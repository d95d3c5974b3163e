// Command stride stages and simulates scenario files from the command line.
package main

import "github.com/lodestone-games/stride/internal/cli"

func main() {
	cli.Execute()
}
