package main

import "github.com/voicevision/voicevision/cli"

func main() {
	cli.Execute()
}
