package main

import "github.com/audiolibrelab/clipstitch/cmd"

func main() {
	cmd.Execute()
}
