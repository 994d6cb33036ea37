package main

import "github.com/mouse-blink/goevolve/cmd"

func main() {
	cmd.Execute()
}
