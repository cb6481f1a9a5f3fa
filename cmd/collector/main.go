package main

import "github.com/tracker-tv/workflow-harvest/internal/cli"

func main() {
	cli.Execute()
}
