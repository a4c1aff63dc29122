package main

import "storyrag/internal/cli"

func main() {
	cli.Execute()
}
