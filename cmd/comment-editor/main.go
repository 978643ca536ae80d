package main

import "comment-editor/internal/cli"

func main() {
	cli.Execute()
}
