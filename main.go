package main

import "github.com/ytmirror/ytmirror/cmd"

func main() {
	cmd.Execute()
}
