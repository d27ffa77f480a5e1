package main

import "github.com/roessland/coachsync/cmd"

func main() {
	cmd.Execute()
}
