package main

import "github.com/alde/printimg/cmd"

func main() {
	cmd.Execute()
}
