package main

import "github.com/iliyamo/slot-reservation/cmd"

func main() {
	cmd.Execute()
}
