package main

import "github.com/ridoystarlord/relmap/cmd"

func main() {
	cmd.Execute()
}
