package main

import "github.com/jmehdipour/rh-booking/cmd"

func main() {
	cmd.Execute()
}
