package main

import "skill-barter-backend/cmd"

func main() {
	cmd.Run()
}
