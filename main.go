package main

import "github.com/Chative-querybot/server/cmd"

func main() {
	cmd.Execute()
}
