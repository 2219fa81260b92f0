package main

import "github.com/accessdesk/accessdesk/cmd/accessctl/cmd"

func main() {
	cmd.Execute()
}
