package main

import cmd "github.com/Geun-Oh/rbq/cmd/rbq"

func main() {
	cmd.Execute()
}
