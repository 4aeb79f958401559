package main

import "github.com/ValentinKolb/dReshard/cmd"

func main() {
	cmd.Execute()
}
