package main

import "github.com/ValentinKolb/oak/cmd"

func main() {
	cmd.Execute()
}
