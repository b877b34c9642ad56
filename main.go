package main

import "github.com/rskv-p/srtmacro/cmd"

func main() {
	cmd.Execute()
}
