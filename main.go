package main

import "github.com/drumscribe/drumscribe-api/cmd"

func main() {
	cmd.Execute()
}
