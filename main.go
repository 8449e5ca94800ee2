package main

import "deo-backend/cmd"

func main() {
	cmd.Execute()
}
