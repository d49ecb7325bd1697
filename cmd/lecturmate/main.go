package main

import "lecturmate/internal/cli"

func main() {
	cli.Execute()
}
