package main

import "github.com/mangaexporter/backend/internal/cli"

func main() {
	cli.Execute()
}
