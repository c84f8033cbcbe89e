package main

import (
	"os"

	"github.com/nsxbet/pg-nl2sql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
