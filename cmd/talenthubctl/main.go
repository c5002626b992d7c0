package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/talenthub/internal/admin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := admin.NewRootCommand(admin.OpenFromConfig).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
