package main

import (
	"github.com/joho/godotenv"

	"opsqa/internal/cli"
)

func main() {
	_ = godotenv.Load()

	cli.Execute()
}
