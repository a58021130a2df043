package main

import (
	"os"

	"github.com/romariotrain/studio-platform/internal/app"
)

func main() {
	os.Exit(app.Run("studio", run))
}
