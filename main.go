package main

import (
	"log"

	"docstore-handles/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
