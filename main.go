package main

import (
	"log"
	"os"

	"github.com/Snaptraks/FateBot/app"
	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/health"
)

func main() {
	port := os.Getenv(constants.EnvHTTPPort)
	if port == "" {
		port = constants.DefaultHTTPPort
	}
	health.StartHealthServer(port)

	application, err := app.New()
	if err != nil {
		log.Fatal(err)
	}

	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
