// Command server starts the PlantNet server with no CLI around it, for
// container images.
package main

import (
	"log"

	"github.com/plantnet/plantnet-server/internal/server"
)

func main() {
	if err := server.Start(); err != nil {
		log.Fatal(err)
	}
}
