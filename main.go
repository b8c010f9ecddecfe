package main

import (
	"log"

	"github.com/probeops/leakprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
