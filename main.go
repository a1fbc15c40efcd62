// main.go
package main

import (
	"log"

	"qserveu/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
