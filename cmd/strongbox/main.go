// Command strongbox mounts the demonstration filesystem and runs the
// ciphertext-equality attacks against it.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	os.Exit(newCLI().exec(os.Args[1:]))
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
}
