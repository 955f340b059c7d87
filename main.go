package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"job_applier_go/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}
