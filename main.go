// main is the entry point of the sensorium CLI.
package main

import (
	"github.com/huangsam/sensorium/cmd"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/iostore"
)

func main() {
	defer iostore.CloseStore()

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		iostore.CloseStore()
		contract.LogFatal("Command failed", err)
	}
}
