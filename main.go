package main

import (
	"os"

	"github.com/ether/etherdoc/lib/cli"
	"github.com/ether/etherdoc/lib/loadtest"
	"github.com/ether/etherdoc/lib/server"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/ether/etherdoc/lib/utils"
)

// @title Etherdoc API
// @version 1.0
// @description Rich text documents with lists, comments and undo history
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:9001
// @BasePath /
func main() {
	setupLogger := utils.SetupLogger()
	defer setupLogger.Sync()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			settings.HandleConfigCommand(setupLogger)
			return
		case "cli":
			if err := cli.RunFromCLI(setupLogger, os.Args[2:]); err != nil {
				setupLogger.Fatalf("cli failed: %v", err)
			}
			return
		case "loadtest":
			if err := loadtest.RunFromCLI(setupLogger, os.Args[2:]); err != nil {
				setupLogger.Fatalf("load test failed: %v", err)
			}
			return
		case "multiload":
			if err := loadtest.RunMultiFromCLI(setupLogger, os.Args[2:]); err != nil {
				setupLogger.Fatalf("multi load test failed: %v", err)
			}
			return
		}
	}

	server.InitServer(setupLogger)
}
