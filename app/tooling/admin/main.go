// This program performs administrative tasks against a running node.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	url := os.Getenv("ADMIN_URL")
	if url == "" {
		url = "http://localhost:3001"
	}

	log.Infow("startup", "build", build, "node", url)

	return processCommands(os.Args, commands.NewClient(url))
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, client *commands.Client) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: admin bals [address] | trans <id> | verify")
	}

	switch args[1] {
	case "bals":
		if err := commands.Balances(args, client, os.Stdout); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, client, os.Stdout); err != nil {
			return fmt.Errorf("getting transaction: %w", err)
		}
	case "verify":
		if err := commands.Verify(client, os.Stdout); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
