package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/server"
	"github.com/bosatsu/aws-twilio-fax/services/ssm"
)

func usage() {
	fmt.Println("Usage: fax-bridge <command>")
	fmt.Println("Commands:")
	fmt.Println("  server                       Start the application server")
	fmt.Println("  secrets get <name>           Read a parameter")
	fmt.Println("  secrets put <name> <value>   Store a parameter (encrypted)")
	fmt.Println("  secrets delete <name>        Delete a parameter")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	switch os.Args[1] {
	case "server":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Fax bridge starting up...")

		srv, err := server.NewServer(cfg)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		err = srv.Run()
		if err != nil {
			log.Fatalf("Server startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	case "secrets":
		runSecrets(cfg, os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
}

// runSecrets manages the parameter-store entries the service reads at
// runtime: the approved sender list, notification addresses, webhook keys.
func runSecrets(cfg *config.Config, args []string) {
	if len(args) < 2 {
		usage()
	}

	ctx := context.Background()
	params := ssm.NewParameterStoreService(cfg.AWSConfig)

	switch args[0] {
	case "get":
		value, err := params.GetParameter(ctx, args[1], true)
		if err != nil {
			log.Fatalf("Failed to read parameter %s: %v", args[1], err)
		}
		fmt.Println(value)

	case "put":
		if len(args) < 3 {
			usage()
		}
		if err := params.PutParameter(ctx, args[1], args[2], true); err != nil {
			log.Fatalf("Failed to store parameter %s: %v", args[1], err)
		}
		log.Printf("Stored parameter %s", args[1])

	case "delete":
		if err := params.DeleteParameter(ctx, args[1]); err != nil {
			log.Fatalf("Failed to delete parameter %s: %v", args[1], err)
		}
		log.Printf("Deleted parameter %s", args[1])

	default:
		usage()
	}
}
