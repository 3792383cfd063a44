package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paysync/paysync/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "provision-prices",
		Description: "Create Stripe products and prices for the configured plans and write the price artifact",
		Run:         internal.ProvisionPrices,
	},
	{
		Name:        "seed-user",
		Description: "Insert a local user for development",
		Run:         internal.SeedUser,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		plansFile    string
		artifactPath string
		email        string
		name         string
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&plansFile, "plans-file", "", "Path to plans JSON file")
	flag.StringVar(&artifactPath, "artifact-path", "", "Path to write the price artifact")
	flag.StringVar(&email, "user-email", "", "Email for seed-user")
	flag.StringVar(&name, "user-name", "", "Name for seed-user")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	if plansFile != "" {
		os.Setenv("PLANS_FILE", plansFile)
	}
	if artifactPath != "" {
		os.Setenv("ARTIFACT_PATH", artifactPath)
	}
	if email != "" {
		os.Setenv("USER_EMAIL", email)
	}
	if name != "" {
		os.Setenv("USER_NAME", name)
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
