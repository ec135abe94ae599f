package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/settlehq/settle/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "add-user",
		Description: "Create an invoice owner with a payout wallet",
		Run:         internal.AddUser,
	},
	{
		Name:        "generate-token",
		Description: "Issue a bearer token for a user",
		Run:         internal.GenerateToken,
	},
	{
		Name:        "sign-webhook",
		Description: "Print the signature header for a webhook body file",
		Run:         internal.SignWebhook,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		email        string
		userID       string
		wallet       string
		smartAccount string
		bodyFile     string
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&email, "user-email", "", "Email of the user")
	flag.StringVar(&userID, "user-id", "", "User ID for operations")
	flag.StringVar(&wallet, "wallet", "", "Wallet address of the user")
	flag.StringVar(&smartAccount, "smart-account", "", "Smart account address of the user")
	flag.StringVar(&bodyFile, "body-file", "", "Path to a webhook body")

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

	setEnv := map[string]string{
		"USER_EMAIL":    email,
		"USER_ID":       userID,
		"WALLET":        wallet,
		"SMART_ACCOUNT": smartAccount,
		"BODY_FILE":     bodyFile,
	}
	for k, v := range setEnv {
		if v != "" {
			os.Setenv(k, v)
		}
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
