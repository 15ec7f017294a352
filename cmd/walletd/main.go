package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "walletd CLI"
	app.Usage = "track accounts and move funds across currency families"
	app.Commands = append(
		app.Commands,
		&accountadd,
		&accountlist,
		&syncaccounts,
		&history,
		&status,
		&send,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func printJSON(resp interface{}) {
	jsonStr, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to encode response: ", err)
		return
	}
	fmt.Println(string(jsonStr))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[walletd] %v\n", err)
	os.Exit(1)
}
