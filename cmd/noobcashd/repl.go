package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli"

	"github.com/georgevidalakis/noobcash-blockchain/node"
	"github.com/georgevidalakis/noobcash-blockchain/transport/httpapi"
)

// replDeps bundles what every command needs, following the teacher's
// cmd/dcrlncli convention of passing a connection/config through closures
// captured by each cli.Command's Action rather than globals.
type replDeps struct {
	ctx       context.Context
	n         *node.Node
	transport *httpapi.Client
}

// runREPL drives the interactive command loop of spec §6: `t <id>
// <amount>`, `view`, `view_blockchain`, `balance`, `balances`, `help`,
// `exit`. With `-s`, commands are read from a script file instead of
// stdin and the process exits after the last line, matching
// original_source/noobcash's own non-interactive script mode.
func runREPL(ctx context.Context, n *node.Node, transportClient *httpapi.Client, cfg *config) error {
	deps := &replDeps{ctx: ctx, n: n, transport: transportClient}
	app := buildApp(deps)

	var in io.Reader = os.Stdin
	interactive := true
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("open script %s: %w", cfg.Script, err)
		}
		defer f.Close()
		in = f
		interactive = false
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Print("noobcash> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}

		args := append([]string{"noobcash"}, strings.Fields(line)...)
		if err := app.Run(args); err != nil {
			fmt.Println(errorColor(err.Error()))
		}
	}
	return scanner.Err()
}

// buildApp assembles the command table, following degeri-dcrlnd's
// cmd/dcrlncli per-command convention (one cli.Command per operation,
// closing over the dependencies it needs instead of reading globals).
func buildApp(deps *replDeps) *cli.App {
	app := cli.NewApp()
	app.Name = "noobcash"
	app.Usage = "noobcash peer REPL"
	app.HideVersion = true
	app.HideHelp = false
	app.CommandNotFound = func(c *cli.Context, command string) {
		fmt.Println(errorColor(fmt.Sprintf("non-existent command: %s. Try typing `help`.", command)))
	}
	app.Commands = []cli.Command{
		transactionCommand(deps),
		viewCommand(deps),
		viewBlockchainCommand(deps),
		balanceCommand(deps),
		balancesCommand(deps),
	}
	return app
}

func transactionCommand(deps *replDeps) cli.Command {
	return cli.Command{
		Name:      "t",
		Usage:     "send NBC to another peer",
		ArgsUsage: "<receiver-id> <amount>",
		Action: func(c *cli.Context) error {
			args := c.Args()
			if len(args) != 2 {
				return cli.ShowCommandHelp(c, "t")
			}
			receiverID, err := strconv.Atoi(args.Get(0))
			if err != nil {
				return fmt.Errorf("wrong transaction parameters")
			}
			amount, err := strconv.ParseInt(args.Get(1), 10, 64)
			if err != nil {
				return fmt.Errorf("wrong transaction parameters")
			}

			receiver, ok := deps.n.PublicKeyForID(receiverID)
			if !ok {
				return fmt.Errorf("unknown peer id %d", receiverID)
			}

			t, err := deps.n.CreateTransaction(receiver, amount)
			if err != nil {
				return fmt.Errorf("unsuccessful transaction: %w", err)
			}
			deps.transport.BroadcastTransaction(deps.ctx, t.ToWire())

			plural := "s"
			if amount == 1 {
				plural = ""
			}
			fmt.Printf(nbcColor("Sending %d NBC%s to node %d\n"), amount, plural, receiverID)
			return nil
		},
	}
}

func viewCommand(deps *replDeps) cli.Command {
	return cli.Command{
		Name:  "view",
		Usage: "dump this peer's current ring/mempool snapshot",
		Action: func(c *cli.Context) error {
			fmt.Println(nbcColor("Node snapshot:"))
			spew.Dump(deps.n.TakeSnapshot())
			return nil
		},
	}
}

func viewBlockchainCommand(deps *replDeps) cli.Command {
	return cli.Command{
		Name:  "view_blockchain",
		Usage: "dump this peer's blockchain",
		Action: func(c *cli.Context) error {
			fmt.Println(nbcColor("Blockchain:"))
			spew.Dump(deps.n.Blockchain().ToWire())
			return nil
		},
	}
}

func balanceCommand(deps *replDeps) cli.Command {
	return cli.Command{
		Name:  "balance",
		Usage: "show this peer's on-chain balance",
		Action: func(c *cli.Context) error {
			bal, _ := deps.n.Balance(deps.n.ID())
			fmt.Println(strconv.FormatInt(bal, 10) + " " + nbcColor("coins"))
			return nil
		},
	}
}

func balancesCommand(deps *replDeps) cli.Command {
	return cli.Command{
		Name:  "balances",
		Usage: "show every peer's on-chain balance",
		Action: func(c *cli.Context) error {
			for id, bal := range deps.n.Balances() {
				fmt.Printf("%d: %d %s\n", id, bal, nbcColor("coins"))
			}
			return nil
		},
	}
}

// nbcColor and errorColor mirror original_source/noobcash's cli.py ANSI
// helpers (`nbc_cmd`/`error`): purple for noobcash-issued confirmations,
// red for rejections.
func nbcColor(s string) string { return "\033[35m" + s + "\033[00m" }
func errorColor(s string) string { return "\033[91m" + s + "\033[00m" }
