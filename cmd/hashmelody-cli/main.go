package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"hashmelody/crypto"
	"hashmelody/native/oracle"
	"hashmelody/native/purchase"
	"hashmelody/storage/receipts"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hashmelody-cli <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Offline:")
	fmt.Fprintln(w, "  quote   --views N --supply S [--k K --m M]   price a token")
	fmt.Fprintln(w, "  cost    --price P --amount A                 total cost and fee split")
	fmt.Fprintln(w, "  address --hex 0x... [--token]                render a bech32 address")
	fmt.Fprintln(w, "  export  --receipts DSN --token T --out FILE  purchases of a token as parquet")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Gateway (--gateway, default $HASHMELODY_GATEWAY or http://localhost:8080):")
	fmt.Fprintln(w, "  price   <token>                              live price of a token")
	fmt.Fprintln(w, "  vault   <token>                              vault state of a token")
	fmt.Fprintln(w, "  balance <address>                            native balance")
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	command, rest := args[0], args[1:]
	switch command {
	case "quote":
		return runQuote(rest, out)
	case "cost":
		return runCost(rest, out)
	case "address":
		return runAddress(rest, out)
	case "export":
		return runExport(rest, out)
	case "price", "vault", "balance":
		return runRemote(command, rest, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQuote(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	views := fs.Uint64("views", 0, "cumulative view count")
	supply := fs.Uint64("supply", 0, "circulating supply in base units")
	k := fs.Uint64("k", oracle.DefaultK, "quadratic coefficient")
	m := fs.Uint64("m", oracle.DefaultM, "views coefficient")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	quote, err := oracle.Evaluate(*views, *supply, oracle.PriceParams{K: *k, M: *m})
	if err != nil {
		return err
	}
	return printJSON(out, map[string]interface{}{
		"viewCount":     quote.ViewCount,
		"supply":        quote.Supply,
		"quadraticTerm": quote.Quadratic,
		"viewsTerm":     quote.Views,
		"price":         quote.Price,
		"floored":       quote.Floored,
	})
}

func runCost(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	price := fs.Uint64("price", oracle.FloorPrice, "unit price per whole token")
	amount := fs.Uint64("amount", 0, "base units to buy")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *amount == 0 {
		return fmt.Errorf("%w: --amount must be positive", errUsage)
	}
	total, err := purchase.TotalCost(*price, *amount)
	if err != nil {
		return err
	}
	fee, net := purchase.SplitFee(total)
	return printJSON(out, map[string]uint64{
		"price":       *price,
		"amount":      *amount,
		"totalCost":   total,
		"platformFee": fee,
		"vaultAmount": net,
	})
}

func runAddress(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	raw := fs.String("hex", "", "20-byte hex address")
	token := fs.Bool("token", false, "render as a token identifier")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(*raw), "0x"))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	prefix := crypto.AccountPrefix
	if *token {
		prefix = crypto.TokenPrefix
	}
	addr, err := crypto.NewAddress(prefix, decoded)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, addr.String())
	return err
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("receipts", "", "receipts journal path or postgres URL")
	tokenRaw := fs.String("token", "", "token identifier")
	dest := fs.String("out", "", "parquet output file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if strings.TrimSpace(*dest) == "" {
		return fmt.Errorf("%w: --out is required", errUsage)
	}
	token, err := crypto.ParseAddress(*tokenRaw)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	journal, err := receipts.Open(*dsn, nil)
	if err != nil {
		return err
	}
	defer journal.Close()
	n, err := journal.ExportParquet(context.Background(), token, *dest)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]interface{}{"rows": n, "path": *dest})
}

func defaultGateway() string {
	if env := strings.TrimSpace(os.Getenv("HASHMELODY_GATEWAY")); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func runRemote(command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	gateway := fs.String("gateway", defaultGateway(), "gateway base URL")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: %s takes exactly one address", errUsage, command)
	}
	target := url.PathEscape(strings.TrimSpace(fs.Arg(0)))
	var path string
	switch command {
	case "price":
		path = "/v1/tokens/" + target + "/price"
	case "vault":
		path = "/v1/tokens/" + target + "/vault"
	default:
		path = "/v1/accounts/" + target
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(*gateway, "/") + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, failure.Error)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return printJSON(out, decoded)
}
