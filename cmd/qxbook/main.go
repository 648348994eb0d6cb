package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"qxtrade/params"
	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
)

// qxbook dumps both sides of an asset's QX order book plus the latest
// tick. Read-only; needs no seed.
func main() {
	cfg := params.LoadFromEnv("")

	symbol := flag.String("symbol", "", "asset symbol (default: first registered)")
	timeout := flag.Duration("timeout", 15*time.Second, "overall timeout")
	flag.Parse()

	registry := qx.DefaultRegistry()
	if *symbol == "" {
		*symbol = registry.DefaultSymbol()
	}
	issuer, err := registry.ResolveIssuer(*symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Known symbols: %v\n", registry.Symbols())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.APIURL, cfg.Ledger.HTTPTimeout)

	tick, err := client.LatestTick(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Latest tick: %d\n\n", tick)

	for _, side := range []ledger.Side{ledger.Ask, ledger.Bid} {
		orders, err := client.OrderBook(ctx, *symbol, issuer, side, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching %s side: %v\n", side, err)
			os.Exit(1)
		}

		fmt.Printf("%s %s orders (best first):\n", *symbol, side)
		if len(orders) == 0 {
			fmt.Println("  (empty)")
		}
		for _, o := range orders {
			fmt.Printf("  %10d qu x %-10d %s\n", o.Price, o.NumberOfShares, o.EntityID)
		}
		fmt.Println()
	}
}
