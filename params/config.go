package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Ledger holds the endpoints of the remote ledger and its query API.
// BaseURL serves node RPC (status, balances, owned assets, broadcast);
// APIURL serves the QX order-book query service.
type Ledger struct {
	BaseURL     string
	APIURL      string
	HTTPTimeout time.Duration
}

type Trading struct {
	// TickOffset is added to the latest observed tick when targeting a
	// transaction. Five ticks gives the consensus round enough room to
	// include the transaction before it is considered dropped.
	TickOffset   uint32
	PollInterval time.Duration
}

type Gateway struct {
	ListenAddr string
}

type Config struct {
	Ledger  Ledger
	Trading Trading
	Gateway Gateway
	// JournalPath is the pebble directory for the submission journal.
	// Empty disables journaling.
	JournalPath string
}

func Default() Config {
	return Config{
		Ledger: Ledger{
			BaseURL:     "https://rpc.qubic.org",
			APIURL:      "https://api.qubic.org",
			HTTPTimeout: 10 * time.Second,
		},
		Trading: Trading{
			TickOffset:   5,
			PollInterval: 5000 * time.Millisecond,
		},
		Gateway: Gateway{
			ListenAddr: "127.0.0.1:8980",
		},
		JournalPath: "data/journal",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		cfg.Ledger.BaseURL = v
	}
	if v := os.Getenv("QUERY_API_URL"); v != "" {
		cfg.Ledger.APIURL = v
	}
	if v := os.Getenv("HTTP_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.HTTPTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TICK_OFFSET"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Trading.TickOffset = uint32(n)
		}
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Trading.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("GATEWAY_ADDR"); v != "" {
		cfg.Gateway.ListenAddr = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}

	return cfg
}
