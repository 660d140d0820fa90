package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr string
	// RequireSignatures rejects mutating requests whose payload is not
	// signed by the claimed identity. Off by default for devnets.
	RequireSignatures bool
	// AllowedOrigins lists the CORS origins the API accepts.
	AllowedOrigins []string
}

type Node struct {
	DBPath  string
	LogFile string
}

type Dex struct {
	// AdminAddress receives the admin identity at first boot.
	AdminAddress     string
	MaxOrdersPerUser uint64
	MaxOrdersPerBook uint64
}

type Config struct {
	HTTP HTTP
	Node Node
	Dex  Dex
}

func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:              ":8080",
			RequireSignatures: false,
			AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Node: Node{
			DBPath:  "data/dex.db",
			LogFile: "data/node.log",
		},
		Dex: Dex{
			AdminAddress:     "",
			MaxOrdersPerUser: 16,
			MaxOrdersPerBook: 256,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Optional .env file; missing is fine.
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if v := os.Getenv("REQUIRE_SIGNATURES"); v != "" {
		cfg.HTTP.RequireSignatures = v == "true"
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.HTTP.AllowedOrigins = origins
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		cfg.Dex.AdminAddress = v
	}
	if v := os.Getenv("MAX_ORDERS_PER_USER"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Dex.MaxOrdersPerUser = n
		}
	}
	if v := os.Getenv("MAX_ORDERS_PER_BOOK"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Dex.MaxOrdersPerBook = n
		}
	}

	return cfg
}
