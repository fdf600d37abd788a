package config

import (
	"os"
	"strings"
)

// Server captures process-level configuration. Optional backends (postgres,
// redis, kafka) stay disabled when their setting is empty so the service runs
// fully in-memory for development and tests.
type Server struct {
	Addr           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	KafkaTopic     string
	OracleProofKey string
	LoopbackOracle bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VEIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("VEIL_KAFKA_TOPIC")
	if topic == "" {
		topic = "veil.completions"
	}

	proofKey := os.Getenv("VEIL_ORACLE_PROOF_KEY")
	if proofKey == "" {
		// Development default; the deployment must override it with the key
		// shared with the decryption oracle.
		proofKey = "dev-oracle-proof-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("VEIL_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("VEIL_DATABASE_URL"),
		RedisURL:       os.Getenv("VEIL_REDIS_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     topic,
		OracleProofKey: proofKey,
		LoopbackOracle: os.Getenv("VEIL_LOOPBACK_ORACLE") == "true",
	}
}
