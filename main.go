package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "go-facetec-relay/logging"
	redis "go-facetec-relay/redis"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server_config"`
	ProviderConfig ProviderConfig `json:"provider_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	JwtPrivateKeyPath  string `json:"jwt_private_key_path,omitempty"`
	JwtIssuerId        string `json:"jwt_issuer_id,omitempty"`
	JwtValiditySeconds int    `json:"jwt_validity_seconds,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		log.Error.Fatal("please provide a config path using the --config flag")
	}

	log.Info.Printf("using config: %v", *configPath)

	config, err := readConfigFile(*configPath)
	if err != nil {
		log.Error.Fatalf("failed to read config file: %v", err)
	}

	log.InitLogger(config.LogLevel, config.LogFormat)
	log.Info.Printf("hosting on: %v:%v", config.ServerConfig.Host, config.ServerConfig.Port)

	if config.ProviderConfig.BaseUrl == "" {
		log.Error.Fatal("provider_config.base_url is required")
	}
	providerClient := NewFaceTecClient(config.ProviderConfig)

	auditStore, err := createAuditStore(&config)
	if err != nil {
		log.Error.Fatalf("failed to instantiate audit store: %v", err)
	}

	attestor, err := createAttestor(&config)
	if err != nil {
		log.Error.Fatalf("failed to instantiate outcome attestor: %v", err)
	}

	serverState := ServerState{
		providerClient: providerClient,
		auditStore:     auditStore,
		attestor:       attestor,
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		log.Error.Fatalf("failed to create server: %v", err)
	}

	// Warn-only: the relay can come up before the provider does.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := providerClient.HealthCheck(ctx); err != nil {
		slog.Warn("Provider not reachable at startup", "error", err)
	}
	cancel()

	go handleShutdownSignals(server)

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error.Fatalf("failed to listen and serve: %v", err)
	}
}

func handleShutdownSignals(server *Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	if err := server.Stop(); err != nil {
		log.Error.Printf("shutdown error: %v", err)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func createAuditStore(config *Config) (AuditStore, error) {
	if config.StorageType == "redis" {
		log.Info.Printf("Using redis audit store")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisAuditStore(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		log.Info.Printf("Using redis sentinel audit store")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisAuditStore(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" {
		log.Info.Printf("Using in memory audit store")
		return NewInMemoryAuditStore(), nil
	}
	if config.StorageType == "none" || config.StorageType == "" {
		log.Info.Printf("Auditing disabled")
		return NoopAuditStore{}, nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}

func createAttestor(config *Config) (OutcomeAttestor, error) {
	if config.JwtPrivateKeyPath == "" {
		log.Info.Printf("Outcome attestation disabled")
		return nil, nil
	}

	validity := 5 * time.Minute
	if config.JwtValiditySeconds > 0 {
		validity = time.Duration(config.JwtValiditySeconds) * time.Second
	}
	issuer := config.JwtIssuerId
	if issuer == "" {
		issuer = "facetec-relay"
	}

	log.Info.Printf("Outcome attestation enabled, issuer: %v", issuer)
	return NewRsaOutcomeAttestor(config.JwtPrivateKeyPath, issuer, validity)
}
