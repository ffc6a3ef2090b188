package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	Elastic    ElasticConfig
	Ledger     LedgerConfig
	Documents  DocumentsConfig
	Reconcile  ReconcileConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// ElasticConfig holds the Elasticsearch configuration for the optional
// shipment search index
type ElasticConfig struct {
	Enabled  bool
	URLs     []string
	Username string
	Password string
	Index    string
}

// LedgerConfig holds the connection settings for the deployed supply-chain
// contract. The contract itself is externally owned; this service only reads
// from it.
type LedgerConfig struct {
	RPCURL          string
	ContractAddress string
	RequestTimeout  time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

// DocumentsConfig holds the IPFS pinning API settings
type DocumentsConfig struct {
	PinEndpoint string
	APIKey      string
	APISecret   string
	MaxFileSize int64
}

// ReconcileConfig controls the ledger reconciliation pass
type ReconcileConfig struct {
	Interval  time.Duration
	BatchSize int
	// Persist controls whether a divergent ledger status is written back to
	// the store or only reflected in the returned copies.
	Persist bool
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/tracker-service")
		viper.SetConfigName("config")
	}

	// TRACKER_SERVER_PORT overrides server.port, and so on
	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("server.port", 8093)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "tracker")
	viper.SetDefault("database.password", "tracker")
	viper.SetDefault("database.dbname", "tracker_service_db")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "shipment-events")

	viper.SetDefault("newrelic.appname", "Tracker Service Local")
	viper.SetDefault("newrelic.enabled", false)

	viper.SetDefault("elastic.enabled", false)
	viper.SetDefault("elastic.urls", []string{"http://localhost:9200"})
	viper.SetDefault("elastic.index", "shipments")

	viper.SetDefault("ledger.rpcurl", "http://localhost:8545")
	viper.SetDefault("ledger.contractaddress", "0xD7070F3e64aD987cb99A37d1A18877E407dC7586")
	viper.SetDefault("ledger.requesttimeout", "10s")
	viper.SetDefault("ledger.maxretries", 3)
	viper.SetDefault("ledger.retrybasedelay", "500ms")

	viper.SetDefault("documents.pinendpoint", "https://api.pinata.cloud/pinning/pinFileToIPFS")
	viper.SetDefault("documents.maxfilesize", 10<<20)

	viper.SetDefault("reconcile.interval", "5m")
	viper.SetDefault("reconcile.batchsize", 50)
	viper.SetDefault("reconcile.persist", true)
}

// Load loads the configuration
func Load() (*Config, error) {
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	elasticConfig := ElasticConfig{
		Enabled:  viper.GetBool("elastic.enabled"),
		URLs:     viper.GetStringSlice("elastic.urls"),
		Username: viper.GetString("elastic.username"),
		Password: viper.GetString("elastic.password"),
		Index:    viper.GetString("elastic.index"),
	}

	ledgerConfig := LedgerConfig{
		RPCURL:          viper.GetString("ledger.rpcurl"),
		ContractAddress: viper.GetString("ledger.contractaddress"),
		RequestTimeout:  viper.GetDuration("ledger.requesttimeout"),
		MaxRetries:      viper.GetInt("ledger.maxretries"),
		RetryBaseDelay:  viper.GetDuration("ledger.retrybasedelay"),
	}

	documentsConfig := DocumentsConfig{
		PinEndpoint: viper.GetString("documents.pinendpoint"),
		APIKey:      viper.GetString("documents.apikey"),
		APISecret:   viper.GetString("documents.apisecret"),
		MaxFileSize: viper.GetInt64("documents.maxfilesize"),
	}

	reconcileConfig := ReconcileConfig{
		Interval:  viper.GetDuration("reconcile.interval"),
		BatchSize: viper.GetInt("reconcile.batchsize"),
		Persist:   viper.GetBool("reconcile.persist"),
	}

	return &Config{
		Server:     serverConfig,
		Database:   dbConfig,
		Redis:      redisConfig,
		ServiceBus: serviceBusConfig,
		NewRelic:   newRelicConfig,
		Elastic:    elasticConfig,
		Ledger:     ledgerConfig,
		Documents:  documentsConfig,
		Reconcile:  reconcileConfig,
	}, nil
}
