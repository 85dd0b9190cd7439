package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	handlerConfig "github.com/iurnickita/ecosystem/internal/handler/config"
	loggerConfig "github.com/iurnickita/ecosystem/internal/logger/config"
	notifyConfig "github.com/iurnickita/ecosystem/internal/notify/config"
	serviceConfig "github.com/iurnickita/ecosystem/internal/service/config"
	storeConfig "github.com/iurnickita/ecosystem/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Notify  notifyConfig.Config
}

// GetConfig читает .env (если есть) и переменные окружения.
func GetConfig() Config {
	// .env необязателен
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeout, _ := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "10"))
	retryCount, _ := strconv.Atoi(getEnv("HTTP_RETRY_COUNT", "0"))
	enableLogging, _ := strconv.ParseBool(getEnv("ENABLE_LOGGING", "true"))

	return Config{
		Handler: handlerConfig.Config{
			ServerAddr: getEnv("RUN_ADDRESS", ":8080"),
		},
		Logger: loggerConfig.Config{
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Store: storeConfig.Config{
			DBDsn:         getEnv("DATABASE_URI", ""),
			RedisAddr:     getEnv("REDIS_ADDRESS", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Service: serviceConfig.Config{
			SiteURL:          getEnv("SITE_URL", ""),
			CatalogFile:      getEnv("CATALOG_FILE", ""),
			EnableLogging:    enableLogging,
			OrdersCollection: getEnv("ORDERS_COLLECTION", "Orders"),
			TableBackend:     getEnv("TABLE_BACKEND", serviceConfig.TableBackendAirtable),
			HTTP: serviceConfig.HTTPConfig{
				Timeout:    time.Duration(timeout) * time.Second,
				RetryCount: retryCount,
			},
			Woo: serviceConfig.WooConfig{
				Addr:           getEnv("WOO_ADDRESS", ""),
				ConsumerKey:    getEnv("WOO_CONSUMER_KEY", ""),
				ConsumerSecret: getEnv("WOO_CONSUMER_SECRET", ""),
			},
			HubSpot: serviceConfig.HubSpotConfig{
				Addr:  getEnv("HUBSPOT_ADDRESS", ""),
				Token: getEnv("HUBSPOT_TOKEN", ""),
			},
			Airtable: serviceConfig.AirtableConfig{
				Addr:   getEnv("AIRTABLE_ADDRESS", ""),
				BaseID: getEnv("AIRTABLE_BASE", ""),
				Token:  getEnv("AIRTABLE_TOKEN", ""),
			},
			Mongo: serviceConfig.MongoConfig{
				URI:      getEnv("MONGO_URI", ""),
				Database: getEnv("MONGO_DATABASE", "ecosystem"),
			},
		},
		Notify: notifyConfig.Config{
			SMTPAddr:     getEnv("SMTP_ADDRESS", ""),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
