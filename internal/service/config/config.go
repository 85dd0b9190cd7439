package config

import "time"

type Config struct {
	SiteURL          string
	CatalogFile      string
	EnableLogging    bool
	OrdersCollection string
	TableBackend     string
	HTTP             HTTPConfig
	Woo              WooConfig
	HubSpot          HubSpotConfig
	Airtable         AirtableConfig
	Mongo            MongoConfig
}

const (
	TableBackendAirtable = "airtable"
	TableBackendMongo    = "mongo"
)

// HTTPConfig - общие настройки исходящих HTTP-клиентов.
// RetryCount = 0: без повторов.
type HTTPConfig struct {
	Timeout    time.Duration
	RetryCount int
}

type WooConfig struct {
	Addr           string
	ConsumerKey    string
	ConsumerSecret string
}

type HubSpotConfig struct {
	Addr  string
	Token string
}

type AirtableConfig struct {
	Addr   string
	BaseID string
	Token  string
}

type MongoConfig struct {
	URI      string
	Database string
}
