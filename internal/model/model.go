package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Площадки экосистемы

type PropertyID string

const (
	PropertyAltagracia PropertyID = "altagracia"
	PropertyThe7Space  PropertyID = "the7space"
	PropertyUtakWest   PropertyID = "utakwest"
	PropertyUnknown    PropertyID = "unknown"
)

// Завершенные заказы

type OrderRecord struct {
	ID        int64
	Property  PropertyID
	Customer  Customer
	Total     decimal.Decimal
	CreatedAt time.Time
	Items     []LineItem
}
type Customer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// LineItem - позиция заказа. Product == nil, если товар не удалось получить
// (удален из каталога и т.п.).
type LineItem struct {
	Name     string
	SKU      string
	Price    decimal.Decimal
	Quantity int
	Product  *Product
}
type Product struct {
	ID    int64
	Slug  string
	Name  string
	SKU   string
	Price decimal.Decimal
}

// Рекомендации

type Recommendation struct {
	Property PropertyID `json:"property"`
	Products []string   `json:"products"`
	Message  string     `json:"message"`
}

// Синхронизация с CRM

// SyncRecord - плоское представление заказа, которое уходит во внешние хранилища.
type SyncRecord struct {
	Email      string              `json:"email" bson:"email"`
	FirstName  string              `json:"first_name" bson:"first_name"`
	LastName   string              `json:"last_name" bson:"last_name"`
	Phone      string              `json:"phone" bson:"phone"`
	Property   PropertyID          `json:"property" bson:"property"`
	OrderID    int64               `json:"order_id" bson:"order_id"`
	OrderTotal string              `json:"order_total" bson:"order_total"`
	OrderDate  string              `json:"order_date" bson:"order_date"`
	Products   []SyncRecordProduct `json:"products" bson:"products"`
}
type SyncRecordProduct struct {
	Name     string `json:"name" bson:"name"`
	SKU      string `json:"sku" bson:"sku"`
	Price    string `json:"price" bson:"price"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// OrderDateLayout - формат даты заказа в синхронизируемой записи.
const OrderDateLayout = "2006-01-02 15:04:05"

// Журнал синхронизаций

type SyncLogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
}

const (
	SyncLogTypeOrder     = "woocommerce_order"
	SyncLogTypeCrossSell = "cross_sell_trigger"
)
