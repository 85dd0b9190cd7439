package wooclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/service/config"
)

const (
	ordersPath   = "/wp-json/wc/v3/orders/"
	productsPath = "/wp-json/wc/v3/products/"

	// формат date_created в ответе магазина (время сайта, без зоны)
	dateLayout = "2006-01-02T15:04:05"
)

var ErrNotFound = errors.New("not found")

// JSON ответ магазина: заказ
type OrderAnswer struct {
	ID          int64            `json:"id"`
	Total       decimal.Decimal  `json:"total"`
	DateCreated string           `json:"date_created"`
	Billing     BillingAnswer    `json:"billing"`
	LineItems   []LineItemAnswer `json:"line_items"`
}
type BillingAnswer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}
type LineItemAnswer struct {
	Name      string          `json:"name"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
}

// JSON ответ магазина: товар
type ProductAnswer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	SKU   string `json:"sku"`
	Price string `json:"price"`
}

// WooClient - источник заказов.
type WooClient interface {
	GetOrder(ctx context.Context, orderID int64) (model.OrderRecord, error)
}

type wooClient struct {
	client *resty.Client
	zaplog *zap.Logger
}

func NewWooClient(cfg config.WooConfig, httpCfg config.HTTPConfig, zaplog *zap.Logger) WooClient {
	client := resty.New().
		SetBaseURL(cfg.Addr).
		SetTimeout(httpCfg.Timeout).
		SetRetryCount(httpCfg.RetryCount).
		SetBasicAuth(cfg.ConsumerKey, cfg.ConsumerSecret)
	return wooClient{client: client, zaplog: zaplog}
}

// GetOrder возвращает ErrNotFound, если заказа нет.
// Товар позиции, который не удалось получить (удален или ошибка запроса), остается nil.
func (c wooClient) GetOrder(ctx context.Context, orderID int64) (model.OrderRecord, error) {
	var answer OrderAnswer
	err := c.get(ctx, ordersPath+strconv.FormatInt(orderID, 10), &answer)
	if err != nil {
		return model.OrderRecord{}, err
	}

	order := model.OrderRecord{
		ID: answer.ID,
		Customer: model.Customer{
			Email:     answer.Billing.Email,
			FirstName: answer.Billing.FirstName,
			LastName:  answer.Billing.LastName,
			Phone:     answer.Billing.Phone,
		},
		Total: answer.Total,
	}
	if answer.DateCreated != "" {
		order.CreatedAt, err = time.Parse(dateLayout, answer.DateCreated)
		if err != nil {
			return model.OrderRecord{}, fmt.Errorf("order %d date_created: %w", orderID, err)
		}
	}

	for _, li := range answer.LineItems {
		item := model.LineItem{
			Name:     li.Name,
			SKU:      li.SKU,
			Price:    li.Price,
			Quantity: li.Quantity,
		}
		item.Product, err = c.getProduct(ctx, li.ProductID)
		if err != nil {
			c.zaplog.Warn("product lookup failed, item left unresolved",
				zap.Int64("order", orderID),
				zap.Int64("product", li.ProductID),
				zap.Error(err),
			)
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}

func (c wooClient) getProduct(ctx context.Context, productID int64) (*model.Product, error) {
	if productID == 0 {
		return nil, nil
	}
	var answer ProductAnswer
	err := c.get(ctx, productsPath+strconv.FormatInt(productID, 10), &answer)
	if err != nil {
		// товар удален - позиция без товара
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	price, err := decimal.NewFromString(answer.Price)
	if err != nil {
		price = decimal.Zero
	}
	return &model.Product{
		ID:    answer.ID,
		Slug:  answer.Slug,
		Name:  answer.Name,
		SKU:   answer.SKU,
		Price: price,
	}, nil
}

func (c wooClient) get(ctx context.Context, path string, answer any) error {
	setreq := c.client.R().SetContext(ctx)
	setreq.Method = http.MethodGet
	setreq.URL = path
	setresp, err := setreq.Send()
	if err != nil {
		return err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		return json.Unmarshal(setresp.Body(), answer)
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("woocommerce request status: %d", setresp.StatusCode())
	}
}
