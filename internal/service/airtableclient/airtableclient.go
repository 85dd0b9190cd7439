package airtableclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/service/config"
)

// поле, по которому Airtable сливает записи при upsert
const mergeField = "order_id"

var ErrNoCollection = errors.New("collection name is empty")

// JSON запрос upsert записей
type UpsertRequest struct {
	PerformUpsert PerformUpsert  `json:"performUpsert"`
	Records       []UpsertRecord `json:"records"`
}
type PerformUpsert struct {
	FieldsToMergeOn []string `json:"fieldsToMergeOn"`
}
type UpsertRecord struct {
	Fields map[string]any `json:"fields"`
}

// AirtableClient - табличное хранилище. Запись заказа идентифицируется по order_id.
type AirtableClient interface {
	CreateOrUpdateRecord(ctx context.Context, collection string, record model.SyncRecord) error
}

type airtableClient struct {
	client *resty.Client
	baseID string
}

func NewAirtableClient(cfg config.AirtableConfig, httpCfg config.HTTPConfig) AirtableClient {
	client := resty.New().
		SetBaseURL(cfg.Addr).
		SetTimeout(httpCfg.Timeout).
		SetRetryCount(httpCfg.RetryCount).
		SetAuthToken(cfg.Token)
	return airtableClient{client: client, baseID: cfg.BaseID}
}

func (c airtableClient) CreateOrUpdateRecord(ctx context.Context, collection string, record model.SyncRecord) error {
	if collection == "" {
		return ErrNoCollection
	}

	// Airtable не хранит вложенные списки - товары уходят JSON-строкой
	products, err := json.Marshal(record.Products)
	if err != nil {
		return err
	}
	body := UpsertRequest{
		PerformUpsert: PerformUpsert{FieldsToMergeOn: []string{mergeField}},
		Records: []UpsertRecord{{Fields: map[string]any{
			"email":       record.Email,
			"first_name":  record.FirstName,
			"last_name":   record.LastName,
			"phone":       record.Phone,
			"property":    string(record.Property),
			"order_id":    record.OrderID,
			"order_total": record.OrderTotal,
			"order_date":  record.OrderDate,
			"products":    string(products),
		}}},
	}

	setreq := c.client.R().SetContext(ctx).SetBody(body)
	setreq.Method = http.MethodPatch
	setreq.URL = "/v0/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(collection)
	setresp, err := setreq.Send()
	if err != nil {
		return err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		return nil
	default:
		return fmt.Errorf("airtable request status: %d", setresp.StatusCode())
	}
}
