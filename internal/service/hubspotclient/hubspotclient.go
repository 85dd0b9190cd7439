package hubspotclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/service/config"
)

const upsertPath = "/crm/v3/objects/contacts/batch/upsert"

var (
	ErrNoEmail        = errors.New("contact email is empty")
	ErrPartialFailure = errors.New("hubspot batch partially failed")
)

// JSON запрос upsert контактов
type UpsertRequest struct {
	Inputs []UpsertInput `json:"inputs"`
}
type UpsertInput struct {
	IDProperty string            `json:"idProperty"`
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// JSON ответ 207 Multi-Status: ошибки по отдельным входам
type BatchAnswer struct {
	Status    string             `json:"status"`
	NumErrors int                `json:"numErrors"`
	Errors    []BatchErrorAnswer `json:"errors"`
}
type BatchErrorAnswer struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// HubSpotClient - CRM контактов. Контакт идентифицируется по email.
type HubSpotClient interface {
	CreateOrUpdateContact(ctx context.Context, record model.SyncRecord) error
}

type hubSpotClient struct {
	client *resty.Client
}

func NewHubSpotClient(cfg config.HubSpotConfig, httpCfg config.HTTPConfig) HubSpotClient {
	client := resty.New().
		SetBaseURL(cfg.Addr).
		SetTimeout(httpCfg.Timeout).
		SetRetryCount(httpCfg.RetryCount).
		SetAuthToken(cfg.Token)
	return hubSpotClient{client: client}
}

func (c hubSpotClient) CreateOrUpdateContact(ctx context.Context, record model.SyncRecord) error {
	if record.Email == "" {
		return ErrNoEmail
	}

	products, err := json.Marshal(record.Products)
	if err != nil {
		return err
	}
	body := UpsertRequest{Inputs: []UpsertInput{{
		IDProperty: "email",
		ID:         record.Email,
		Properties: map[string]string{
			"email":               record.Email,
			"firstname":           record.FirstName,
			"lastname":            record.LastName,
			"phone":               record.Phone,
			"ecosystem_property":  string(record.Property),
			"last_order_id":       strconv.FormatInt(record.OrderID, 10),
			"last_order_total":    record.OrderTotal,
			"last_order_date":     record.OrderDate,
			"last_order_products": string(products),
		},
	}}}

	setreq := c.client.R().SetContext(ctx).SetBody(body)
	setreq.Method = http.MethodPost
	setreq.URL = upsertPath
	setresp, err := setreq.Send()
	if err != nil {
		return err
	}

	switch setresp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusMultiStatus:
		return batchError(setresp.Body())
	default:
		return fmt.Errorf("hubspot request status: %d", setresp.StatusCode())
	}
}

// batchError собирает ошибки входов из ответа 207.
func batchError(body []byte) error {
	var answer BatchAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return fmt.Errorf("%w: %v", ErrPartialFailure, err)
	}
	if len(answer.Errors) == 0 && answer.NumErrors == 0 {
		return nil
	}

	messages := make([]string, 0, len(answer.Errors))
	for _, e := range answer.Errors {
		messages = append(messages, e.Category+": "+e.Message)
	}
	return fmt.Errorf("%w: %s", ErrPartialFailure, strings.Join(messages, "; "))
}
