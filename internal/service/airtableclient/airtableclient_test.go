package airtableclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/service/config"
	"github.com/stretchr/testify/require"
)

func TestCreateOrUpdateRecord(t *testing.T) {
	var got UpsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v0/appBase/Orders", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewAirtableClient(config.AirtableConfig{Addr: srv.URL, BaseID: "appBase", Token: "key"},
		config.HTTPConfig{Timeout: 5 * time.Second})

	record := model.SyncRecord{
		Email:      "ana@example.com",
		Property:   model.PropertyThe7Space,
		OrderID:    77,
		OrderTotal: "10.00",
		OrderDate:  "2024-01-02 03:04:05",
		Products:   []model.SyncRecordProduct{{Name: "Yoga class", SKU: "Y1", Price: "10.00", Quantity: 1}},
	}
	require.NoError(t, client.CreateOrUpdateRecord(context.Background(), "Orders", record))

	require.Equal(t, []string{"order_id"}, got.PerformUpsert.FieldsToMergeOn)
	require.Len(t, got.Records, 1)
	fields := got.Records[0].Fields
	require.Equal(t, "ana@example.com", fields["email"])
	require.Equal(t, "the7space", fields["property"])
	require.EqualValues(t, 77, fields["order_id"])
	require.Equal(t, "2024-01-02 03:04:05", fields["order_date"])
	require.JSONEq(t, `[{"name":"Yoga class","sku":"Y1","price":"10.00","quantity":1}]`, fields["products"].(string))
}

func TestCreateOrUpdateRecordErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewAirtableClient(config.AirtableConfig{Addr: srv.URL, BaseID: "appBase"}, config.HTTPConfig{Timeout: 5 * time.Second})

	err := client.CreateOrUpdateRecord(context.Background(), "Orders", model.SyncRecord{OrderID: 1})
	require.ErrorContains(t, err, "airtable request status: 422")

	err = client.CreateOrUpdateRecord(context.Background(), "", model.SyncRecord{})
	require.ErrorIs(t, err, ErrNoCollection)
}
