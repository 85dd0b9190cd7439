package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/catalog"
	"github.com/iurnickita/ecosystem/internal/dispatcher"
	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/notify"
	notifyConfig "github.com/iurnickita/ecosystem/internal/notify/config"
	"github.com/iurnickita/ecosystem/internal/service/config"
	"github.com/iurnickita/ecosystem/internal/service/wooclient"
	"github.com/iurnickita/ecosystem/internal/store"
	"github.com/iurnickita/ecosystem/internal/synclog"
)

type fakeOrders struct {
	orders map[int64]model.OrderRecord
	err    error
	calls  int
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID int64) (model.OrderRecord, error) {
	f.calls++
	if f.err != nil {
		return model.OrderRecord{}, f.err
	}
	order, ok := f.orders[orderID]
	if !ok {
		return model.OrderRecord{}, wooclient.ErrNotFound
	}
	return order, nil
}

type sentMail struct {
	to, subject, html string
	headers           map[string]string
	ctxErr            error
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to string, subject string, html string, headers map[string]string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html, headers: headers, ctxErr: ctx.Err()})
	return f.err
}

type fakeContacts struct{ records []model.SyncRecord }

func (f *fakeContacts) CreateOrUpdateContact(_ context.Context, record model.SyncRecord) error {
	f.records = append(f.records, record)
	return errors.New("hubspot unavailable")
}

type fakeTables struct {
	records []model.SyncRecord
	ctxErrs []error
}

func (f *fakeTables) CreateOrUpdateRecord(ctx context.Context, _ string, record model.SyncRecord) error {
	f.records = append(f.records, record)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return ctx.Err()
}

type testEnv struct {
	service  *service
	orders   *fakeOrders
	mailer   *fakeMailer
	contacts *fakeContacts
	tables   *fakeTables
	syncLog  synclog.SyncLog
}

func product(slug string) *model.Product {
	return &model.Product{Slug: slug, Name: slug, SKU: slug, Price: decimal.NewFromInt(10)}
}

func newTestEnv(t *testing.T) *testEnv {
	c, err := catalog.Default()
	require.NoError(t, err)

	env := &testEnv{
		orders: &fakeOrders{orders: map[int64]model.OrderRecord{
			1: {
				ID:        1,
				Customer:  model.Customer{Email: "ana@example.com", FirstName: "Ana"},
				Total:     decimal.NewFromInt(30),
				CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
				Items: []model.LineItem{
					{Name: "Retreat", Quantity: 1, Product: product("spring-retreat")},
					{Name: "Masterclass", Quantity: 1, Product: product("leadership-masterclass")},
					{Name: "Another retreat", Quantity: 1, Product: product("retreat-autumn")},
				},
			},
			2: {
				ID:       2,
				Customer: model.Customer{Email: "bo@example.com"},
				Items:    []model.LineItem{{Name: "Gift card", Quantity: 1, Product: product("gift-card")}},
			},
		}},
		mailer:   &fakeMailer{},
		contacts: &fakeContacts{},
		tables:   &fakeTables{},
	}
	env.syncLog = synclog.NewSyncLog(store.NewMemStore())
	require.NoError(t, env.syncLog.SetEnabled(context.Background(), true))

	env.service = newService(Dependencies{
		Orders:          env.orders,
		Rules:           c.Rules,
		Formatter:       notify.NewFormatter(c.Registry),
		Mailer:          env.mailer,
		Dispatcher:      dispatcher.NewDispatcher(env.contacts, env.tables, "Orders", env.syncLog, zap.NewNop()),
		SyncLog:         env.syncLog,
		DefaultProperty: model.PropertyAltagracia,
	}, zap.NewNop())
	return env
}

func TestOrderCompleted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.service.OrderCompleted(ctx, 1, model.PropertyAltagracia)
	require.NoError(t, err)
	require.Equal(t, 1, env.orders.calls)

	// синхронизация: обе попытки, несмотря на ошибку CRM контактов
	require.Len(t, env.contacts.records, 1)
	require.Len(t, env.tables.records, 1)
	require.Equal(t, model.PropertyAltagracia, env.tables.records[0].Property)
	require.Equal(t, "2024-06-01 09:00:00", env.tables.records[0].OrderDate)

	// письмо с тремя рекомендациями
	require.Len(t, env.mailer.sent, 1)
	mail := env.mailer.sent[0]
	require.Equal(t, "ana@example.com", mail.to)
	require.Equal(t, notify.CrossSellSubject, mail.subject)
	require.Equal(t, notify.HTMLHeaders, mail.headers)
	require.Contains(t, mail.html, "Prepare for your retreat with a meditation class at The 7 Space")
	require.Contains(t, mail.html, "Take your organization to the next level with operations consulting")

	entries, err := env.syncLog.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.SyncLogTypeOrder, entries[0].Type)
	require.Equal(t, model.SyncLogTypeCrossSell, entries[1].Type)
	require.Equal(t, "1", entries[1].ID)

	var data crossSellLogData
	require.NoError(t, json.Unmarshal(entries[1].Data, &data))
	require.Equal(t, model.PropertyAltagracia, data.Property)
	require.Len(t, data.Recommendations, 3)
	require.Equal(t, model.PropertyThe7Space, data.Recommendations[0].Property)
	require.Equal(t, model.PropertyUtakWest, data.Recommendations[1].Property)
	require.Equal(t, model.PropertyThe7Space, data.Recommendations[2].Property)
}

func TestTriggerCrossSellNoRecommendations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.service.TriggerCrossSell(ctx, 2, model.PropertyAltagracia))
	require.Empty(t, env.mailer.sent)

	// неизвестная площадка - тоже без письма
	require.NoError(t, env.service.TriggerCrossSell(ctx, 1, model.PropertyUnknown))
	require.Empty(t, env.mailer.sent)

	entries, err := env.syncLog.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var data crossSellLogData
	require.NoError(t, json.Unmarshal(entries[1].Data, &data))
	require.Equal(t, model.PropertyUnknown, data.Property)
	require.NotNil(t, data.Recommendations)
	require.Empty(t, data.Recommendations)
}

func TestTriggerCrossSellMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	require.NoError(t, env.service.TriggerCrossSell(context.Background(), 1, ""))
	require.Len(t, env.mailer.sent, 1)
}

func TestMissingOrderSkipped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.service.OrderCompleted(ctx, 999, model.PropertyAltagracia))
	require.NoError(t, env.service.SyncOrder(ctx, 999, model.PropertyAltagracia))
	require.NoError(t, env.service.TriggerCrossSell(ctx, 999, model.PropertyAltagracia))

	require.Empty(t, env.contacts.records)
	require.Empty(t, env.tables.records)
	require.Empty(t, env.mailer.sent)
	entries, err := env.syncLog.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOrderErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.ErrorIs(t, env.service.OrderCompleted(ctx, 0, ""), ErrInsufficientData)

	fetchErr := errors.New("woocommerce request status: 500")
	env.orders.err = fetchErr
	require.ErrorIs(t, env.service.SyncOrder(ctx, 1, ""), fetchErr)
	require.Empty(t, env.tables.records)
}

func TestSyncOrderDefaultProperty(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.service.SyncOrder(context.Background(), 1, ""))
	require.Len(t, env.tables.records, 1)
	require.Equal(t, model.PropertyAltagracia, env.tables.records[0].Property)
	require.Empty(t, env.mailer.sent)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.service.SetLogging(ctx, false))
	require.NoError(t, env.service.OrderCompleted(ctx, 1, model.PropertyAltagracia))
	entries, err := env.service.SyncLogs(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, env.service.SetLogging(ctx, true))
	require.NoError(t, env.service.OrderCompleted(ctx, 1, model.PropertyAltagracia))
	entries, err = env.service.SyncLogs(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, env.service.ClearLogs(ctx))
	entries, err = env.service.SyncLogs(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, env.service.Activate(ctx))
	require.NoError(t, env.service.Close(ctx))
}

func TestNewService(t *testing.T) {
	s, err := NewService(config.Config{SiteURL: "https://the7space.com"}, notifyConfig.Config{}, store.NewMemStore(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, model.PropertyThe7Space, s.DefaultProperty())

	require.NoError(t, s.Activate(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	_, err = NewService(config.Config{TableBackend: "sheets"}, notifyConfig.Config{}, store.NewMemStore(), zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestOrderCompletedCallerCancelled(t *testing.T) {
	env := newTestEnv(t)

	// вебхук уже отвалился, обработка доводится до конца
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, env.service.OrderCompleted(ctx, 1, model.PropertyAltagracia))

	require.Len(t, env.tables.records, 1)
	require.Equal(t, []error{nil}, env.tables.ctxErrs)
	require.Len(t, env.mailer.sent, 1)
	require.NoError(t, env.mailer.sent[0].ctxErr)

	entries, err := env.syncLog.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSyncOrderProductLookupFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wp-json/wc/v3/orders/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7, "total": "60.00", "date_created": "2024-06-01T09:00:00",
			"billing": {"email": "ana@example.com"},
			"line_items": [{"name": "Spring Retreat", "product_id": 11, "quantity": 1, "sku": "RET-1", "price": 60}]}`))
	})
	mux.HandleFunc("GET /wp-json/wc/v3/products/11", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	env := newTestEnv(t)
	env.service.deps.Orders = wooclient.NewWooClient(config.WooConfig{Addr: srv.URL},
		config.HTTPConfig{Timeout: 5 * time.Second}, zap.NewNop())

	require.NoError(t, env.service.OrderCompleted(context.Background(), 7, model.PropertyAltagracia))

	// выгрузка идет с данными позиции заказа
	require.Len(t, env.tables.records, 1)
	require.Equal(t, []model.SyncRecordProduct{{Name: "Spring Retreat", SKU: "RET-1", Price: "60.00", Quantity: 1}},
		env.tables.records[0].Products)
	require.Len(t, env.contacts.records, 1)

	// товар не определен - рекомендаций нет
	require.Empty(t, env.mailer.sent)
}
