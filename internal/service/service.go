package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/catalog"
	"github.com/iurnickita/ecosystem/internal/crosssell"
	"github.com/iurnickita/ecosystem/internal/dispatcher"
	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/notify"
	notifyConfig "github.com/iurnickita/ecosystem/internal/notify/config"
	"github.com/iurnickita/ecosystem/internal/service/airtableclient"
	"github.com/iurnickita/ecosystem/internal/service/config"
	"github.com/iurnickita/ecosystem/internal/service/hubspotclient"
	"github.com/iurnickita/ecosystem/internal/service/wooclient"
	"github.com/iurnickita/ecosystem/internal/store"
	"github.com/iurnickita/ecosystem/internal/synclog"
	"github.com/iurnickita/ecosystem/internal/tablestore"
)

type Service interface {
	OrderCompleted(ctx context.Context, orderID int64, property model.PropertyID) error
	SyncOrder(ctx context.Context, orderID int64, property model.PropertyID) error
	TriggerCrossSell(ctx context.Context, orderID int64, property model.PropertyID) error
	DefaultProperty() model.PropertyID
	Activate(ctx context.Context) error
	SyncLogs(ctx context.Context) ([]model.SyncLogEntry, error)
	SetLogging(ctx context.Context, enabled bool) error
	ClearLogs(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownBackend   = errors.New("unknown table backend")
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultProcessTimeout = 2 * time.Minute
)

// Dependencies - коллабораторы сервиса.
type Dependencies struct {
	Orders          wooclient.WooClient
	Rules           crosssell.Rules
	Formatter       *notify.Formatter
	Mailer          notify.Mailer
	Dispatcher      dispatcher.Dispatcher
	SyncLog         synclog.SyncLog
	DefaultProperty model.PropertyID
	EnableLogging   bool
	// ProcessTimeout ограничивает обработку заказа, 0 - defaultProcessTimeout
	ProcessTimeout time.Duration
}

type service struct {
	deps   Dependencies
	zaplog *zap.Logger
	closer func(ctx context.Context) error
}

func NewService(cfg config.Config, mailCfg notifyConfig.Config, store store.Store, zaplog *zap.Logger) (Service, error) {
	c, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	syncLog := synclog.NewSyncLog(store)

	var contacts dispatcher.ContactStore
	if cfg.HubSpot.Addr != "" {
		contacts = hubspotclient.NewHubSpotClient(cfg.HubSpot, cfg.HTTP)
	}

	var (
		tables dispatcher.TableStore
		closer func(ctx context.Context) error
	)
	switch cfg.TableBackend {
	case "", config.TableBackendAirtable:
		if cfg.Airtable.Addr != "" {
			tables = airtableclient.NewAirtableClient(cfg.Airtable, cfg.HTTP)
		}
	case config.TableBackendMongo:
		timeout := cfg.HTTP.Timeout
		if timeout <= 0 {
			timeout = defaultConnectTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		client, err := tablestore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		tables = tablestore.NewTableStore(tablestore.NewMongoProvider(client, cfg.Mongo.Database))
		closer = client.Disconnect
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.TableBackend)
	}

	mailer, err := notify.NewMailer(mailCfg, zaplog)
	if err != nil {
		return nil, err
	}

	defaultProperty := c.Registry.Detect(cfg.SiteURL)
	zaplog.Info("service configured",
		zap.String("property", string(defaultProperty)),
		zap.Bool("contacts", contacts != nil),
		zap.Bool("tables", tables != nil),
		zap.String("table_backend", cfg.TableBackend),
	)

	deps := Dependencies{
		Orders:          wooclient.NewWooClient(cfg.Woo, cfg.HTTP, zaplog),
		Rules:           c.Rules,
		Formatter:       notify.NewFormatter(c.Registry),
		Mailer:          mailer,
		Dispatcher:      dispatcher.NewDispatcher(contacts, tables, cfg.OrdersCollection, syncLog, zaplog),
		SyncLog:         syncLog,
		DefaultProperty: defaultProperty,
		EnableLogging:   cfg.EnableLogging,
	}
	s := newService(deps, zaplog)
	s.closer = closer
	return s, nil
}

func newService(deps Dependencies, zaplog *zap.Logger) *service {
	return &service{deps: deps, zaplog: zaplog}
}

func (service *service) DefaultProperty() model.PropertyID {
	return service.deps.DefaultProperty
}

// detach отвязывает обработку от отмены вызывающего (например, разрыва вебхука):
// обе выгрузки, письмо и запись журнала выполняются до конца.
func (service *service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := service.deps.ProcessTimeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// OrderCompleted: синхронизация с CRM, затем рекомендации.
// Заказ запрашивается один раз.
func (service *service) OrderCompleted(ctx context.Context, orderID int64, property model.PropertyID) error {
	ctx, cancel := service.detach(ctx)
	defer cancel()

	order, ok, err := service.getOrder(ctx, orderID, property)
	if err != nil || !ok {
		return err
	}

	service.deps.Dispatcher.Dispatch(ctx, order)
	return service.crossSell(ctx, order)
}

func (service *service) SyncOrder(ctx context.Context, orderID int64, property model.PropertyID) error {
	ctx, cancel := service.detach(ctx)
	defer cancel()

	order, ok, err := service.getOrder(ctx, orderID, property)
	if err != nil || !ok {
		return err
	}

	service.deps.Dispatcher.Dispatch(ctx, order)
	return nil
}

func (service *service) TriggerCrossSell(ctx context.Context, orderID int64, property model.PropertyID) error {
	ctx, cancel := service.detach(ctx)
	defer cancel()

	order, ok, err := service.getOrder(ctx, orderID, property)
	if err != nil || !ok {
		return err
	}

	return service.crossSell(ctx, order)
}

// getOrder: ok == false - заказа нет, обработка молча прекращается.
func (service *service) getOrder(ctx context.Context, orderID int64, property model.PropertyID) (model.OrderRecord, bool, error) {
	if orderID <= 0 {
		return model.OrderRecord{}, false, ErrInsufficientData
	}
	if property == "" {
		property = service.deps.DefaultProperty
	}

	order, err := service.deps.Orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, wooclient.ErrNotFound) {
			service.zaplog.Debug("order not found, skipped", zap.Int64("order", orderID))
			return model.OrderRecord{}, false, nil
		}
		return model.OrderRecord{}, false, err
	}
	order.Property = property
	return order, true, nil
}

type crossSellLogData struct {
	Property        model.PropertyID       `json:"property"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

func (service *service) crossSell(ctx context.Context, order model.OrderRecord) error {
	recommendations := service.deps.Rules.Resolve(order, order.Property)

	msg, err := service.deps.Formatter.Format(recommendations)
	if err != nil {
		return err
	}
	if msg != nil {
		err = service.deps.Mailer.Send(ctx, order.Customer.Email, msg.Subject, msg.HTML, notify.HTMLHeaders)
		if err != nil {
			service.zaplog.Warn("cross-sell mail failed",
				zap.Int64("order", order.ID),
				zap.String("property", string(order.Property)),
				zap.Error(err),
			)
		}
	}

	if recommendations == nil {
		recommendations = []model.Recommendation{}
	}
	err = service.deps.SyncLog.Record(ctx, model.SyncLogTypeCrossSell, strconv.FormatInt(order.ID, 10),
		crossSellLogData{Property: order.Property, Recommendations: recommendations})
	if err != nil {
		service.zaplog.Error("sync log write failed", zap.Int64("order", order.ID), zap.Error(err))
	}
	return nil
}

// Activate заводит настройки по умолчанию, существующие не трогает.
func (service *service) Activate(ctx context.Context) error {
	return service.deps.SyncLog.Activate(ctx, service.deps.EnableLogging)
}

func (service *service) SyncLogs(ctx context.Context) ([]model.SyncLogEntry, error) {
	return service.deps.SyncLog.Entries(ctx)
}

func (service *service) SetLogging(ctx context.Context, enabled bool) error {
	return service.deps.SyncLog.SetEnabled(ctx, enabled)
}

func (service *service) ClearLogs(ctx context.Context) error {
	return service.deps.SyncLog.Clear(ctx)
}

func (service *service) Close(ctx context.Context) error {
	if service.closer == nil {
		return nil
	}
	return service.closer(ctx)
}
