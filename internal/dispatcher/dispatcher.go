package dispatcher

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/synclog"
)

// DefaultCollection - коллекция табличного хранилища для заказов.
const DefaultCollection = "Orders"

type ContactStore interface {
	CreateOrUpdateContact(ctx context.Context, record model.SyncRecord) error
}

type TableStore interface {
	CreateOrUpdateRecord(ctx context.Context, collection string, record model.SyncRecord) error
}

// Dispatcher рассылает заказ во внешние хранилища.
type Dispatcher interface {
	Dispatch(ctx context.Context, order model.OrderRecord)
}

type dispatcher struct {
	contacts   ContactStore
	tables     TableStore
	collection string
	synclog    synclog.SyncLog
	zaplog     *zap.Logger
}

// NewDispatcher: nil вместо хранилища - хранилище не настроено.
func NewDispatcher(contacts ContactStore, tables TableStore, collection string, synclog synclog.SyncLog, zaplog *zap.Logger) Dispatcher {
	if collection == "" {
		collection = DefaultCollection
	}
	return &dispatcher{
		contacts:   contacts,
		tables:     tables,
		collection: collection,
		synclog:    synclog,
		zaplog:     zaplog,
	}
}

// Dispatch отправляет запись в каждое хранилище независимо.
// Ошибки только логируются: ни отката, ни повторов.
func (d *dispatcher) Dispatch(ctx context.Context, order model.OrderRecord) {
	record := Normalize(order)

	if d.contacts != nil {
		if err := d.contacts.CreateOrUpdateContact(ctx, record); err != nil {
			d.zaplog.Warn("contact store push failed",
				zap.Int64("order", order.ID),
				zap.String("store", "contacts"),
				zap.Error(err),
			)
		}
	}

	if d.tables != nil {
		if err := d.tables.CreateOrUpdateRecord(ctx, d.collection, record); err != nil {
			d.zaplog.Warn("table store push failed",
				zap.Int64("order", order.ID),
				zap.String("store", "tables"),
				zap.String("collection", d.collection),
				zap.Error(err),
			)
		}
	}

	if d.synclog != nil {
		err := d.synclog.Record(ctx, model.SyncLogTypeOrder, strconv.FormatInt(order.ID, 10), record)
		if err != nil {
			d.zaplog.Error("sync log write failed", zap.Int64("order", order.ID), zap.Error(err))
		}
	}
}

// Normalize строит плоскую запись заказа.
// Данные товара берутся из каталога, если товар найден, иначе из позиции заказа.
func Normalize(order model.OrderRecord) model.SyncRecord {
	record := model.SyncRecord{
		Email:      order.Customer.Email,
		FirstName:  order.Customer.FirstName,
		LastName:   order.Customer.LastName,
		Phone:      order.Customer.Phone,
		Property:   order.Property,
		OrderID:    order.ID,
		OrderTotal: order.Total.StringFixed(2),
		OrderDate:  order.CreatedAt.Format(model.OrderDateLayout),
		Products:   make([]model.SyncRecordProduct, 0, len(order.Items)),
	}

	for _, item := range order.Items {
		product := model.SyncRecordProduct{
			Name:     item.Name,
			SKU:      item.SKU,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity,
		}
		if item.Product != nil {
			product.Name = item.Product.Name
			product.SKU = item.Product.SKU
			product.Price = item.Product.Price.StringFixed(2)
		}
		record.Products = append(record.Products, product)
	}

	return record
}
