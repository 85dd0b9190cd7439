// Package synclog ведет журнал синхронизаций в хранилище настроек.
package synclog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/store"
)

const (
	OptionEnableLogging = "ecosystem_enable_logging"
	OptionSyncLogs      = "ecosystem_sync_logs"

	// Capacity - сколько последних записей хранит журнал.
	Capacity = 100
)

type SyncLog interface {
	Record(ctx context.Context, eventType string, subjectID string, payload any) error
	Entries(ctx context.Context) ([]model.SyncLogEntry, error)
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Clear(ctx context.Context) error
	Activate(ctx context.Context, enabled bool) error
}

type syncLog struct {
	store store.Store
	now   func() time.Time
}

func NewSyncLog(store store.Store) SyncLog {
	return &syncLog{store: store, now: time.Now}
}

// Record добавляет запись, если журналирование включено.
// После добавления в журнале остаются только последние Capacity записей.
// Добавление и обрезка - одна атомарная операция хранилища, в том числе между экземплярами сервиса.
func (l *syncLog) Record(ctx context.Context, eventType string, subjectID string, payload any) error {
	enabled, err := l.Enabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sync log payload: %w", err)
	}
	entry := model.SyncLogEntry{
		Timestamp: l.now(),
		Type:      eventType,
		ID:        subjectID,
		Data:      data,
	}

	return l.store.OptionUpdate(ctx, OptionSyncLogs, func(value []byte, found bool) ([]byte, error) {
		var entries []model.SyncLogEntry
		if found && len(value) > 0 {
			if err := json.Unmarshal(value, &entries); err != nil {
				return nil, fmt.Errorf("unmarshal sync logs: %w", err)
			}
		}
		entries = append(entries, entry)
		if len(entries) > Capacity {
			entries = entries[len(entries)-Capacity:]
		}
		return json.Marshal(entries)
	})
}

func (l *syncLog) Entries(ctx context.Context) ([]model.SyncLogEntry, error) {
	return l.entries(ctx)
}

func (l *syncLog) Enabled(ctx context.Context) (bool, error) {
	value, err := l.store.OptionGet(ctx, OptionEnableLogging)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	enabled, err := strconv.ParseBool(string(value))
	if err != nil {
		// нераспознанное значение считаем выключенным
		return false, nil
	}
	return enabled, nil
}

func (l *syncLog) SetEnabled(ctx context.Context, enabled bool) error {
	return l.store.OptionPut(ctx, OptionEnableLogging, []byte(strconv.FormatBool(enabled)))
}

func (l *syncLog) Clear(ctx context.Context) error {
	return l.put(ctx, nil)
}

// Activate заводит настройки журнала, если их еще нет.
func (l *syncLog) Activate(ctx context.Context, enabled bool) error {
	err := l.store.OptionAdd(ctx, OptionEnableLogging, []byte(strconv.FormatBool(enabled)))
	if err != nil {
		return err
	}
	return l.store.OptionAdd(ctx, OptionSyncLogs, []byte("[]"))
}

func (l *syncLog) entries(ctx context.Context) ([]model.SyncLogEntry, error) {
	value, err := l.store.OptionGet(ctx, OptionSyncLogs)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var entries []model.SyncLogEntry
	if err := json.Unmarshal(value, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal sync logs: %w", err)
	}
	return entries, nil
}

func (l *syncLog) put(ctx context.Context, entries []model.SyncLogEntry) error {
	if entries == nil {
		entries = []model.SyncLogEntry{}
	}
	value, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return l.store.OptionPut(ctx, OptionSyncLogs, value)
}
