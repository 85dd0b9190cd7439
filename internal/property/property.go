package property

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iurnickita/ecosystem/internal/model"
)

type Property struct {
	ID     model.PropertyID
	Name   string
	URL    string
	Domain string
}

var (
	ErrEmptyID     = errors.New("property id is empty")
	ErrDuplicateID = errors.New("duplicate property id")
)

// Registry - неизменяемая таблица площадок. Создается один раз при старте.
type Registry struct {
	properties map[model.PropertyID]Property
	order      []model.PropertyID
}

func NewRegistry(properties []Property) (Registry, error) {
	registry := Registry{properties: make(map[model.PropertyID]Property, len(properties))}
	for _, p := range properties {
		if p.ID == "" {
			return Registry{}, ErrEmptyID
		}
		if _, ok := registry.properties[p.ID]; ok {
			return Registry{}, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		registry.properties[p.ID] = p
		registry.order = append(registry.order, p.ID)
	}
	return registry, nil
}

func (r Registry) Has(id model.PropertyID) bool {
	_, ok := r.properties[id]
	return ok
}

func (r Registry) Get(id model.PropertyID) (Property, bool) {
	p, ok := r.properties[id]
	return p, ok
}

// Name возвращает отображаемое имя площадки или "", если ее нет в реестре.
func (r Registry) Name(id model.PropertyID) string {
	return r.properties[id].Name
}

// URL возвращает адрес площадки или "", если ее нет в реестре.
func (r Registry) URL(id model.PropertyID) string {
	return r.properties[id].URL
}

func (r Registry) IDs() []model.PropertyID {
	ids := make([]model.PropertyID, len(r.order))
	copy(ids, r.order)
	return ids
}

// Detect определяет площадку по адресу сайта.
func (r Registry) Detect(siteURL string) model.PropertyID {
	for _, id := range r.order {
		domain := r.properties[id].Domain
		if domain != "" && strings.Contains(siteURL, domain) {
			return id
		}
	}
	return model.PropertyUnknown
}
