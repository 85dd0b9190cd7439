package crosssell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/property"
)

// Rule - правило перекрестной продажи: если slug купленного товара содержит Key,
// покупателю предлагаются Products площадки Target.
type Rule struct {
	Key      string
	Target   model.PropertyID
	Products []string
	Message  string
}

var (
	ErrUnknownSource = errors.New("rule source property is not registered")
	ErrUnknownTarget = errors.New("rule target property is not registered")
	ErrEmptyKey      = errors.New("rule key is empty")
	ErrDuplicateKey  = errors.New("duplicate rule key")
)

// Rules - неизменяемая таблица правил, сгруппированная по исходной площадке.
// Порядок правил внутри площадки - порядок объявления.
type Rules struct {
	bySource map[model.PropertyID][]Rule
}

func NewRules(registry property.Registry, table map[model.PropertyID][]Rule) (Rules, error) {
	rules := Rules{bySource: make(map[model.PropertyID][]Rule, len(table))}
	for source, sourceRules := range table {
		if !registry.Has(source) {
			return Rules{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
		}
		keys := make(map[string]struct{}, len(sourceRules))
		copied := make([]Rule, 0, len(sourceRules))
		for _, rule := range sourceRules {
			if rule.Key == "" {
				return Rules{}, fmt.Errorf("%w: source %s", ErrEmptyKey, source)
			}
			if _, ok := keys[rule.Key]; ok {
				return Rules{}, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, source, rule.Key)
			}
			if !registry.Has(rule.Target) {
				return Rules{}, fmt.Errorf("%w: %s/%s -> %s", ErrUnknownTarget, source, rule.Key, rule.Target)
			}
			keys[rule.Key] = struct{}{}
			rule.Products = append([]string(nil), rule.Products...)
			copied = append(copied, rule)
		}
		rules.bySource[source] = copied
	}
	return rules, nil
}

// For возвращает копию правил площадки.
func (r Rules) For(source model.PropertyID) []Rule {
	rules := r.bySource[source]
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		rule.Products = append([]string(nil), rule.Products...)
		out[i] = rule
	}
	return out
}

// Resolve подбирает рекомендации по позициям заказа.
// Позиции перебираются в порядке заказа, правила - в порядке объявления.
// Дубликаты не схлопываются: каждая пара (позиция, правило) дает свою рекомендацию.
func (r Rules) Resolve(order model.OrderRecord, source model.PropertyID) []model.Recommendation {
	rules, ok := r.bySource[source]
	if !ok {
		return nil
	}

	var recommendations []model.Recommendation
	for _, item := range order.Items {
		// товар не найден - позицию пропускаем
		if item.Product == nil {
			continue
		}
		slug := item.Product.Slug
		for _, rule := range rules {
			if strings.Contains(slug, rule.Key) {
				recommendations = append(recommendations, model.Recommendation{
					Property: rule.Target,
					Products: append([]string(nil), rule.Products...),
					Message:  rule.Message,
				})
			}
		}
	}
	return recommendations
}
