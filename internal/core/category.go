package core

// Category identifies an expense category. The values are the identifiers
// already present in persisted ledgers and must not change.
type Category string

const (
	CategoryFood          Category = "Alimentação"
	CategoryTransport     Category = "Transporte"
	CategoryShopping      Category = "Compras"
	CategoryServices      Category = "Serviços"
	CategoryEntertainment Category = "Lazer"
	CategoryHealth        Category = "Saúde"
	CategoryTravel        Category = "Viagem"
	CategoryOther         Category = "Outros"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryShopping,
		CategoryServices,
		CategoryEntertainment,
		CategoryHealth,
		CategoryTravel,
		CategoryOther,
	}
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// OrOther maps an empty category to CategoryOther. Unknown non-empty values
// are kept so aggregation never loses data.
func (c Category) OrOther() Category {
	if c == "" {
		return CategoryOther
	}
	return c
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}
