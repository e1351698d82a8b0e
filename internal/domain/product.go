package domain

// Product is a catalog entry. Exactly one of Price or Sizes is set.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Popular     bool     `json:"popular"`
	Price       *float64 `json:"price,omitempty"`
	Sizes       []Size   `json:"sizes,omitempty"`
}

type Size struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
