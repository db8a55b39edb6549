package models

type Platform struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
	IsPaid bool   `json:"isPaid"`
}

// Chargeable reports whether enrolling moves money.
func (p Platform) Chargeable() bool {
	return p.IsPaid && p.Price.IsPositive()
}

type Mentor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Rate     Money  `json:"rate"`
	IsActive bool   `json:"isActive"`
}

type RecordedSession struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	VideoLink string `json:"videoLink"`
	Price     Money  `json:"price"`
	IsActive  bool   `json:"isActive"`
}
