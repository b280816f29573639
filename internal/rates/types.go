package rates

// CheapestRate is the single cheapest qualifying offer of one response.
// Price > 0 if and only if Available.
type CheapestRate struct {
	Available  bool    `json:"available"`
	Price      float64 `json:"price"`
	RoomType   string  `json:"room_type"`
	TariffName string  `json:"tariff_name"`
	Message    string  `json:"message"`
	MinNights  int     `json:"min_nights"`

	// Diagnostics is kept for logging and never serialized.
	Diagnostics Diagnostics `json:"-"`
}

// Diagnostics records every tariff message seen while scanning a response.
type Diagnostics struct {
	Messages []TariffMessage
}

// TariffMessage is one upstream tariff message with its context.
type TariffMessage struct {
	Category  string
	Tariff    string
	Success   bool
	Message   string
	MinNights int
}

// RoomRateGroup lists the qualifying offers of one room category.
type RoomRateGroup struct {
	RoomType       string `json:"room_type"`
	AvailableCount int    `json:"available_count"`
	Rates          []Rate `json:"rates"`
}

// Rate is one qualifying offer in a RoomRateGroup.
type Rate struct {
	TariffName  string  `json:"tariff_name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Inclusions  string  `json:"inclusions"`
}
