package trips

import "time"

// Trip is a planned trip. JSON names match the records the web client
// already keeps under the savedTrips and currentTrip keys.
type Trip struct {
	ID            string          `json:"id"`
	Destination   string          `json:"destination"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Itinerary     [][]Activity    `json:"itinerary"`
	Accommodation Accommodation   `json:"accommodation"`
	Transport     Transport       `json:"transport"`
	Budget        Budget          `json:"budget"`
	Checklist     []ChecklistItem `json:"checklist"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Activity is one entry in a day of the itinerary.
type Activity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Time  string `json:"time"`
	Notes string `json:"notes"`
}

type Accommodation struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	IsBooked bool   `json:"isBooked"`
}

type Transport struct {
	Method  string `json:"method"`
	Details string `json:"details"`
	Time    string `json:"time"`
}

const DefaultCurrency = "INR"

type Budget struct {
	Transport  float64 `json:"transport"`
	Stay       float64 `json:"stay"`
	Food       float64 `json:"food"`
	Activities float64 `json:"activities"`
	Currency   string  `json:"currency"`
}

func (b Budget) Total() float64 {
	return b.Transport + b.Stay + b.Food + b.Activities
}

type ChecklistItem struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// DefaultChecklist returns the starter checklist for a new trip.
func DefaultChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: 1, Text: "Book accommodation"},
		{ID: 2, Text: "Book transport"},
		{ID: 3, Text: "Check visa requirements"},
		{ID: 4, Text: "Pack essentials"},
	}
}

// New returns an empty trip with the client's defaults filled in.
func New(destination string) *Trip {
	t := &Trip{Destination: destination}
	t.applyDefaults()
	return t
}

func (t *Trip) applyDefaults() {
	if t.Itinerary == nil {
		t.Itinerary = [][]Activity{}
	}
	if t.Transport.Method == "" {
		t.Transport.Method = "flight"
	}
	if t.Budget.Currency == "" {
		t.Budget.Currency = DefaultCurrency
	}
	if t.Checklist == nil {
		t.Checklist = DefaultChecklist()
	}
}
