package timeline

import (
	"fmt"
	"time"
)

// EventType enumerates timeline event kinds.
type EventType string

const (
	EventPurchase            EventType = "purchase"
	EventSale                EventType = "sale"
	EventMoveIn              EventType = "move_in"
	EventMoveOut             EventType = "move_out"
	EventRentStart           EventType = "rent_start"
	EventRentEnd             EventType = "rent_end"
	EventImprovement         EventType = "improvement"
	EventRefinance           EventType = "refinance"
	EventStatusChange        EventType = "status_change"
	EventLivingInRentalStart EventType = "living_in_rental_start"
	EventLivingInRentalEnd   EventType = "living_in_rental_end"
	EventVacantStart         EventType = "vacant_start"
	EventVacantEnd           EventType = "vacant_end"
	EventOwnershipChange     EventType = "ownership_change"
	EventSubdivision         EventType = "subdivision"
	EventCustom              EventType = "custom"
)

// Event is the slice of a timeline event the validator needs.
type Event struct {
	Type EventType `json:"type"`
	Date time.Time `json:"date"`
}

// SuggestionType names the follow-up action offered alongside a
// rejection.
type SuggestionType string

const (
	SuggestCreatePurchase    SuggestionType = "createPurchase"
	SuggestCreateSale        SuggestionType = "createSale"
	SuggestCreateMoveIn      SuggestionType = "createMoveIn"
	SuggestCreateRentStart   SuggestionType = "createRentStart"
	SuggestCreateVacantStart SuggestionType = "createVacantStart"
)

type Suggestion struct {
	Type          SuggestionType `json:"type"`
	SuggestedDate *time.Time     `json:"suggestedDate,omitempty"`
	Message       string         `json:"message,omitempty"`
}

type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Error      string      `json:"error,omitempty"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
}

// Event types that cannot exist before the property is purchased.
var requiresPurchase = map[EventType]bool{
	EventMoveIn:      true,
	EventMoveOut:     true,
	EventRentStart:   true,
	EventRentEnd:     true,
	EventImprovement: true,
	EventRefinance:   true,
	EventVacantStart: true,
	EventVacantEnd:   true,
	EventSale:        true,
}

const dateLayout = "02/01/2006"

// ValidateEvent checks a candidate event against a property's existing
// events. Only absolute impossibilities are rejected; tax edge cases are
// left to the analysis.
func ValidateEvent(newEvent Event, existing []Event) ValidationResult {
	if res := validateAgainstPurchase(newEvent, existing); !res.Valid {
		return res
	}
	if res := validateAgainstSale(newEvent, existing); !res.Valid {
		return res
	}
	if res := validatePaired(newEvent, existing); !res.Valid {
		return res
	}
	if res := validateMultiplePurchase(newEvent, existing); !res.Valid {
		return res
	}
	return ValidationResult{Valid: true}
}

// Rule 1: a purchase must exist and the event must not precede it.
func validateAgainstPurchase(newEvent Event, existing []Event) ValidationResult {
	if newEvent.Type == EventPurchase || !requiresPurchase[newEvent.Type] {
		return ValidationResult{Valid: true}
	}
	purchase, ok := firstOfType(existing, EventPurchase)
	if !ok {
		date := newEvent.Date
		return ValidationResult{
			Error: fmt.Sprintf("Cannot add %s event without a purchase event.", EventLabel(newEvent.Type)),
			Suggestion: &Suggestion{
				Type:          SuggestCreatePurchase,
				SuggestedDate: &date,
				Message:       "This property needs a purchase event first. Would you like to create one now?",
			},
		}
	}
	if newEvent.Date.Before(purchase.Date) {
		return ValidationResult{
			Error: fmt.Sprintf("Cannot add %s event before purchase date.\n\nPurchase date: %s\nEvent date: %s",
				EventLabel(newEvent.Type), purchase.Date.Format(dateLayout), newEvent.Date.Format(dateLayout)),
		}
	}
	return ValidationResult{Valid: true}
}

// Rule 2: nothing after the sale date, except a fresh purchase (the
// property could be bought back).
func validateAgainstSale(newEvent Event, existing []Event) ValidationResult {
	if newEvent.Type == EventPurchase {
		return ValidationResult{Valid: true}
	}
	sale, ok := firstOfType(existing, EventSale)
	if !ok {
		return ValidationResult{Valid: true}
	}
	if newEvent.Date.After(sale.Date) {
		return ValidationResult{
			Error: fmt.Sprintf("Cannot add %s event after sale date.\n\nSale date: %s\n\nThe property was sold on this date and is no longer owned.",
				EventLabel(newEvent.Type), sale.Date.Format(dateLayout)),
		}
	}
	return ValidationResult{Valid: true}
}

// Rule 3: end events need an open matching start before them.
func validatePaired(newEvent Event, existing []Event) ValidationResult {
	type pairing struct {
		start      EventType
		errText    string
		suggestion SuggestionType
		message    string
	}
	pairs := map[EventType]pairing{
		EventMoveOut: {
			start:      EventMoveIn,
			errText:    "Cannot move out - no active move-in period exists.",
			suggestion: SuggestCreateMoveIn,
			message:    "Would you like to create a move-in event first?",
		},
		EventRentEnd: {
			start:      EventRentStart,
			errText:    "Cannot end rental - no active rental period exists.",
			suggestion: SuggestCreateRentStart,
			message:    "Would you like to create a rent start event first?",
		},
		EventVacantEnd: {
			start:      EventVacantStart,
			errText:    "Cannot end vacancy - no active vacancy period exists.",
			suggestion: SuggestCreateVacantStart,
			message:    "Would you like to create a vacant start event first?",
		},
	}
	p, ok := pairs[newEvent.Type]
	if !ok {
		return ValidationResult{Valid: true}
	}

	var starts, ends int
	for _, e := range existing {
		if !e.Date.Before(newEvent.Date) {
			continue
		}
		switch e.Type {
		case p.start:
			starts++
		case newEvent.Type:
			ends++
		}
	}
	if ends >= starts {
		date := newEvent.Date
		return ValidationResult{
			Error: p.errText,
			Suggestion: &Suggestion{
				Type:          p.suggestion,
				SuggestedDate: &date,
				Message:       p.message,
			},
		}
	}
	return ValidationResult{Valid: true}
}

// Rule 4: no second purchase without an intervening sale.
func validateMultiplePurchase(newEvent Event, existing []Event) ValidationResult {
	if newEvent.Type != EventPurchase {
		return ValidationResult{Valid: true}
	}
	purchase, ok := firstOfType(existing, EventPurchase)
	if !ok {
		return ValidationResult{Valid: true}
	}
	for _, e := range existing {
		if e.Type == EventSale && !e.Date.Before(purchase.Date) && !e.Date.After(newEvent.Date) {
			return ValidationResult{Valid: true}
		}
	}
	date := newEvent.Date
	return ValidationResult{
		Error: fmt.Sprintf("Property already purchased on %s.\n\nCannot purchase the same property twice.",
			purchase.Date.Format(dateLayout)),
		Suggestion: &Suggestion{
			Type:          SuggestCreateSale,
			SuggestedDate: &date,
			Message:       "Did you mean to add a sale event first?",
		},
	}
}

func firstOfType(events []Event, t EventType) (Event, bool) {
	for _, e := range events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

// EventLabel is the human-readable name for an event type.
func EventLabel(t EventType) string {
	labels := map[EventType]string{
		EventPurchase:            "Purchase",
		EventSale:                "Sale",
		EventMoveIn:              "Move In",
		EventMoveOut:             "Move Out",
		EventRentStart:           "Rent Start",
		EventRentEnd:             "Rent End",
		EventImprovement:         "Improvement",
		EventRefinance:           "Refinance",
		EventStatusChange:        "Status Change",
		EventLivingInRentalStart: "Living in Rental Start",
		EventLivingInRentalEnd:   "Living in Rental End",
		EventVacantStart:         "Vacant Start",
		EventVacantEnd:           "Vacant End",
		EventOwnershipChange:     "Ownership Change",
		EventSubdivision:         "Subdivision",
		EventCustom:              "Custom Event",
	}
	if label, ok := labels[t]; ok {
		return label
	}
	return string(t)
}
