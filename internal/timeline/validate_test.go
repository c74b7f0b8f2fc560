package timeline

import (
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPurchaseAlwaysAllowedOnEmptyTimeline(t *testing.T) {
	res := ValidateEvent(Event{Type: EventPurchase, Date: day(2020, 1, 15)}, nil)
	if !res.Valid {
		t.Fatalf("purchase rejected: %s", res.Error)
	}
}

func TestNonPurchaseRequiresPurchase(t *testing.T) {
	res := ValidateEvent(Event{Type: EventMoveIn, Date: day(2020, 1, 15)}, nil)
	if res.Valid {
		t.Fatalf("move_in accepted without purchase")
	}
	if res.Suggestion == nil || res.Suggestion.Type != SuggestCreatePurchase {
		t.Fatalf("suggestion = %+v, want createPurchase", res.Suggestion)
	}
	if !strings.Contains(res.Error, "Move In") {
		t.Fatalf("error lacks label: %q", res.Error)
	}
}

func TestEventBeforePurchaseDateRejected(t *testing.T) {
	existing := []Event{{Type: EventPurchase, Date: day(2020, 6, 1)}}
	res := ValidateEvent(Event{Type: EventImprovement, Date: day(2020, 1, 1)}, existing)
	if res.Valid {
		t.Fatalf("improvement before purchase accepted")
	}
	if !strings.Contains(res.Error, "01/06/2020") {
		t.Fatalf("error lacks purchase date: %q", res.Error)
	}
	if res.Suggestion != nil {
		t.Fatalf("date-order rejection should carry no suggestion")
	}
}

func TestNoEventAfterSaleExceptPurchase(t *testing.T) {
	existing := []Event{
		{Type: EventPurchase, Date: day(2018, 1, 1)},
		{Type: EventSale, Date: day(2022, 1, 1)},
	}
	res := ValidateEvent(Event{Type: EventImprovement, Date: day(2023, 1, 1)}, existing)
	if res.Valid {
		t.Fatalf("improvement after sale accepted")
	}
	if !strings.Contains(res.Error, "no longer owned") {
		t.Fatalf("error = %q", res.Error)
	}

	// Buying the property back is fine.
	res = ValidateEvent(Event{Type: EventPurchase, Date: day(2023, 1, 1)}, existing)
	if !res.Valid {
		t.Fatalf("re-purchase after sale rejected: %s", res.Error)
	}
}

func TestEventOnSaleDateAllowed(t *testing.T) {
	existing := []Event{
		{Type: EventPurchase, Date: day(2018, 1, 1)},
		{Type: EventSale, Date: day(2022, 1, 1)},
	}
	res := ValidateEvent(Event{Type: EventMoveOut, Date: day(2022, 1, 1)}, existing)
	// On the sale date itself, rule 2 passes; rule 3 decides.
	if res.Valid {
		t.Fatalf("move_out with no move_in accepted")
	}
	if res.Suggestion == nil || res.Suggestion.Type != SuggestCreateMoveIn {
		t.Fatalf("suggestion = %+v", res.Suggestion)
	}
}

func TestPairedEvents(t *testing.T) {
	base := []Event{{Type: EventPurchase, Date: day(2018, 1, 1)}}

	cases := []struct {
		name    string
		start   EventType
		end     EventType
		suggest SuggestionType
	}{
		{"move", EventMoveIn, EventMoveOut, SuggestCreateMoveIn},
		{"rent", EventRentStart, EventRentEnd, SuggestCreateRentStart},
		{"vacant", EventVacantStart, EventVacantEnd, SuggestCreateVacantStart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateEvent(Event{Type: tc.end, Date: day(2020, 1, 1)}, base)
			if res.Valid {
				t.Fatalf("%s end accepted with no open start", tc.name)
			}
			if res.Suggestion == nil || res.Suggestion.Type != tc.suggest {
				t.Fatalf("suggestion = %+v, want %s", res.Suggestion, tc.suggest)
			}

			withStart := append([]Event{}, base...)
			withStart = append(withStart, Event{Type: tc.start, Date: day(2019, 1, 1)})
			res = ValidateEvent(Event{Type: tc.end, Date: day(2020, 1, 1)}, withStart)
			if !res.Valid {
				t.Fatalf("%s end rejected with open start: %s", tc.name, res.Error)
			}
		})
	}
}

func TestClosedPeriodBlocksSecondEnd(t *testing.T) {
	existing := []Event{
		{Type: EventPurchase, Date: day(2018, 1, 1)},
		{Type: EventMoveIn, Date: day(2018, 2, 1)},
		{Type: EventMoveOut, Date: day(2019, 1, 1)},
	}
	res := ValidateEvent(Event{Type: EventMoveOut, Date: day(2020, 1, 1)}, existing)
	if res.Valid {
		t.Fatalf("second move_out accepted with period already closed")
	}
}

func TestDoublePurchaseNeedsInterveningSale(t *testing.T) {
	existing := []Event{{Type: EventPurchase, Date: day(2018, 1, 1)}}
	res := ValidateEvent(Event{Type: EventPurchase, Date: day(2020, 1, 1)}, existing)
	if res.Valid {
		t.Fatalf("double purchase accepted")
	}
	if res.Suggestion == nil || res.Suggestion.Type != SuggestCreateSale {
		t.Fatalf("suggestion = %+v, want createSale", res.Suggestion)
	}

	withSale := append([]Event{}, existing...)
	withSale = append(withSale, Event{Type: EventSale, Date: day(2019, 1, 1)})
	res = ValidateEvent(Event{Type: EventPurchase, Date: day(2020, 1, 1)}, withSale)
	if !res.Valid {
		t.Fatalf("re-purchase after sale rejected: %s", res.Error)
	}
}

func TestEventLabelFallsBackToRawType(t *testing.T) {
	if got := EventLabel(EventType("mystery")); got != "mystery" {
		t.Fatalf("label = %q", got)
	}
	if got := EventLabel(EventRentEnd); got != "Rent End" {
		t.Fatalf("label = %q", got)
	}
}
