package passbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roundTripHints = map[string]string{
	HintSubheader:         "Subheader",
	HintVenue:             "Venue",
	HintStartDateTime:     "Date",
	HintSeat:              "Seat",
	HintGate:              "Gate",
	HintProvider:          "Provider",
	HintOfferTitle:        "Offer",
	HintBalance:           "Points",
	HintAccountID:         "Account",
	HintAccountName:       "Member",
	HintOrigin:            "From",
	HintDestination:       "To",
	HintFlightNumber:      "Flight",
	HintDepartureDateTime: "Departure",
	HintPassengerName:     "Passenger",
	HintSeatNumber:        "Seat",
	HintConfirmationCode:  "Confirmation",
	HintOriginName:        "From",
	HintDestinationName:   "To",
}

// roundTrip sends a pass through archive, back to a pass, to a payload and
// back to a pass again.
func roundTrip(t *testing.T, c *Converter, p *Pass) (fromArchive, fromPayload *Pass) {
	t.Helper()
	ctx := context.Background()

	archive, err := c.EncodeArchive(ctx, p)
	require.NoError(t, err)
	fromArchive, err = c.DecodeArchive(ctx, archive)
	require.NoError(t, err)

	payload, err := c.EncodePayload(ctx, fromArchive)
	require.NoError(t, err)
	fromPayload, err = c.DecodePayload(ctx, payload)
	require.NoError(t, err)
	return fromArchive, fromPayload
}

func basePass(title string, details Details) *Pass {
	return &Pass{
		ID:              "rt-1",
		Title:           title,
		BackgroundColor: &Color{18, 52, 86},
		Barcode:         &Barcode{Format: BarcodeQR, Message: "RT-CODE"},
		Details:         details,
	}
}

func assertShared(t *testing.T, kind Kind, passes ...*Pass) {
	t.Helper()
	for _, p := range passes {
		assert.Equal(t, kind, p.Kind())
		assert.NotEmpty(t, p.Title)
		assert.Equal(t, "rt-1", p.ID)
		require.NotNil(t, p.Barcode)
		assert.Equal(t, Barcode{Format: BarcodeQR, Message: "RT-CODE"}, *p.Barcode)
		require.NotNil(t, p.BackgroundColor)
		assert.Equal(t, "#123456", p.BackgroundColor.Hex())
		assert.Equal(t, "rgb(18, 52, 86)", p.BackgroundColor.RGB())
	}
}

func TestRoundTripGeneric(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	a, b := roundTrip(t, c, basePass("Library card", &GenericDetails{Subheader: "Central branch"}))
	assertShared(t, KindGeneric, a, b)
	assert.Equal(t, "Central branch", a.Details.(*GenericDetails).Subheader)
	assert.Equal(t, "Central branch", b.Details.(*GenericDetails).Subheader)
	assert.Equal(t, "Library card", b.Title)
}

func TestRoundTripEvent(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	details := &EventDetails{
		Name:  "Open Air",
		Venue: "Lake Stage",
		Start: "2026-06-01T20:00:00+02:00",
		Seat:  "14",
		Gate:  "C",
	}
	a, b := roundTrip(t, c, basePass("Open Air", details))
	assertShared(t, KindEvent, a, b)
	for _, p := range []*Pass{a, b} {
		d := p.Details.(*EventDetails)
		assert.Equal(t, "Open Air", d.Name)
		assert.Equal(t, "Lake Stage", d.Venue)
		assert.Equal(t, "2026-06-01T20:00:00+02:00", d.Start)
		assert.Equal(t, "14", d.Seat)
		assert.Equal(t, "C", d.Gate)
	}
	assert.Empty(t, a.FrontContent, "hinted fields are consumed")
}

func TestRoundTripOffer(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints, OrganizationName: "Shop"})
	a, b := roundTrip(t, c, basePass("Spring sale", &OfferDetails{Title: "20% off shoes", Provider: "Shoe Corner"}))
	assertShared(t, KindOffer, a, b)
	for _, p := range []*Pass{a, b} {
		d := p.Details.(*OfferDetails)
		assert.Equal(t, "20% off shoes", d.Title)
		assert.Equal(t, "Shoe Corner", d.Provider)
	}
}

func TestOfferArchiveKeepsDescription(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	p := basePass("Spring sale", &OfferDetails{Title: "20% off shoes"})
	p.Description = "Spring promotion coupon"
	data, err := c.EncodeArchive(context.Background(), p)
	require.NoError(t, err)

	doc := passJSON(t, data)
	assert.Equal(t, "Spring promotion coupon", doc["description"])
	assert.Contains(t, string(archiveEntries(t, data)[archivePassFile]), `"20% off shoes"`)

	back, err := c.DecodeArchive(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "Spring promotion coupon", back.Description)
	assert.Equal(t, "20% off shoes", back.Details.(*OfferDetails).Title)
}

func TestRoundTripLoyalty(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	details := &LoyaltyDetails{
		ProgramName: "Coffee Club",
		AccountID:   "A-991",
		AccountName: "Ada",
		Points:      &LoyaltyPoints{Label: "Points", Balance: Balance{Value: "12.5", CurrencyCode: "eur"}},
	}
	a, b := roundTrip(t, c, basePass("Coffee Club", details))
	assertShared(t, KindLoyalty, a, b)
	for _, p := range []*Pass{a, b} {
		d := p.Details.(*LoyaltyDetails)
		assert.Equal(t, "Coffee Club", d.ProgramName)
		assert.Equal(t, "A-991", d.AccountID)
		assert.Equal(t, "Ada", d.AccountName)
		require.NotNil(t, d.Points)
		assert.Equal(t, Balance{Value: "12.5", CurrencyCode: "EUR"}, d.Points.Balance)
		assert.Nil(t, d.Secondary)
	}
}

func TestRoundTripLoyaltyPointBalance(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	details := &LoyaltyDetails{Points: &LoyaltyPoints{Label: "Points", Balance: Balance{Value: "340"}}}
	_, b := roundTrip(t, c, basePass("Stamps", details))
	d := b.Details.(*LoyaltyDetails)
	require.NotNil(t, d.Points)
	assert.Equal(t, Balance{Value: "340"}, d.Points.Balance)
	assert.Equal(t, "Stamps", d.ProgramName)
}

func TestRoundTripFlight(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	details := &FlightDetails{
		Carrier:          "LX",
		FlightNumber:     "318",
		Origin:           "ZRH",
		Destination:      "LHR",
		Gate:             "A52",
		Departure:        "2026-05-01T09:15:00",
		Passenger:        "Ada Lovelace",
		Seat:             "3C",
		ConfirmationCode: "Q7XK2P",
	}
	a, b := roundTrip(t, c, basePass("LX318", details))
	assertShared(t, KindFlight, a, b)
	for _, p := range []*Pass{a, b} {
		d := p.Details.(*FlightDetails)
		assert.Equal(t, *details, *d)
	}
}

func TestFlightArchiveNeedsDeparture(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	data := buildZip(t, map[string]string{"pass.json": `{"boardingPass": {"transitType": "PKTransitTypeAir"}}`})
	_, err := c.DecodeArchive(context.Background(), data)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, HintDepartureDateTime, perr.Field)

	data = buildZip(t, map[string]string{"pass.json": `{"relevantDate": "2026-05-01T09:15:00+02:00",
		"boardingPass": {"transitType": "PKTransitTypeAir"}}`})
	p, err := c.DecodeArchive(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T09:15:00", p.Details.(*FlightDetails).Departure)
}

func TestFlightArchiveRoundTripWithoutHints(t *testing.T) {
	c := newTestConverter(t, nil)
	details := &FlightDetails{Carrier: "LX", FlightNumber: "318", Departure: "2026-05-01T09:15:00"}
	data, err := c.EncodeArchive(context.Background(), basePass("LX318", details))
	require.NoError(t, err)

	p, err := c.DecodeArchive(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, KindFlight, p.Details.Kind())
	assert.Equal(t, "2026-05-01T09:15:00", p.Details.(*FlightDetails).Departure)
}

func TestSplitFlightNumber(t *testing.T) {
	tests := map[string][2]string{
		"LX 318": {"LX", "318"},
		"LX318":  {"LX", "318"},
		"U24512": {"U2", "4512"},
		"318":    {"", "318"},
	}
	for in, want := range tests {
		carrier, number := splitFlightNumber(in)
		assert.Equal(t, want, [2]string{carrier, number}, in)
	}
}

func TestRoundTripTransit(t *testing.T) {
	c := newTestConverter(t, &Config{Hints: roundTripHints})
	details := &TransitDetails{
		Type:            TransitBus,
		OriginName:      "Basel",
		DestinationName: "Bern",
		Departure:       "2026-07-04T07:30:00",
		Passenger:       "Ada",
	}
	a, b := roundTrip(t, c, basePass("Basel - Bern", details))
	assertShared(t, KindTransit, a, b)
	for _, p := range []*Pass{a, b} {
		assert.Equal(t, *details, *p.Details.(*TransitDetails))
	}
	assert.Equal(t, "Basel - Bern", b.Title)
}

func TestTransitTypeMapping(t *testing.T) {
	tests := []struct {
		archive string
		want    TransitType
	}{
		{transitTypeBus, TransitBus},
		{transitTypeTrain, TransitRail},
		{transitTypeBoat, TransitFerry},
		{transitTypeGeneric, TransitOther},
		{"", TransitOther},
	}
	c := newTestConverter(t, nil)
	for _, tt := range tests {
		doc := `{"boardingPass": {"transitType": "` + tt.archive + `"}}`
		p, err := c.DecodeArchive(context.Background(), buildZip(t, map[string]string{"pass.json": doc}))
		require.NoError(t, err, tt.archive)
		assert.Equal(t, tt.want, p.Details.(*TransitDetails).Type, tt.archive)
	}
	assert.Equal(t, transitTypeTrain, TransitTram.archiveName())
	assert.Equal(t, transitTypeGeneric, TransitOther.archiveName())
}

func TestFlightPayloadRequiresDeparture(t *testing.T) {
	c := newTestConverter(t, nil)
	payload, err := ParsePayload([]byte(`{"flightClasses":[{"id":"1.f"}],"flightObjects":[{"id":"1.o"}]}`))
	require.NoError(t, err)
	_, err = c.DecodePayload(context.Background(), payload)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeMissingRequiredField, perr.Code)
	assert.Equal(t, HintDepartureDateTime, perr.Field)
}
