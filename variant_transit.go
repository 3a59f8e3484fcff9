package passbridge

// TransitType is the payload transit mode.
type TransitType string

const (
	TransitBus   TransitType = "BUS"
	TransitRail  TransitType = "RAIL"
	TransitTram  TransitType = "TRAM"
	TransitFerry TransitType = "FERRY"
	TransitOther TransitType = "OTHER"
)

var transitFromArchive = map[string]TransitType{
	transitTypeBus:     TransitBus,
	transitTypeTrain:   TransitRail,
	transitTypeBoat:    TransitFerry,
	transitTypeGeneric: TransitOther,
}

func (t TransitType) archiveName() string {
	switch t {
	case TransitBus:
		return transitTypeBus
	case TransitRail, TransitTram:
		return transitTypeTrain
	case TransitFerry:
		return transitTypeBoat
	}
	return transitTypeGeneric
}

// TransitDetails describes a non-air boarding pass.
type TransitDetails struct {
	Type            TransitType
	OriginName      string
	DestinationName string
	Departure       string
	Arrival         string
	Passenger       string
}

// Kind reports KindTransit.
func (d *TransitDetails) Kind() Kind { return KindTransit }

type ticketLeg struct {
	OriginName        *LocalizedString `json:"originName,omitempty"`
	DestinationName   *LocalizedString `json:"destinationName,omitempty"`
	DepartureDateTime string           `json:"departureDateTime,omitempty"`
	ArrivalDateTime   string           `json:"arrivalDateTime,omitempty"`
}

func (d *TransitDetails) decodeArchive(dc *archiveDecoding) error {
	h := dc.hints
	d.Type = TransitOther
	if t, ok := transitFromArchive[dc.style.TransitType]; ok {
		d.Type = t
	}
	d.OriginName = h.Value(HintOriginName, "")
	d.DestinationName = h.Value(HintDestinationName, "")
	d.Departure, _ = localDateTime(h.Value(HintDepartureDateTime, dc.doc.RelevantDate))
	d.Arrival, _ = localDateTime(h.Value(HintArrivalDateTime, ""))
	d.Passenger = h.Value(HintPassengerName, "")
	return nil
}

func (d *TransitDetails) encodeArchive(ec *archiveEncoding) error {
	ec.style.TransitType = d.Type.archiveName()
	if d.OriginName != "" || d.DestinationName != "" {
		ec.setPrimary(
			ec.field(HintOriginName, "origin", "From", ec.placeholder(d.OriginName)),
			ec.field(HintDestinationName, "destination", "To", ec.placeholder(d.DestinationName)),
		)
	}
	departure := ec.field(HintDepartureDateTime, "departure", "Departure", d.Departure)
	departure.DateStyle = DateStyleDateTime
	arrival := ec.field(HintArrivalDateTime, "arrival", "Arrival", d.Arrival)
	arrival.DateStyle = DateStyleDateTime
	ec.addRow(departure, arrival)
	ec.addRow(ec.field(HintPassengerName, "passenger", "Passenger", d.Passenger))
	return nil
}

func (d *TransitDetails) decodePayload(dc *payloadDecoding) error {
	var transitType string
	d.Type = TransitOther
	if dc.class.extras.get("transitType", &transitType) {
		switch t := TransitType(transitType); t {
		case TransitBus, TransitRail, TransitTram, TransitFerry, TransitOther:
			d.Type = t
		}
	}
	var logo payloadImage
	if dc.class.extras.get("logo", &logo) && logo.uri() != "" {
		dc.pass.Logo = &Image{URI: logo.uri()}
	}

	var leg ticketLeg
	if dc.object.extras.get("ticketLeg", &leg) {
		d.OriginName = dc.loc.decode(leg.OriginName, "")
		d.DestinationName = dc.loc.decode(leg.DestinationName, "")
		d.Departure, d.Arrival = leg.DepartureDateTime, leg.ArrivalDateTime
	}
	dc.object.extras.get("passengerNames", &d.Passenger)
	if d.OriginName != "" && d.DestinationName != "" {
		dc.pass.Title = firstNonEmpty(dc.pass.Title, d.OriginName+" - "+d.DestinationName)
	}
	return nil
}

func (d *TransitDetails) encodePayload(ec *payloadEncoding) error {
	ec.class.extras.set("transitType", string(firstNonEmptyType(d.Type, TransitOther)))
	if ec.logo != nil {
		ec.class.extras.set("logo", ec.logo)
	}

	ec.object.extras.set("tripType", "ONE_WAY")
	if d.Passenger != "" {
		ec.object.extras.set("passengerType", "SINGLE_PASSENGER")
		ec.object.extras.set("passengerNames", d.Passenger)
	}
	leg := ticketLeg{
		OriginName:        ec.loc.encode(d.OriginName),
		DestinationName:   ec.loc.encode(d.DestinationName),
		DepartureDateTime: d.Departure,
		ArrivalDateTime:   d.Arrival,
	}
	if leg != (ticketLeg{}) {
		ec.object.extras.set("ticketLeg", leg)
	}
	return nil
}

func firstNonEmptyType(t, def TransitType) TransitType {
	if t == "" {
		return def
	}
	return t
}
