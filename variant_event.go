package passbridge

// EventDetails describes an event ticket.
type EventDetails struct {
	Name       string
	Venue      string
	Start      string
	End        string
	Seat       string
	Row        string
	Section    string
	Gate       string
	HolderName string
}

// Kind reports KindEvent.
func (d *EventDetails) Kind() Kind { return KindEvent }

type eventVenue struct {
	Name *LocalizedString `json:"name,omitempty"`
}

type eventDateTime struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type eventSeatInfo struct {
	Seat    *LocalizedString `json:"seat,omitempty"`
	Row     *LocalizedString `json:"row,omitempty"`
	Section *LocalizedString `json:"section,omitempty"`
	Gate    *LocalizedString `json:"gate,omitempty"`
}

func (d *EventDetails) decodeArchive(dc *archiveDecoding) error {
	h := dc.hints
	d.Name = h.Value(HintEventName, dc.text.resolve(dc.doc.LogoText))
	if d.Name == "" {
		return missingField(HintEventName)
	}
	d.Venue = h.Value(HintVenue, "")
	if start := h.Value(HintStartDateTime, dc.doc.RelevantDate); start != "" {
		if _, _, ok := parseDateTime(start); ok {
			d.Start = start
		}
	}
	d.Seat = h.Value(HintSeat, "")
	d.Row = h.Value(HintRow, "")
	d.Section = h.Value(HintSection, "")
	d.Gate = h.Value(HintGate, "")
	d.HolderName = h.Value(HintHolderName, "")
	return nil
}

func (d *EventDetails) encodeArchive(ec *archiveEncoding) error {
	if _, hasOffset, ok := parseDateTime(d.Start); ok && hasOffset {
		ec.doc.RelevantDate = d.Start
	}
	start := ec.field(HintStartDateTime, "start", "Date", d.Start)
	start.DateStyle = DateStyleDateTime
	ec.addRow(ec.field(HintVenue, "venue", "Venue", d.Venue), start)
	ec.addRow(
		ec.field(HintSection, "section", "Section", d.Section),
		ec.field(HintRow, "row", "Row", d.Row),
		ec.field(HintSeat, "seat", "Seat", d.Seat),
		ec.field(HintGate, "gate", "Gate", d.Gate),
	)
	ec.addRow(ec.field(HintHolderName, "holder", "Ticket holder", d.HolderName))
	return nil
}

func (d *EventDetails) decodePayload(dc *payloadDecoding) error {
	var name LocalizedString
	if dc.class.extras.get("eventName", &name) {
		d.Name = dc.loc.decode(&name, "")
	}
	if d.Name == "" {
		return missingField(HintEventName)
	}
	dc.pass.Title = d.Name

	var venue eventVenue
	if dc.class.extras.get("venue", &venue) {
		d.Venue = dc.loc.decode(venue.Name, "")
	}
	var when eventDateTime
	if dc.class.extras.get("dateTime", &when) {
		d.Start, d.End = when.Start, when.End
	}
	var logo payloadImage
	if dc.class.extras.get("logo", &logo) && logo.uri() != "" {
		dc.pass.Logo = &Image{URI: logo.uri()}
	}

	var seat eventSeatInfo
	if dc.object.extras.get("seatInfo", &seat) {
		d.Seat = dc.loc.decode(seat.Seat, "")
		d.Row = dc.loc.decode(seat.Row, "")
		d.Section = dc.loc.decode(seat.Section, "")
		d.Gate = dc.loc.decode(seat.Gate, "")
	}
	dc.object.extras.get("ticketHolderName", &d.HolderName)
	return nil
}

func (d *EventDetails) encodePayload(ec *payloadEncoding) error {
	ec.class.extras.set("eventName", ec.loc.encode(ec.text(firstNonEmpty(d.Name, ec.pass.Title))))
	if d.Venue != "" {
		ec.class.extras.set("venue", eventVenue{Name: ec.loc.encode(d.Venue)})
	}
	if d.Start != "" || d.End != "" {
		ec.class.extras.set("dateTime", eventDateTime{Start: d.Start, End: d.End})
	}
	if ec.logo != nil {
		ec.class.extras.set("logo", ec.logo)
	}

	seat := eventSeatInfo{
		Seat:    ec.loc.encode(d.Seat),
		Row:     ec.loc.encode(d.Row),
		Section: ec.loc.encode(d.Section),
		Gate:    ec.loc.encode(d.Gate),
	}
	if seat != (eventSeatInfo{}) {
		ec.object.extras.set("seatInfo", seat)
	}
	if d.HolderName != "" {
		ec.object.extras.set("ticketHolderName", d.HolderName)
	}
	return nil
}
