package passbridge

import (
	"strings"
	"unicode"
)

// FlightDetails describes an air boarding pass.
type FlightDetails struct {
	Carrier          string
	FlightNumber     string
	Origin           string
	Destination      string
	Gate             string
	Departure        string
	Passenger        string
	Seat             string
	BoardingGroup    string
	ConfirmationCode string
}

// Kind reports KindFlight.
func (d *FlightDetails) Kind() Kind { return KindFlight }

type flightHeader struct {
	Carrier struct {
		CarrierIataCode string `json:"carrierIataCode,omitempty"`
	} `json:"carrier"`
	FlightNumber string `json:"flightNumber,omitempty"`
}

type airport struct {
	AirportIataCode string `json:"airportIataCode,omitempty"`
	Gate            string `json:"gate,omitempty"`
}

type boardingInfo struct {
	SeatNumber    string `json:"seatNumber,omitempty"`
	BoardingGroup string `json:"boardingGroup,omitempty"`
}

type reservationInfo struct {
	ConfirmationCode string `json:"confirmationCode"`
}

// splitFlightNumber splits "LX 318" or "LX318" into carrier and number.
func splitFlightNumber(s string) (carrier, number string) {
	s = strings.TrimSpace(s)
	if head, tail, ok := strings.Cut(s, " "); ok {
		return head, strings.TrimSpace(tail)
	}
	for i, r := range s {
		if i >= 2 && unicode.IsDigit(r) {
			if strings.ContainsFunc(s[:i], unicode.IsLetter) {
				return s[:i], s[i:]
			}
			break
		}
	}
	return "", s
}

func (d *FlightDetails) decodeArchive(dc *archiveDecoding) error {
	h := dc.hints
	d.Carrier = h.Value(HintCarrier, "")
	d.FlightNumber = h.Value(HintFlightNumber, "")
	if d.Carrier == "" && d.FlightNumber != "" {
		d.Carrier, d.FlightNumber = splitFlightNumber(d.FlightNumber)
	}
	departure, ok := localDateTime(h.Value(HintDepartureDateTime, dc.doc.RelevantDate))
	if !ok {
		return missingField(HintDepartureDateTime)
	}
	d.Departure = departure
	d.Origin = h.Value(HintOrigin, "")
	d.Destination = h.Value(HintDestination, "")
	d.Gate = h.Value(HintGate, "")
	d.Passenger = h.Value(HintPassengerName, "")
	d.Seat = h.Value(HintSeatNumber, "")
	d.BoardingGroup = h.Value(HintBoardingGroup, "")
	d.ConfirmationCode = h.Value(HintConfirmationCode, "")
	return nil
}

func (d *FlightDetails) encodeArchive(ec *archiveEncoding) error {
	ec.style.TransitType = transitTypeAir
	ec.setPrimary(
		ec.field(HintOrigin, "origin", "From", ec.placeholder(d.Origin)),
		ec.field(HintDestination, "destination", "To", ec.placeholder(d.Destination)),
	)

	departure := ec.field(HintDepartureDateTime, "departure", "Departure", d.Departure)
	departure.DateStyle = DateStyleDateTime
	var flight []*Field
	if _, separate := ec.cfg.Hints[HintCarrier]; separate {
		flight = append(flight,
			ec.field(HintCarrier, "carrier", "Carrier", d.Carrier),
			ec.field(HintFlightNumber, "flight", "Flight", d.FlightNumber))
	} else {
		flight = append(flight, ec.field(HintFlightNumber, "flight", "Flight", d.Carrier+d.FlightNumber))
	}
	ec.addRow(append(flight, departure, ec.field(HintGate, "gate", "Gate", d.Gate))...)
	ec.addRow(
		ec.field(HintPassengerName, "passenger", "Passenger", d.Passenger),
		ec.field(HintSeatNumber, "seat", "Seat", d.Seat),
		ec.field(HintBoardingGroup, "group", "Group", d.BoardingGroup),
	)
	ec.addRow(ec.field(HintConfirmationCode, "confirmation", "Confirmation", d.ConfirmationCode))
	return nil
}

func (d *FlightDetails) decodePayload(dc *payloadDecoding) error {
	if !dc.class.extras.get("localScheduledDepartureDateTime", &d.Departure) || d.Departure == "" {
		return missingField(HintDepartureDateTime)
	}
	var header flightHeader
	if dc.class.extras.get("flightHeader", &header) {
		d.Carrier = header.Carrier.CarrierIataCode
		d.FlightNumber = header.FlightNumber
	}
	var origin, destination airport
	if dc.class.extras.get("origin", &origin) {
		d.Origin, d.Gate = origin.AirportIataCode, origin.Gate
	}
	if dc.class.extras.get("destination", &destination) {
		d.Destination = destination.AirportIataCode
	}

	dc.object.extras.get("passengerName", &d.Passenger)
	var boarding boardingInfo
	if dc.object.extras.get("boardingAndSeatingInfo", &boarding) {
		d.Seat, d.BoardingGroup = boarding.SeatNumber, boarding.BoardingGroup
	}
	var reservation reservationInfo
	if dc.object.extras.get("reservationInfo", &reservation) {
		d.ConfirmationCode = reservation.ConfirmationCode
	}
	dc.pass.Title = firstNonEmpty(dc.pass.Title, d.Carrier+d.FlightNumber)
	return nil
}

func (d *FlightDetails) encodePayload(ec *payloadEncoding) error {
	var header flightHeader
	header.Carrier.CarrierIataCode = ec.text(d.Carrier)
	header.FlightNumber = ec.text(d.FlightNumber)
	ec.class.extras.set("flightHeader", header)
	ec.class.extras.set("origin", airport{AirportIataCode: ec.text(d.Origin), Gate: d.Gate})
	ec.class.extras.set("destination", airport{AirportIataCode: ec.text(d.Destination)})
	ec.class.extras.set("localScheduledDepartureDateTime", d.Departure)

	ec.object.extras.set("passengerName", ec.text(d.Passenger))
	if d.Seat != "" || d.BoardingGroup != "" {
		ec.object.extras.set("boardingAndSeatingInfo", boardingInfo{SeatNumber: d.Seat, BoardingGroup: d.BoardingGroup})
	}
	ec.object.extras.set("reservationInfo", reservationInfo{ConfirmationCode: ec.text(d.ConfirmationCode)})
	return nil
}
