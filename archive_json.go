package passbridge

import (
	"bytes"
	"encoding/json"
	"regexp"
)

const (
	styleGeneric      = "generic"
	styleEventTicket  = "eventTicket"
	styleCoupon       = "coupon"
	styleStoreCard    = "storeCard"
	styleBoardingPass = "boardingPass"

	transitTypeAir     = "PKTransitTypeAir"
	transitTypeBus     = "PKTransitTypeBus"
	transitTypeTrain   = "PKTransitTypeTrain"
	transitTypeBoat    = "PKTransitTypeBoat"
	transitTypeGeneric = "PKTransitTypeGeneric"

	archiveMessageEncoding = "iso-8859-1"
)

// archiveDocument is pass.json.
type archiveDocument struct {
	FormatVersion       int              `json:"formatVersion"`
	PassTypeIdentifier  string           `json:"passTypeIdentifier"`
	SerialNumber        string           `json:"serialNumber"`
	TeamIdentifier      string           `json:"teamIdentifier"`
	OrganizationName    string           `json:"organizationName"`
	Description         string           `json:"description"`
	LogoText            string           `json:"logoText,omitempty"`
	ForegroundColor     string           `json:"foregroundColor,omitempty"`
	BackgroundColor     string           `json:"backgroundColor,omitempty"`
	LabelColor          string           `json:"labelColor,omitempty"`
	Barcode             *archiveBarcode  `json:"barcode,omitempty"`
	Barcodes            []archiveBarcode `json:"barcodes,omitempty"`
	RelevantDate        string           `json:"relevantDate,omitempty"`
	WebServiceURL       string           `json:"webServiceURL,omitempty"`
	AuthenticationToken string           `json:"authenticationToken,omitempty"`

	Generic      *archiveStyle `json:"generic,omitempty"`
	EventTicket  *archiveStyle `json:"eventTicket,omitempty"`
	Coupon       *archiveStyle `json:"coupon,omitempty"`
	StoreCard    *archiveStyle `json:"storeCard,omitempty"`
	BoardingPass *archiveStyle `json:"boardingPass,omitempty"`
}

func (d *archiveDocument) style(key string) *archiveStyle {
	switch key {
	case styleGeneric:
		return d.Generic
	case styleEventTicket:
		return d.EventTicket
	case styleCoupon:
		return d.Coupon
	case styleStoreCard:
		return d.StoreCard
	case styleBoardingPass:
		return d.BoardingPass
	}
	return nil
}

func (d *archiveDocument) setStyle(key string, s *archiveStyle) {
	switch key {
	case styleGeneric:
		d.Generic = s
	case styleEventTicket:
		d.EventTicket = s
	case styleCoupon:
		d.Coupon = s
	case styleStoreCard:
		d.StoreCard = s
	case styleBoardingPass:
		d.BoardingPass = s
	}
}

// archiveStyle is the content-field bucket set.
type archiveStyle struct {
	HeaderFields    []archiveField `json:"headerFields,omitempty"`
	PrimaryFields   []archiveField `json:"primaryFields,omitempty"`
	SecondaryFields []archiveField `json:"secondaryFields,omitempty"`
	AuxiliaryFields []archiveField `json:"auxiliaryFields,omitempty"`
	BackFields      []archiveField `json:"backFields,omitempty"`
	TransitType     string         `json:"transitType,omitempty"`
}

type archiveField struct {
	Key           string     `json:"key"`
	Label         string     `json:"label,omitempty"`
	Value         fieldValue `json:"value"`
	CurrencyCode  string     `json:"currencyCode,omitempty"`
	DateStyle     string     `json:"dateStyle,omitempty"`
	TimeStyle     string     `json:"timeStyle,omitempty"`
	ChangeMessage string     `json:"changeMessage,omitempty"`
}

type archiveBarcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// fieldValue holds a field value that is either a JSON string or number.
type fieldValue struct {
	text   string
	number bool
}

// jsonNumber matches the number grammar of RFC 8259.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// isJSONNumber reports whether s can be written as a bare JSON number.
func isJSONNumber(s string) bool {
	return jsonNumber.MatchString(s)
}

func (v fieldValue) MarshalJSON() ([]byte, error) {
	if v.number && isJSONNumber(v.text) {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

func (v *fieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		v.number = false
		return json.Unmarshal(data, &v.text)
	}
	if bytes.Equal(data, []byte("null")) {
		*v = fieldValue{}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Booleans and other scalars keep their literal text.
		v.text, v.number = string(data), false
		return nil
	}
	v.text, v.number = n.String(), true
	return nil
}
