package passbridge

import "strings"

// Hint names understood by the variants.
const (
	HintTitle             = "title"
	HintSubheader         = "subheader"
	HintEventName         = "eventName"
	HintVenue             = "venue"
	HintStartDateTime     = "startDateTime"
	HintSeat              = "seat"
	HintRow               = "row"
	HintSection           = "section"
	HintGate              = "gate"
	HintHolderName        = "holderName"
	HintOfferTitle        = "offerTitle"
	HintProvider          = "provider"
	HintProgramName       = "programName"
	HintAccountID         = "accountId"
	HintAccountName       = "accountName"
	HintBalance           = "balance"
	HintSecondaryBalance  = "secondaryBalance"
	HintCarrier           = "carrier"
	HintFlightNumber      = "flightNumber"
	HintOrigin            = "origin"
	HintDestination       = "destination"
	HintDepartureDateTime = "departureDateTime"
	HintPassengerName     = "passengerName"
	HintSeatNumber        = "seatNumber"
	HintBoardingGroup     = "boardingGroup"
	HintConfirmationCode  = "confirmationCode"
	HintOriginName        = "originName"
	HintDestinationName   = "destinationName"
	HintArrivalDateTime   = "arrivalDateTime"
)

// HintResolver recovers semantic fields from archive content by label.
// It owns the remaining content: a field matched by a hint is removed from
// it once and cached under its archive label, so later lookups through any
// hint naming the same label return the same *Field without rescanning.
type HintResolver struct {
	hints     map[string]string
	remaining Content
	resolved  map[string]*Field
}

// NewHintResolver takes ownership of content. hints maps hint names to
// archive field labels.
func NewHintResolver(hints map[string]string, content Content) *HintResolver {
	return &HintResolver{
		hints:     hints,
		remaining: content,
		resolved:  map[string]*Field{},
	}
}

// Field returns the field matched by the hint, or nil.
func (h *HintResolver) Field(hint string) *Field {
	label, ok := h.hints[hint]
	if !ok || label == "" {
		return nil
	}
	if field, ok := h.resolved[label]; ok {
		return field
	}
	field := h.take(label)
	h.resolved[label] = field
	return field
}

// Value returns the trimmed value of the hinted field, or def when no
// field matched or its value is blank.
func (h *HintResolver) Value(hint, def string) string {
	field := h.Field(hint)
	if field == nil {
		return def
	}
	if v := strings.TrimSpace(field.Value); v != "" {
		return v
	}
	return def
}

// Label returns the archive label configured for hint, or def.
func (h *HintResolver) Label(hint, def string) string {
	if label, ok := h.hints[hint]; ok && label != "" {
		return label
	}
	return def
}

// Remaining returns the content left after hint consumption, without
// empty rows.
func (h *HintResolver) Remaining() Content {
	out := Content{Back: h.remaining.Back}
	for _, row := range h.remaining.Front {
		if len(row) > 0 {
			out.Front = append(out.Front, row)
		}
	}
	return out
}

func (h *HintResolver) take(label string) *Field {
	for r, row := range h.remaining.Front {
		for i, field := range row {
			if field.Label == label {
				h.remaining.Front[r] = append(row[:i:i], row[i+1:]...)
				return field
			}
		}
	}
	for i, field := range h.remaining.Back {
		if field.Label == label {
			h.remaining.Back = append(h.remaining.Back[:i:i], h.remaining.Back[i+1:]...)
			return field
		}
	}
	return nil
}
