package passbridge

// Kind names one of the six pass variants.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindEvent   Kind = "event"
	KindOffer   Kind = "offer"
	KindLoyalty Kind = "loyalty"
	KindFlight  Kind = "flight"
	KindTransit Kind = "transit"
)

// Field is one key/label/value item of front or back content.
type Field struct {
	Key          string
	Label        string
	Value        string
	CurrencyCode string
	DateStyle    DateStyle
}

// Row is one line of front content.
type Row []*Field

// Content is the generic, non-semantic part of a pass.
type Content struct {
	Front []Row
	Back  []*Field
}

// Image is either raw image bytes or an externally resolvable reference.
type Image struct {
	Data []byte
	URI  string
}

func (i *Image) empty() bool {
	return i == nil || (len(i.Data) == 0 && i.URI == "")
}

// Pass is the intermediate representation shared by both formats. Details
// holds the variant and its type-specific attributes.
type Pass struct {
	ID          string
	TypeID      string
	Title       string
	Description string
	Issuer      string

	Barcode         *Barcode
	BackgroundColor *Color

	FrontContent []Row
	BackContent  []*Field
	Strings      Localizations
	Logo         *Image

	WebServiceURL       string
	AuthenticationToken string

	Details Details
}

// Kind returns the variant of the pass.
func (p *Pass) Kind() Kind {
	if p.Details == nil {
		return KindGeneric
	}
	return p.Details.Kind()
}

// Details is implemented by every variant. Each method handles only the
// attributes the variant adds; shared fields are handled by the codecs.
type Details interface {
	Kind() Kind
	decodeArchive(dc *archiveDecoding) error
	encodeArchive(ec *archiveEncoding) error
	decodePayload(dc *payloadDecoding) error
	encodePayload(ec *payloadEncoding) error
}

// descriptor binds a variant to its immutable schema keys.
type descriptor struct {
	kind Kind
	// archiveStyle is the pass.json content-field key.
	archiveStyle string
	// payloadPrefix roots the <prefix>Classes/<prefix>Objects keys.
	payloadPrefix string
	// classIssuer is set when the payload class carries issuerName,
	// reviewStatus and hexBackgroundColor.
	classIssuer bool
	// matches narrows archive selection beyond the content-field key.
	matches func(style *archiveStyle) bool
	newDetails func() Details
}

// descriptors is in archive selection priority order: narrow predicates
// come before broad ones sharing the same content-field key.
var descriptors = []descriptor{
	{
		kind: KindFlight, archiveStyle: styleBoardingPass, payloadPrefix: "flight", classIssuer: true,
		matches:    func(s *archiveStyle) bool { return s.TransitType == transitTypeAir },
		newDetails: func() Details { return &FlightDetails{} },
	},
	{
		kind: KindTransit, archiveStyle: styleBoardingPass, payloadPrefix: "transit", classIssuer: true,
		newDetails: func() Details { return &TransitDetails{} },
	},
	{
		kind: KindEvent, archiveStyle: styleEventTicket, payloadPrefix: "eventTicket", classIssuer: true,
		newDetails: func() Details { return &EventDetails{} },
	},
	{
		kind: KindOffer, archiveStyle: styleCoupon, payloadPrefix: "offer", classIssuer: true,
		newDetails: func() Details { return &OfferDetails{} },
	},
	{
		kind: KindLoyalty, archiveStyle: styleStoreCard, payloadPrefix: "loyalty", classIssuer: true,
		newDetails: func() Details { return &LoyaltyDetails{} },
	},
	{
		kind: KindGeneric, archiveStyle: styleGeneric, payloadPrefix: "generic",
		newDetails: func() Details { return &GenericDetails{} },
	},
}

func descriptorFor(kind Kind) (descriptor, bool) {
	for _, d := range descriptors {
		if d.kind == kind {
			return d, true
		}
	}
	return descriptor{}, false
}

func descriptorForPrefix(prefix string) (descriptor, bool) {
	for _, d := range descriptors {
		if d.payloadPrefix == prefix {
			return d, true
		}
	}
	return descriptor{}, false
}

// selectArchiveDescriptor returns the first descriptor whose content key is
// present and whose predicate, if any, holds.
func selectArchiveDescriptor(doc *archiveDocument) (descriptor, *archiveStyle, bool) {
	for _, d := range descriptors {
		style := doc.style(d.archiveStyle)
		if style == nil {
			continue
		}
		if d.matches != nil && !d.matches(style) {
			continue
		}
		return d, style, true
	}
	return descriptor{}, nil, false
}
