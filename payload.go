package passbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	classesSuffix = "Classes"
	objectsSuffix = "Objects"

	reviewStatusUnderReview = "UNDER_REVIEW"
	objectStateActive       = "ACTIVE"

	// maxTemplateRows and maxRowItems are the destination template limits.
	maxTemplateRows = 3
	maxRowItems     = 3
)

// Payload is one class and one object of a single variant. Class is nil
// once it has been stripped for persistence elsewhere.
type Payload struct {
	Prefix string
	Class  json.RawMessage
	Object json.RawMessage
}

// ParsePayload reads a `{"<prefix>Classes": [...], "<prefix>Objects": [...]}`
// document.
func ParsePayload(data []byte) (Payload, error) {
	var doc map[string][]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Payload{}, newError(ErrCodeInvalidPayload, fmt.Errorf("parse payload: %w", err))
	}
	var p Payload
	for key, list := range doc {
		var prefix string
		var target *json.RawMessage
		switch {
		case strings.HasSuffix(key, classesSuffix):
			prefix, target = strings.TrimSuffix(key, classesSuffix), &p.Class
		case strings.HasSuffix(key, objectsSuffix):
			prefix, target = strings.TrimSuffix(key, objectsSuffix), &p.Object
		default:
			continue
		}
		if _, ok := descriptorForPrefix(prefix); !ok {
			return Payload{}, newError(ErrCodeUnsupportedVariant, fmt.Errorf("payload key %q", key))
		}
		if p.Prefix != "" && p.Prefix != prefix {
			return Payload{}, newError(ErrCodeInvalidPayload, fmt.Errorf("payload mixes %q and %q", p.Prefix, prefix))
		}
		if len(list) != 1 {
			return Payload{}, newError(ErrCodeInvalidPayload, fmt.Errorf("payload key %q must hold exactly one entry, got %d", key, len(list)))
		}
		p.Prefix = prefix
		*target = list[0]
	}
	if p.Prefix == "" {
		return Payload{}, newError(ErrCodeUnsupportedVariant, errors.New("payload has no class or object list"))
	}
	return p, nil
}

// MarshalJSON writes the payload document. An absent class is omitted.
func (p Payload) MarshalJSON() ([]byte, error) {
	doc := map[string][]json.RawMessage{}
	if len(p.Class) > 0 {
		doc[p.Prefix+classesSuffix] = []json.RawMessage{p.Class}
	}
	if len(p.Object) > 0 {
		doc[p.Prefix+objectsSuffix] = []json.RawMessage{p.Object}
	}
	return json.Marshal(doc)
}

// objectID returns the id of the payload object.
func (p Payload) objectID() (string, error) {
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(p.Object, &ref); err != nil {
		return "", err
	}
	return ref.ID, nil
}

// payloadDecoding is what a variant sees while decoding a payload.
type payloadDecoding struct {
	pass   *Pass
	class  *payloadClass
	object *payloadObject
	loc    localizer
	cfg    *Config
}

// payloadEncoding is what a variant sees while encoding a payload.
type payloadEncoding struct {
	pass   *Pass
	class  *payloadClass
	object *payloadObject
	loc    localizer
	cfg    *Config
	// logo is the hosted logo, nil when it could not be hosted.
	logo *payloadImage
}

// text returns value or the configured placeholder for required strings.
func (ec *payloadEncoding) text(value string) string {
	if strings.TrimSpace(value) == "" {
		return ec.cfg.EmptyValue
	}
	return value
}

// DecodePayload builds a Pass from a class and object payload.
func (c *Converter) DecodePayload(ctx context.Context, payload Payload) (*Pass, error) {
	desc, ok := descriptorForPrefix(payload.Prefix)
	if !ok {
		return nil, newError(ErrCodeUnsupportedVariant, fmt.Errorf("payload prefix %q", payload.Prefix))
	}
	var class payloadClass
	var object payloadObject
	if len(payload.Class) > 0 {
		if err := json.Unmarshal(payload.Class, &class); err != nil {
			return nil, newError(ErrCodeInvalidPayload, fmt.Errorf("parse class: %w", err))
		}
	}
	if len(payload.Object) == 0 {
		return nil, newError(ErrCodeInvalidPayload, errors.New("payload has no object"))
	}
	if err := json.Unmarshal(payload.Object, &object); err != nil {
		return nil, newError(ErrCodeInvalidPayload, fmt.Errorf("parse object: %w", err))
	}

	p := &Pass{
		ID:      c.idSuffix(object.ID),
		TypeID:  c.idSuffix(firstNonEmpty(class.ID, object.ClassID)),
		Issuer:  firstNonEmpty(class.IssuerName, c.cfg.OrganizationName),
		Strings: Localizations{},
	}
	loc := localizer{defaultLanguage: c.cfg.DefaultLanguage, strings: p.Strings}

	if object.Barcode != nil {
		if format, ok := barcodeFromPayload(object.Barcode.Type); ok && object.Barcode.Value != "" {
			p.Barcode = &Barcode{Format: format, Message: object.Barcode.Value, AltText: object.Barcode.AlternateText}
		} else {
			c.log(ctx).Warn("ignoring payload barcode", "type", object.Barcode.Type)
		}
	}
	if hex := firstNonEmpty(object.HexBackgroundColor, class.HexBackgroundColor); hex != "" {
		if color, err := ParseColor(hex); err == nil {
			p.BackgroundColor = &color
		} else {
			c.log(ctx).Warn("ignoring payload background color", "value", hex, "error", err)
		}
	}
	p.FrontContent = decodeFrontContent(&class, &object, loc)
	p.BackContent = decodeBackContent(&object, loc)

	details := desc.newDetails()
	dc := &payloadDecoding{pass: p, class: &class, object: &object, loc: loc, cfg: c.cfg}
	if err := details.decodePayload(dc); err != nil {
		return nil, err
	}
	p.Details = details
	if p.Title == "" {
		p.Title = p.Issuer
	}
	if p.Description == "" {
		p.Description = p.Title
	}
	return p, nil
}

func decodeFrontContent(class *payloadClass, object *payloadObject, loc localizer) []Row {
	modules := make(map[string]*textModule, len(object.TextModulesData))
	for i := range object.TextModulesData {
		modules[object.TextModulesData[i].ID] = &object.TextModulesData[i]
	}
	toField := func(m *textModule) *Field {
		return &Field{
			Key:   m.ID,
			Label: loc.decode(m.LocalizedHeader, m.Header),
			Value: loc.decode(m.LocalizedBody, m.Body),
		}
	}

	var rows []Row
	referenced := map[string]bool{}
	if info := class.ClassTemplateInfo; info != nil && info.CardTemplateOverride != nil {
		for _, tmpl := range info.CardTemplateOverride.CardRowTemplateInfos {
			var row Row
			for _, item := range tmpl.items() {
				id, ok := item.moduleID()
				if !ok {
					continue
				}
				if m, ok := modules[id]; ok && !referenced[id] {
					referenced[id] = true
					row = append(row, toField(m))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
	}
	for i := range object.TextModulesData {
		m := &object.TextModulesData[i]
		if !referenced[m.ID] {
			rows = append(rows, Row{toField(m)})
		}
	}
	return rows
}

func decodeBackContent(object *payloadObject, loc localizer) []*Field {
	if object.InfoModuleData == nil {
		return nil
	}
	var back []*Field
	for _, row := range object.InfoModuleData.LabelValueRows {
		for _, col := range row.Columns {
			back = append(back, &Field{
				Key:   fmt.Sprintf("back%d", len(back)+1),
				Label: loc.decode(col.LocalizedLabel, col.Label),
				Value: loc.decode(col.LocalizedValue, col.Value),
			})
		}
	}
	return back
}

// EncodePayload builds the class and object payload for the pass.
func (c *Converter) EncodePayload(ctx context.Context, p *Pass) (Payload, error) {
	desc, ok := descriptorFor(p.Kind())
	if !ok {
		return Payload{}, newError(ErrCodeUnsupportedVariant, fmt.Errorf("kind %q", p.Kind()))
	}
	details := p.Details
	if details == nil {
		details = desc.newDetails()
	}
	strs := p.Strings
	if strs == nil {
		strs = Localizations{}
	}
	loc := localizer{defaultLanguage: c.cfg.DefaultLanguage, strings: strs}

	classID := c.payloadID(firstNonEmpty(p.TypeID, "pass."+string(desc.kind)))
	object := &payloadObject{
		ID:      c.payloadID(firstNonEmpty(p.ID, uuid.NewString())),
		ClassID: classID,
		State:   objectStateActive,
	}
	class := &payloadClass{ID: classID}
	if desc.classIssuer {
		class.IssuerName = firstNonEmpty(p.Issuer, c.cfg.OrganizationName)
		class.ReviewStatus = reviewStatusUnderReview
	}
	if p.BackgroundColor != nil {
		object.HexBackgroundColor = p.BackgroundColor.Hex()
		if desc.classIssuer {
			class.HexBackgroundColor = p.BackgroundColor.Hex()
		}
	}
	if p.Barcode != nil {
		object.Barcode = &payloadBarcode{
			Type:          p.Barcode.Format.payloadName(),
			Value:         p.Barcode.Message,
			AlternateText: p.Barcode.AltText,
		}
	}

	modules, template := c.encodeFrontContent(p.FrontContent, loc)
	object.TextModulesData = modules
	if len(template) > 0 {
		class.ClassTemplateInfo = &classTemplateInfo{
			CardTemplateOverride: &cardTemplateOverride{CardRowTemplateInfos: template},
		}
	}
	object.InfoModuleData = encodeBackContent(p.BackContent, loc)

	ec := &payloadEncoding{pass: p, class: class, object: object, loc: loc, cfg: c.cfg}
	ec.logo = c.hostLogo(ctx, p)
	if err := details.encodePayload(ec); err != nil {
		return Payload{}, err
	}

	classJSON, err := json.Marshal(class)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal class: %w", err)
	}
	objectJSON, err := json.Marshal(object)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal object: %w", err)
	}
	return Payload{Prefix: desc.payloadPrefix, Class: classJSON, Object: objectJSON}, nil
}

// PackRows splits front content into rows of at most three items, in
// order, and keeps the first three rows. The rest stays out of the card
// template.
func PackRows(front []Row) (templated []Row, overflow []Row) {
	var packed []Row
	for _, row := range front {
		for start := 0; start < len(row); start += maxRowItems {
			end := start + maxRowItems
			if end > len(row) {
				end = len(row)
			}
			packed = append(packed, row[start:end])
		}
	}
	if len(packed) <= maxTemplateRows {
		return packed, nil
	}
	return packed[:maxTemplateRows], packed[maxTemplateRows:]
}

// encodeFrontContent emits one text module per front field, including the
// ones beyond the template cap, and a row template for the packed rows.
func (c *Converter) encodeFrontContent(front []Row, loc localizer) ([]textModule, []cardRowTemplate) {
	ids := map[*Field]string{}
	used := map[string]bool{}
	var modules []textModule
	for _, row := range front {
		for _, f := range row {
			id := moduleID(f.Key, len(modules), used)
			ids[f] = id
			modules = append(modules, c.textModuleFor(id, f, loc))
		}
	}

	templated, _ := PackRows(front)
	var template []cardRowTemplate
	for _, row := range templated {
		refs := make([]string, 0, len(row))
		for _, f := range row {
			refs = append(refs, ids[f])
		}
		template = append(template, newCardRow(refs))
	}
	return modules, template
}

func (c *Converter) textModuleFor(id string, f *Field, loc localizer) textModule {
	m := textModule{ID: id, Header: f.Label, LocalizedHeader: loc.encode(f.Label)}
	m.Body = f.Value
	if f.DateStyle != DateStyleNone {
		if ls, ok := localizedDateTime(f.Value, f.DateStyle, c.cfg.languages()); ok {
			m.Body = ls.DefaultValue.Value
			m.LocalizedBody = ls
		}
	}
	if m.LocalizedBody == nil {
		m.LocalizedBody = loc.encode(f.Value)
	}
	if m.Body == "" {
		m.Body = c.cfg.EmptyValue
	}
	return m
}

func encodeBackContent(back []*Field, loc localizer) *infoModule {
	if len(back) == 0 {
		return nil
	}
	info := &infoModule{}
	for _, f := range back {
		info.LabelValueRows = append(info.LabelValueRows, labelValueRow{Columns: []labelValue{{
			Label:          f.Label,
			Value:          f.Value,
			LocalizedLabel: loc.encode(f.Label),
			LocalizedValue: loc.encode(f.Value),
		}}})
	}
	return info
}

// hostLogo resolves a public URI for the logo or the fallback icon.
func (c *Converter) hostLogo(ctx context.Context, p *Pass) *payloadImage {
	candidates := []Image{}
	if !p.Logo.empty() {
		candidates = append(candidates, *p.Logo)
	}
	if c.cfg.FallbackIcon != "" {
		candidates = append(candidates, Image{URI: c.cfg.FallbackIcon})
	}
	for _, img := range candidates {
		uri, err := c.images.Host(ctx, img)
		if err != nil {
			c.log(ctx).Warn("image hosting failed", "error", err)
			continue
		}
		if uri != "" {
			return newPayloadImage(uri)
		}
	}
	return nil
}

// payloadID prefixes a sanitized identifier with the issuer id.
func (c *Converter) payloadID(id string) string {
	clean := sanitizeID(id)
	if c.cfg.Wallet.IssuerID == "" {
		return clean
	}
	return c.cfg.Wallet.IssuerID + "." + clean
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// idSuffix strips the issuer prefix of a payload id: the configured issuer
// id, or else a leading all-digit segment.
func (c *Converter) idSuffix(id string) string {
	if issuer := c.cfg.Wallet.IssuerID; issuer != "" && strings.HasPrefix(id, issuer+".") {
		return strings.TrimPrefix(id, issuer+".")
	}
	head, rest, ok := strings.Cut(id, ".")
	if !ok || head == "" {
		return id
	}
	for _, r := range head {
		if !unicode.IsDigit(r) {
			return id
		}
	}
	return rest
}

func moduleID(key string, index int, used map[string]bool) string {
	id := sanitizeID(key)
	if id == "" || used[id] {
		id = fmt.Sprintf("field%d", index+1)
	}
	for used[id] {
		id += "_"
	}
	used[id] = true
	return id
}
