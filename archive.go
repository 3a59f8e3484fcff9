package passbridge

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/tidwall/jsonc"
)

const (
	archivePassFile      = "pass.json"
	archiveManifestFile  = "manifest.json"
	archiveSignatureFile = "signature"
	archiveStringsFile   = "pass.strings"
	archiveLprojSuffix   = ".lproj"

	maxArchiveEntrySize = 10 << 20
)

// logoCandidates lists image entries in preference order.
var logoCandidates = []string{"logo@2x.png", "logo.png", "icon@2x.png", "icon.png"}

// archiveDecoding is what a variant sees while decoding an archive.
type archiveDecoding struct {
	pass  *Pass
	doc   *archiveDocument
	style *archiveStyle
	hints *HintResolver
	text  *archiveText
	cfg   *Config
}

// archiveEncoding is what a variant sees while encoding an archive.
type archiveEncoding struct {
	pass  *Pass
	doc   *archiveDocument
	style *archiveStyle
	cfg   *Config
	// rows are variant fields placed ahead of the generic front content.
	rows []Row
	// ownsPrimary is set when the variant filled primaryFields itself.
	ownsPrimary bool
}

// field builds a content field labelled with the archive label configured
// for hint, so decoding the archive resolves the same hint again.
func (ec *archiveEncoding) field(hint, key, label, value string) *Field {
	if configured, ok := ec.cfg.Hints[hint]; ok && configured != "" {
		label = configured
	}
	return &Field{Key: key, Label: label, Value: value}
}

// addRow appends a row of non-empty fields.
func (ec *archiveEncoding) addRow(fields ...*Field) {
	var row Row
	for _, f := range fields {
		if f != nil && f.Value != "" {
			row = append(row, f)
		}
	}
	if len(row) > 0 {
		ec.rows = append(ec.rows, row)
	}
}

// placeholder substitutes the configured empty value for blank text.
func (ec *archiveEncoding) placeholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return ec.cfg.EmptyValue
	}
	return s
}

// setPrimary fills the primary bucket.
func (ec *archiveEncoding) setPrimary(fields ...*Field) {
	for _, f := range fields {
		if f != nil {
			ec.style.PrimaryFields = append(ec.style.PrimaryFields, toArchiveField(f))
		}
	}
	ec.ownsPrimary = len(ec.style.PrimaryFields) > 0
}

// archiveText resolves pass.json text through the default-language table
// and records every other language keyed by the resolved default text.
type archiveText struct {
	defaults StringsTable
	tables   map[string]StringsTable
	strings  Localizations
	language string
}

func (t *archiveText) resolve(s string) string {
	if s == "" {
		return s
	}
	def := s
	if v, ok := t.defaults[s]; ok {
		def = v
	}
	for lang, table := range t.tables {
		if lang == t.language {
			continue
		}
		if translated, ok := table[s]; ok {
			t.strings.Add(lang, def, translated)
		}
	}
	return def
}

// DecodeArchive parses an archive buffer into a Pass.
func (c *Converter) DecodeArchive(ctx context.Context, data []byte) (*Pass, error) {
	entries, err := readArchive(data)
	if err != nil {
		return nil, newError(ErrCodeInvalidArchive, err)
	}
	raw, ok := entries[archivePassFile]
	if !ok {
		return nil, newError(ErrCodeInvalidArchive, errors.New("archive has no pass.json"))
	}
	var doc archiveDocument
	if err := json.Unmarshal(jsonc.ToJSON(raw), &doc); err != nil {
		return nil, newError(ErrCodeInvalidArchive, fmt.Errorf("parse pass.json: %w", err))
	}

	desc, style, ok := selectArchiveDescriptor(&doc)
	if !ok {
		return nil, newError(ErrCodeUnsupportedVariant, errors.New("pass.json has no recognized content-field key"))
	}

	text, err := c.archiveStrings(entries)
	if err != nil {
		return nil, newError(ErrCodeInvalidArchive, err)
	}

	p := &Pass{
		ID:                  doc.SerialNumber,
		TypeID:              doc.PassTypeIdentifier,
		Issuer:              text.resolve(doc.OrganizationName),
		Description:         text.resolve(doc.Description),
		Strings:             text.strings,
		WebServiceURL:       doc.WebServiceURL,
		AuthenticationToken: doc.AuthenticationToken,
	}
	if p.Issuer == "" {
		p.Issuer = c.cfg.OrganizationName
	}
	if doc.BackgroundColor != "" {
		if color, err := ParseColor(doc.BackgroundColor); err == nil {
			p.BackgroundColor = &color
		} else {
			c.log(ctx).Warn("ignoring archive background color", "value", doc.BackgroundColor, "error", err)
		}
	}
	p.Barcode = archiveBarcodeOf(&doc, text)
	for _, name := range logoCandidates {
		if img, ok := entries[name]; ok && len(img) > 0 {
			p.Logo = &Image{Data: img}
			break
		}
	}

	content := Content{}
	for _, bucket := range [][]archiveField{style.HeaderFields, style.PrimaryFields, style.SecondaryFields, style.AuxiliaryFields} {
		if row := fromArchiveFields(bucket, text); len(row) > 0 {
			content.Front = append(content.Front, row)
		}
	}
	content.Back = fromArchiveFields(style.BackFields, text)

	hints := NewHintResolver(c.cfg.Hints, content)
	title := firstNonEmpty(text.resolve(doc.LogoText), p.Description, p.Issuer)
	p.Title = hints.Value(HintTitle, title)
	if p.Description == "" {
		p.Description = p.Title
	}

	details := desc.newDetails()
	dc := &archiveDecoding{pass: p, doc: &doc, style: style, hints: hints, text: text, cfg: c.cfg}
	if err := details.decodeArchive(dc); err != nil {
		return nil, err
	}
	p.Details = details

	remaining := hints.Remaining()
	p.FrontContent = remaining.Front
	p.BackContent = remaining.Back
	return p, nil
}

func readArchive(data []byte) (map[string][]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	entries := make(map[string][]byte, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntrySize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name, err)
		}
		if len(content) > maxArchiveEntrySize {
			return nil, fmt.Errorf("entry %s exceeds %d bytes", file.Name, maxArchiveEntrySize)
		}
		entries[strings.TrimPrefix(file.Name, "./")] = content
	}
	return entries, nil
}

func (c *Converter) archiveStrings(entries map[string][]byte) (*archiveText, error) {
	text := &archiveText{
		tables:   map[string]StringsTable{},
		strings:  Localizations{},
		language: c.cfg.DefaultLanguage,
	}
	for name, content := range entries {
		dir, file := path.Split(name)
		if file != archiveStringsFile || !strings.HasSuffix(dir, archiveLprojSuffix+"/") {
			continue
		}
		lang := strings.TrimSuffix(path.Base(dir), archiveLprojSuffix)
		table, err := ParseStrings(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		text.tables[lang] = table
	}
	text.defaults = text.tables[text.language]
	if text.defaults == nil {
		if base, _, ok := strings.Cut(text.language, "-"); ok {
			text.defaults = text.tables[base]
		}
	}
	return text, nil
}

func archiveBarcodeOf(doc *archiveDocument, text *archiveText) *Barcode {
	candidates := doc.Barcodes
	if doc.Barcode != nil {
		candidates = append(candidates, *doc.Barcode)
	}
	for _, b := range candidates {
		format, ok := barcodeFromArchive(b.Format)
		if !ok || b.Message == "" {
			continue
		}
		return &Barcode{Format: format, Message: b.Message, AltText: text.resolve(b.AltText)}
	}
	return nil
}

func fromArchiveFields(fields []archiveField, text *archiveText) Row {
	var row Row
	for _, f := range fields {
		value := f.Value.text
		if !f.Value.number {
			value = text.resolve(value)
		}
		row = append(row, &Field{
			Key:          f.Key,
			Label:        text.resolve(f.Label),
			Value:        value,
			CurrencyCode: f.CurrencyCode,
			DateStyle:    dateStyleFromArchive(f.DateStyle, f.TimeStyle),
		})
	}
	return row
}

func toArchiveField(f *Field) archiveField {
	af := archiveField{
		Key:          f.Key,
		Label:        f.Label,
		Value:        fieldValue{text: f.Value},
		CurrencyCode: f.CurrencyCode,
	}
	if f.CurrencyCode != "" && isJSONNumber(f.Value) {
		af.Value.number = true
	}
	af.DateStyle, af.TimeStyle = f.DateStyle.archiveStyles()
	return af
}

// EncodeArchive builds a checksummed archive for the pass, signed when a
// signer is configured.
func (c *Converter) EncodeArchive(ctx context.Context, p *Pass) ([]byte, error) {
	desc, ok := descriptorFor(p.Kind())
	if !ok {
		return nil, newError(ErrCodeUnsupportedVariant, fmt.Errorf("kind %q", p.Kind()))
	}
	details := p.Details
	if details == nil {
		details = desc.newDetails()
	}

	doc := &archiveDocument{
		FormatVersion:       1,
		PassTypeIdentifier:  firstNonEmpty(c.cfg.Signing.PassTypeIdentifier, p.TypeID, "pass."+string(desc.kind)),
		SerialNumber:        firstNonEmpty(p.ID, uuid.NewString()),
		TeamIdentifier:      c.cfg.Signing.TeamIdentifier,
		OrganizationName:    firstNonEmpty(p.Issuer, c.cfg.OrganizationName),
		Description:         firstNonEmpty(p.Description, p.Title, c.cfg.EmptyValue),
		LogoText:            p.Title,
		WebServiceURL:       p.WebServiceURL,
		AuthenticationToken: p.AuthenticationToken,
	}
	if p.BackgroundColor != nil {
		fg := p.BackgroundColor.Foreground()
		doc.BackgroundColor = p.BackgroundColor.RGB()
		doc.ForegroundColor = fg.RGB()
		doc.LabelColor = fg.RGB()
	}
	if p.Barcode != nil {
		b := archiveBarcode{
			Format:          p.Barcode.Format.archiveName(),
			Message:         p.Barcode.Message,
			MessageEncoding: archiveMessageEncoding,
			AltText:         p.Barcode.AltText,
		}
		doc.Barcode = &b
		doc.Barcodes = []archiveBarcode{b}
	}

	ec := &archiveEncoding{pass: p, doc: doc, style: &archiveStyle{}, cfg: c.cfg}
	if err := details.encodeArchive(ec); err != nil {
		return nil, err
	}
	rows := append(append([]Row{}, ec.rows...), p.FrontContent...)
	overflow := layoutArchiveRows(ec.style, rows, ec.ownsPrimary)
	for _, f := range append(overflow, p.BackContent...) {
		ec.style.BackFields = append(ec.style.BackFields, toArchiveField(f))
	}
	uniqueKeys(ec.style)
	doc.setStyle(desc.archiveStyle, ec.style)

	passJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pass.json: %w", err)
	}
	files := map[string][]byte{archivePassFile: passJSON}

	if icon := c.archiveIcon(ctx, p); len(icon) > 0 {
		files["icon.png"] = icon
		files["logo.png"] = icon
	}
	for _, lang := range p.Strings.Languages() {
		table := StringsTable{}
		for def, translated := range p.Strings[lang] {
			if translated != def {
				table[def] = translated
			}
		}
		if len(table) > 0 {
			files[lang+archiveLprojSuffix+"/"+archiveStringsFile] = table.Marshal()
		}
	}

	manifest, err := buildManifest(files)
	if err != nil {
		return nil, err
	}
	files[archiveManifestFile] = manifest

	if c.signer != nil {
		signature, err := c.signer.Sign(ctx, manifest)
		if err != nil {
			c.log(ctx).Warn("archive left unsigned", "serial", doc.SerialNumber, "error", err)
		} else {
			files[archiveSignatureFile] = signature
		}
	}
	return writeArchive(files)
}

// archiveIcon returns the logo bytes, falling back to the configured icon.
func (c *Converter) archiveIcon(ctx context.Context, p *Pass) []byte {
	if p.Logo != nil && len(p.Logo.Data) > 0 {
		return p.Logo.Data
	}
	for _, uri := range []string{logoURI(p.Logo), c.cfg.FallbackIcon} {
		if uri == "" {
			continue
		}
		data, err := c.images.Fetch(ctx, uri)
		if err != nil {
			c.log(ctx).Warn("image fetch failed", "uri", uri, "error", err)
			continue
		}
		if len(data) > 0 {
			return data
		}
	}
	return nil
}

func logoURI(img *Image) string {
	if img == nil {
		return ""
	}
	return img.URI
}

// archiveBuckets in display order.
const (
	bucketHeader = iota
	bucketPrimary
	bucketSecondary
	bucketAuxiliary
)

// bucketFill is the order buckets are taken as the row count grows:
// one row lands in secondary, two in secondary and auxiliary, three adds
// header, four adds primary.
var bucketFill = []int{bucketSecondary, bucketAuxiliary, bucketHeader, bucketPrimary}

// layoutArchiveRows places rows into buckets and returns the fields of rows
// that did not fit.
func layoutArchiveRows(style *archiveStyle, rows []Row, primaryTaken bool) []*Field {
	var available []int
	for _, b := range bucketFill {
		if b == bucketPrimary && primaryTaken {
			continue
		}
		available = append(available, b)
	}
	n := len(rows)
	if n > len(available) {
		n = len(available)
	}
	chosen := append([]int(nil), available[:n]...)
	sort.Ints(chosen)

	for i, bucket := range chosen {
		fields := make([]archiveField, 0, len(rows[i]))
		for _, f := range rows[i] {
			fields = append(fields, toArchiveField(f))
		}
		switch bucket {
		case bucketHeader:
			style.HeaderFields = fields
		case bucketPrimary:
			style.PrimaryFields = fields
		case bucketSecondary:
			style.SecondaryFields = fields
		case bucketAuxiliary:
			style.AuxiliaryFields = fields
		}
	}

	var overflow []*Field
	for _, row := range rows[n:] {
		overflow = append(overflow, row...)
	}
	return overflow
}

// uniqueKeys gives every field a distinct key across all buckets.
func uniqueKeys(style *archiveStyle) {
	seen := map[string]int{}
	for _, bucket := range []*[]archiveField{&style.HeaderFields, &style.PrimaryFields, &style.SecondaryFields, &style.AuxiliaryFields, &style.BackFields} {
		for i := range *bucket {
			f := &(*bucket)[i]
			if f.Key == "" {
				f.Key = "field"
			}
			seen[f.Key]++
			if n := seen[f.Key]; n > 1 {
				f.Key = fmt.Sprintf("%s_%d", f.Key, n)
			}
		}
	}
}

// buildManifest maps every entry to the hex SHA-1 of its content.
func buildManifest(files map[string][]byte) ([]byte, error) {
	manifest := make(map[string]string, len(files))
	for name, content := range files {
		sum := sha1.Sum(content)
		manifest[name] = hex.EncodeToString(sum[:])
	}
	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return out, nil
}

func writeArchive(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
