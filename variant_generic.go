package passbridge

// GenericDetails is the catch-all variant.
type GenericDetails struct {
	Subheader string
}

// Kind reports KindGeneric.
func (d *GenericDetails) Kind() Kind { return KindGeneric }

func (d *GenericDetails) decodeArchive(dc *archiveDecoding) error {
	d.Subheader = dc.hints.Value(HintSubheader, "")
	return nil
}

func (d *GenericDetails) encodeArchive(ec *archiveEncoding) error {
	ec.addRow(ec.field(HintSubheader, "subheader", "Subheader", d.Subheader))
	return nil
}

func (d *GenericDetails) decodePayload(dc *payloadDecoding) error {
	var header, cardTitle, subheader LocalizedString
	if dc.object.extras.get("header", &header) {
		dc.pass.Title = dc.loc.decode(&header, "")
	}
	if dc.object.extras.get("cardTitle", &cardTitle) {
		dc.pass.Issuer = firstNonEmpty(dc.loc.decode(&cardTitle, ""), dc.pass.Issuer)
	}
	if dc.object.extras.get("subheader", &subheader) {
		d.Subheader = dc.loc.decode(&subheader, "")
	}
	var logo payloadImage
	if dc.object.extras.get("logo", &logo) && logo.uri() != "" {
		dc.pass.Logo = &Image{URI: logo.uri()}
	}
	return nil
}

func (d *GenericDetails) encodePayload(ec *payloadEncoding) error {
	p := ec.pass
	ec.object.extras.set("cardTitle", ec.loc.encode(ec.text(firstNonEmpty(p.Issuer, ec.cfg.OrganizationName))))
	ec.object.extras.set("header", ec.loc.encode(ec.text(p.Title)))
	if d.Subheader != "" {
		ec.object.extras.set("subheader", ec.loc.encode(d.Subheader))
	}
	if ec.logo != nil {
		ec.object.extras.set("logo", ec.logo)
	}
	return nil
}
