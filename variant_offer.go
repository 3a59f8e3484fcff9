package passbridge

const redemptionChannelBoth = "BOTH"

// OfferDetails describes a coupon or offer.
type OfferDetails struct {
	Title    string
	Provider string
}

// Kind reports KindOffer.
func (d *OfferDetails) Kind() Kind { return KindOffer }

func (d *OfferDetails) decodeArchive(dc *archiveDecoding) error {
	d.Title = dc.hints.Value(HintOfferTitle, firstNonEmpty(dc.pass.Description, dc.pass.Title))
	d.Provider = dc.hints.Value(HintProvider, dc.pass.Issuer)
	return nil
}

func (d *OfferDetails) encodeArchive(ec *archiveEncoding) error {
	if d.Title != "" && d.Title != ec.doc.Description {
		ec.addRow(ec.field(HintOfferTitle, "offer", "Offer", d.Title))
	}
	if d.Provider != "" && d.Provider != ec.doc.OrganizationName {
		ec.addRow(ec.field(HintProvider, "provider", "Provider", d.Provider))
	}
	return nil
}

func (d *OfferDetails) decodePayload(dc *payloadDecoding) error {
	var title, provider LocalizedString
	var plainTitle, plainProvider string
	dc.class.extras.get("title", &plainTitle)
	dc.class.extras.get("provider", &plainProvider)
	d.Title = plainTitle
	if dc.class.extras.get("localizedTitle", &title) {
		d.Title = dc.loc.decode(&title, plainTitle)
	}
	if d.Title == "" {
		return missingField(HintOfferTitle)
	}
	d.Provider = plainProvider
	if dc.class.extras.get("localizedProvider", &provider) {
		d.Provider = dc.loc.decode(&provider, plainProvider)
	}
	dc.pass.Title = d.Title
	dc.pass.Description = d.Title

	var logo payloadImage
	if dc.class.extras.get("titleImage", &logo) && logo.uri() != "" {
		dc.pass.Logo = &Image{URI: logo.uri()}
	}
	return nil
}

func (d *OfferDetails) encodePayload(ec *payloadEncoding) error {
	title := ec.text(firstNonEmpty(d.Title, ec.pass.Description, ec.pass.Title))
	provider := ec.text(firstNonEmpty(d.Provider, ec.pass.Issuer, ec.cfg.OrganizationName))
	ec.class.extras.set("title", title)
	ec.class.extras.set("localizedTitle", ec.loc.encode(title))
	ec.class.extras.set("provider", provider)
	ec.class.extras.set("localizedProvider", ec.loc.encode(provider))
	ec.class.extras.set("redemptionChannel", redemptionChannelBoth)
	if ec.logo != nil {
		ec.class.extras.set("titleImage", ec.logo)
	}
	return nil
}
