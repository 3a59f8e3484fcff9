package passbridge

// LoyaltyPoints is a labelled balance.
type LoyaltyPoints struct {
	Label   string
	Balance Balance
}

// LoyaltyDetails describes a loyalty or store card.
type LoyaltyDetails struct {
	ProgramName string
	AccountID   string
	AccountName string
	Points      *LoyaltyPoints
	Secondary   *LoyaltyPoints
}

// Kind reports KindLoyalty.
func (d *LoyaltyDetails) Kind() Kind { return KindLoyalty }

type loyaltyPoints struct {
	Label          string           `json:"label,omitempty"`
	LocalizedLabel *LocalizedString `json:"localizedLabel,omitempty"`
	Balance        *balanceSlot     `json:"balance,omitempty"`
}

func (d *LoyaltyDetails) decodeArchive(dc *archiveDecoding) error {
	h := dc.hints
	d.ProgramName = h.Value(HintProgramName, dc.pass.Title)
	d.AccountID = h.Value(HintAccountID, "")
	d.AccountName = h.Value(HintAccountName, "")
	d.Points = pointsFromField(h.Field(HintBalance))
	d.Secondary = pointsFromField(h.Field(HintSecondaryBalance))
	return nil
}

func pointsFromField(f *Field) *LoyaltyPoints {
	if f == nil || f.Value == "" {
		return nil
	}
	return &LoyaltyPoints{Label: f.Label, Balance: Balance{Value: f.Value, CurrencyCode: f.CurrencyCode}}
}

func (d *LoyaltyDetails) encodeArchive(ec *archiveEncoding) error {
	if d.ProgramName != "" && d.ProgramName != ec.pass.Title {
		ec.addRow(ec.field(HintProgramName, "program", "Program", d.ProgramName))
	}
	ec.addRow(
		pointsField(ec, HintBalance, "balance", d.Points),
		pointsField(ec, HintSecondaryBalance, "secondaryBalance", d.Secondary),
	)
	ec.addRow(
		ec.field(HintAccountName, "accountName", "Member", d.AccountName),
		ec.field(HintAccountID, "accountId", "Account", d.AccountID),
	)
	return nil
}

func pointsField(ec *archiveEncoding, hint, key string, points *LoyaltyPoints) *Field {
	if points == nil {
		return nil
	}
	f := ec.field(hint, key, firstNonEmpty(points.Label, "Balance"), points.Balance.Value)
	if code := points.Balance.CurrencyCode; code != "" {
		if minor, err := points.Balance.MinorUnits(); err == nil {
			normalized := BalanceFromMinorUnits(minor, code)
			f.Value, f.CurrencyCode = normalized.Value, normalized.CurrencyCode
		}
	}
	return f
}

func (d *LoyaltyDetails) decodePayload(dc *payloadDecoding) error {
	var name LocalizedString
	dc.class.extras.get("programName", &d.ProgramName)
	if dc.class.extras.get("localizedProgramName", &name) {
		d.ProgramName = dc.loc.decode(&name, d.ProgramName)
	}
	dc.pass.Title = firstNonEmpty(dc.pass.Title, d.ProgramName)

	var logo payloadImage
	if dc.class.extras.get("programLogo", &logo) && logo.uri() != "" {
		dc.pass.Logo = &Image{URI: logo.uri()}
	}

	dc.object.extras.get("accountId", &d.AccountID)
	dc.object.extras.get("accountName", &d.AccountName)
	d.Points = decodePoints(dc, "loyaltyPoints")
	d.Secondary = decodePoints(dc, "secondaryLoyaltyPoints")
	return nil
}

func decodePoints(dc *payloadDecoding, key string) *LoyaltyPoints {
	var raw loyaltyPoints
	if !dc.object.extras.get(key, &raw) {
		return nil
	}
	balance, ok := decodeBalance(raw.Balance)
	if !ok {
		return nil
	}
	return &LoyaltyPoints{Label: dc.loc.decode(raw.LocalizedLabel, raw.Label), Balance: balance}
}

func (d *LoyaltyDetails) encodePayload(ec *payloadEncoding) error {
	program := ec.text(firstNonEmpty(d.ProgramName, ec.pass.Title))
	ec.class.extras.set("programName", program)
	ec.class.extras.set("localizedProgramName", ec.loc.encode(program))
	if ec.logo != nil {
		ec.class.extras.set("programLogo", ec.logo)
	}

	if d.AccountID != "" {
		ec.object.extras.set("accountId", d.AccountID)
	}
	if d.AccountName != "" {
		ec.object.extras.set("accountName", d.AccountName)
	}
	if points := encodePoints(ec, d.Points); points != nil {
		ec.object.extras.set("loyaltyPoints", points)
	}
	if points := encodePoints(ec, d.Secondary); points != nil {
		ec.object.extras.set("secondaryLoyaltyPoints", points)
	}
	return nil
}

func encodePoints(ec *payloadEncoding, points *LoyaltyPoints) *loyaltyPoints {
	if points == nil {
		return nil
	}
	slot, err := encodeBalance(points.Balance)
	if err != nil {
		opaque := points.Balance.Value
		slot = &balanceSlot{String: &opaque}
	}
	return &loyaltyPoints{
		Label:          points.Label,
		LocalizedLabel: ec.loc.encode(points.Label),
		Balance:        slot,
	}
}
