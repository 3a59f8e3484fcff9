package passbridge

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// extras carries variant-specific payload keys next to the shared typed
// fields. Typed fields win when a key is present in both.
type extras map[string]json.RawMessage

func (e *extras) set(key string, v any) {
	if v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return
	}
	if *e == nil {
		*e = extras{}
	}
	(*e)[key] = raw
}

func (e extras) get(key string, v any) bool {
	raw, ok := e[key]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// mergeExtras marshals typed and adds every extra key it does not set.
func mergeExtras(typed any, e extras) ([]byte, error) {
	base, err := json.Marshal(typed)
	if err != nil {
		return nil, err
	}
	if len(e) == 0 {
		return base, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range e {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

type payloadClass struct {
	ID                 string             `json:"id"`
	IssuerName         string             `json:"issuerName,omitempty"`
	ReviewStatus       string             `json:"reviewStatus,omitempty"`
	HexBackgroundColor string             `json:"hexBackgroundColor,omitempty"`
	ClassTemplateInfo  *classTemplateInfo `json:"classTemplateInfo,omitempty"`
	extras             extras
}

type payloadClassFields payloadClass

func (c payloadClass) MarshalJSON() ([]byte, error) {
	return mergeExtras(payloadClassFields(c), c.extras)
}

func (c *payloadClass) UnmarshalJSON(data []byte) error {
	var fields payloadClassFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var e extras
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*c = payloadClass(fields)
	c.extras = e
	return nil
}

type payloadObject struct {
	ID                 string          `json:"id"`
	ClassID            string          `json:"classId,omitempty"`
	State              string          `json:"state,omitempty"`
	HexBackgroundColor string          `json:"hexBackgroundColor,omitempty"`
	Barcode            *payloadBarcode `json:"barcode,omitempty"`
	TextModulesData    []textModule    `json:"textModulesData,omitempty"`
	InfoModuleData     *infoModule     `json:"infoModuleData,omitempty"`
	extras             extras
}

type payloadObjectFields payloadObject

func (o payloadObject) MarshalJSON() ([]byte, error) {
	return mergeExtras(payloadObjectFields(o), o.extras)
}

func (o *payloadObject) UnmarshalJSON(data []byte) error {
	var fields payloadObjectFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var e extras
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*o = payloadObject(fields)
	o.extras = e
	return nil
}

type payloadBarcode struct {
	Type          string `json:"type"`
	Value         string `json:"value"`
	AlternateText string `json:"alternateText,omitempty"`
}

type payloadImage struct {
	SourceURI struct {
		URI string `json:"uri"`
	} `json:"sourceUri"`
}

func newPayloadImage(uri string) *payloadImage {
	if uri == "" {
		return nil
	}
	img := &payloadImage{}
	img.SourceURI.URI = uri
	return img
}

func (i *payloadImage) uri() string {
	if i == nil {
		return ""
	}
	return i.SourceURI.URI
}

type textModule struct {
	ID              string           `json:"id"`
	Header          string           `json:"header,omitempty"`
	Body            string           `json:"body,omitempty"`
	LocalizedHeader *LocalizedString `json:"localizedHeader,omitempty"`
	LocalizedBody   *LocalizedString `json:"localizedBody,omitempty"`
}

type infoModule struct {
	LabelValueRows []labelValueRow `json:"labelValueRows"`
}

type labelValueRow struct {
	Columns []labelValue `json:"columns"`
}

type labelValue struct {
	Label          string           `json:"label,omitempty"`
	Value          string           `json:"value,omitempty"`
	LocalizedLabel *LocalizedString `json:"localizedLabel,omitempty"`
	LocalizedValue *LocalizedString `json:"localizedValue,omitempty"`
}

type classTemplateInfo struct {
	CardTemplateOverride *cardTemplateOverride `json:"cardTemplateOverride,omitempty"`
}

type cardTemplateOverride struct {
	CardRowTemplateInfos []cardRowTemplate `json:"cardRowTemplateInfos"`
}

type cardRowTemplate struct {
	OneItem    *cardRowOneItem    `json:"oneItem,omitempty"`
	TwoItems   *cardRowTwoItems   `json:"twoItems,omitempty"`
	ThreeItems *cardRowThreeItems `json:"threeItems,omitempty"`
}

type cardRowOneItem struct {
	Item templateItem `json:"item"`
}

type cardRowTwoItems struct {
	StartItem templateItem `json:"startItem"`
	EndItem   templateItem `json:"endItem"`
}

type cardRowThreeItems struct {
	StartItem  templateItem `json:"startItem"`
	MiddleItem templateItem `json:"middleItem"`
	EndItem    templateItem `json:"endItem"`
}

type templateItem struct {
	FirstValue fieldSelector `json:"firstValue"`
}

type fieldSelector struct {
	Fields []fieldReference `json:"fields"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

var textModulePath = regexp.MustCompile(`textModulesData\['([^']*)'\]`)

func textModuleReference(id string) templateItem {
	return templateItem{FirstValue: fieldSelector{Fields: []fieldReference{{
		FieldPath: fmt.Sprintf("object.textModulesData['%s']", id),
	}}}}
}

// moduleID extracts the text module id an item points at.
func (t templateItem) moduleID() (string, bool) {
	for _, f := range t.FirstValue.Fields {
		if m := textModulePath.FindStringSubmatch(f.FieldPath); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// items returns the template items of a row in display order.
func (r cardRowTemplate) items() []templateItem {
	switch {
	case r.OneItem != nil:
		return []templateItem{r.OneItem.Item}
	case r.TwoItems != nil:
		return []templateItem{r.TwoItems.StartItem, r.TwoItems.EndItem}
	case r.ThreeItems != nil:
		return []templateItem{r.ThreeItems.StartItem, r.ThreeItems.MiddleItem, r.ThreeItems.EndItem}
	}
	return nil
}

func newCardRow(ids []string) cardRowTemplate {
	switch len(ids) {
	case 1:
		return cardRowTemplate{OneItem: &cardRowOneItem{Item: textModuleReference(ids[0])}}
	case 2:
		return cardRowTemplate{TwoItems: &cardRowTwoItems{
			StartItem: textModuleReference(ids[0]),
			EndItem:   textModuleReference(ids[1]),
		}}
	}
	return cardRowTemplate{ThreeItems: &cardRowThreeItems{
		StartItem:  textModuleReference(ids[0]),
		MiddleItem: textModuleReference(ids[1]),
		EndItem:    textModuleReference(ids[2]),
	}}
}
