package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// RawExtraction is the payload produced by the invoice extraction service.
// Every field is optional; numbers may arrive as JSON numbers or strings.
type RawExtraction struct {
	Products  []RawProduct `json:"products"`
	OrderInfo RawOrderInfo `json:"order_info"`
}

// RawOrderInfo is the extracted invoice header
type RawOrderInfo struct {
	Supplier     FlexString  `json:"supplier"`
	DocumentType FlexString  `json:"document_type"`
	OrderNumber  FlexString  `json:"order_number"`
	Date         FlexString  `json:"date"`
	Customer     FlexString  `json:"customer"`
	Brand        FlexString  `json:"brand"`
	Season       FlexString  `json:"season"`
	TotalPieces  FlexDecimal `json:"total_pieces"`
	TotalValue   FlexDecimal `json:"total_value"`
}

// RawProduct is one extracted product with its color/size breakdown
type RawProduct struct {
	MaterialCode FlexString     `json:"material_code"`
	Name         FlexString     `json:"name"`
	Composition  FlexString     `json:"composition"`
	Category     FlexString     `json:"category"`
	Brand        FlexString     `json:"brand"`
	Gender       *FlexString    `json:"gender"`
	Colors       []RawColor     `json:"colors"`
	References   []RawReference `json:"references"`
}

// RawColor is one color of a product with its sizes and prices
type RawColor struct {
	ColorCode  FlexString  `json:"color_code"`
	ColorName  FlexString  `json:"color_name"`
	Sizes      []RawSize   `json:"sizes"`
	UnitPrice  FlexDecimal `json:"unit_price"`
	SalesPrice FlexDecimal `json:"sales_price"`
}

// RawSize is one size line of a color
type RawSize struct {
	Size     FlexString  `json:"size"`
	Quantity FlexDecimal `json:"quantity"`
}

// RawReference carries a supplier barcode for a color/size pair
type RawReference struct {
	ColorCode FlexString `json:"color_code"`
	Size      FlexString `json:"size"`
	Barcode   FlexString `json:"barcode"`
}

// FlexString accepts a JSON string, number, boolean or null
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(strings.TrimSpace(str))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = FlexString(string(data))
	return nil
}

// String returns the trimmed value
func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

// FlexDecimal accepts a JSON number or a numeric string, including comma decimals
// such as "12,50". Anything unparsable decodes to zero.
type FlexDecimal struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	d.Decimal = decimal.Zero
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}
	if v, ok := ParseDecimal(raw); ok {
		d.Decimal = v
	}
	return nil
}

// Int returns the value truncated to an integer
func (d FlexDecimal) Int() int {
	return int(d.IntPart())
}

// ParseDecimal parses loosely formatted numbers ("12.5", "12,50", "€ 3", "1.234,56")
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
