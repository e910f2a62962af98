package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Text is a scalar the API sends as a string, a number or a boolean
// depending on the endpoint. It decodes all three into their text form.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		return fmt.Errorf("inventory: cannot read %s as text", data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// SignInResult is the session issued by /auth/signin and /auth/verify.
type SignInResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   Text   `json:"crn_id"`
}

// ProductInput is the power rating printed on a product sticker.
type ProductInput struct {
	Voltage Text `json:"voltage"`
	Current Text `json:"current"`
}

// Product is the data printed on a product sticker.
type Product struct {
	Name     Text         `json:"name"`
	Model    Text         `json:"model"`
	Input    ProductInput `json:"input"`
	PNCode   Text         `json:"pnCode"`
	SerialNo Text         `json:"serialNo"`
	MadeBy   Text         `json:"madeBy"`
	Txn      Text         `json:"txn"`
}

// BISLabel holds the three certification lines of a BIS label.
type BISLabel struct {
	LineFirst  Text `json:"lineFirst"`
	LineSecond Text `json:"lineSecond"`
	LineThird  Text `json:"lineThird"`
	Txn        Text `json:"txn"`
}

// MasterRequest registers a master carton of scanned serials.
type MasterRequest struct {
	Device          string   `json:"device"`
	Operator        string   `json:"operator"`
	Serials         []string `json:"serials"`
	NFCEnabled      bool     `json:"nfcEnabled"`
	AdaptorIncluded bool     `json:"adaptorIncluded"`
	SIMCardIncluded bool     `json:"simCardIncluded"`
	QREnabled       bool     `json:"qrEnabled"`
}

// MasterCarton is the registered carton as returned by the API.
type MasterCarton struct {
	IsOK            bool     `json:"isOK"`
	BoxNumber       Text     `json:"boxNumber"`
	Txn             Text     `json:"txn"`
	TxnDate         Text     `json:"txnDt"`
	LotLength       Text     `json:"lotLength"`
	Serials         []string `json:"serials"`
	DeviceModel     Text     `json:"deviceModel"`
	Operator        Text     `json:"operator"`
	NFCEnabled      Text     `json:"nfcEnabled"`
	AdaptorIncluded Text     `json:"adaptorIncluded"`
	SIMCardIncluded Text     `json:"simCardIncluded"`
	QREnabled       Text     `json:"qrEnabled"`
}

// MonoRequest registers one unit with its SIM and QR URL.
type MonoRequest struct {
	Serial   string `json:"serial"`
	ICCID    string `json:"sim"`
	QRURL    string `json:"qrurl"`
	Operator string `json:"operator"`
}

// MonoResult is the registered unit as returned by the API.
type MonoResult struct {
	IsOK     bool `json:"isOK"`
	SerialNo Text `json:"serialNo"`
	ICCID    Text `json:"iccid"`
	QRURL    Text `json:"qrUrl"`
	Operator Text `json:"operator"`
	Txn      Text `json:"txn"`
}

var serialPattern = regexp.MustCompile(`^\d{11}$`)

// Validate reports every problem with the request at once.
func (r MasterRequest) Validate() error {
	var errs []error
	if r.Device == "" {
		errs = append(errs, errors.New("Please select a Device Model."))
	}
	if r.Operator == "" {
		errs = append(errs, errors.New("Please select a SIM Operator."))
	}
	if len(r.Serials) == 0 {
		errs = append(errs, errors.New("No Serials scanned. Please scan at least one Serial before submitting."))
	}
	return errors.Join(errs...)
}

// Validate reports every problem with the request at once.
func (r MonoRequest) Validate() error {
	var errs []error
	if !serialPattern.MatchString(r.Serial) {
		errs = append(errs, errors.New("Invalid SR No. (must be 11 digits)."))
	}
	if n := len(r.ICCID); n < 19 || n > 20 {
		errs = append(errs, errors.New("Invalid SIM ICCID (must be between 19 and 20 characters)."))
	}
	if r.QRURL == "" {
		errs = append(errs, errors.New("QR URL is required."))
	}
	if r.Operator == "" {
		errs = append(errs, errors.New("Please select a SIM operator."))
	}
	return errors.Join(errs...)
}
