package dto

// Open Banking payment initiation shapes. Field names follow the
// UK Open Banking casing used by the Namibian API profile.

type OBAmount struct {
	Amount   string `json:"Amount"`
	Currency string `json:"Currency,omitempty"`
}

type OBAccount struct {
	SchemeName     string `json:"SchemeName,omitempty"`
	Identification string `json:"Identification"`
}

type OBRemittance struct {
	Unstructured string `json:"Unstructured,omitempty"`
}

type OBInitiation struct {
	InstructionIdentification string        `json:"InstructionIdentification,omitempty"`
	EndToEndIdentification    string        `json:"EndToEndIdentification,omitempty"`
	InstructedAmount          *OBAmount     `json:"InstructedAmount"`
	DebtorAccount             *OBAccount    `json:"DebtorAccount"`
	CreditorAccount           *OBAccount    `json:"CreditorAccount"`
	RemittanceInformation     *OBRemittance `json:"RemittanceInformation,omitempty"`
}

type OBPaymentData struct {
	ConsentID  string        `json:"ConsentId,omitempty"`
	Initiation *OBInitiation `json:"Initiation"`
}

// OBPaymentRequest is the body of POST /open-banking/v1/payments/wallet-to-wallet.
type OBPaymentRequest struct {
	Data              *OBPaymentData `json:"Data"`
	Risk              map[string]any `json:"Risk,omitempty"`
	VerificationToken string         `json:"verificationToken,omitempty"`
}

type OBPaymentResponseData struct {
	PaymentID            string        `json:"PaymentId"`
	ConsentID            string        `json:"ConsentId,omitempty"`
	Status               string        `json:"Status"`
	CreationDateTime     string        `json:"CreationDateTime"`
	StatusUpdateDateTime string        `json:"StatusUpdateDateTime"`
	Initiation           *OBInitiation `json:"Initiation,omitempty"`
}

type OBLinks struct {
	Self string `json:"Self"`
}

// OBResponse is the Open Banking success envelope.
type OBResponse struct {
	Data  any            `json:"Data"`
	Links OBLinks        `json:"Links"`
	Meta  map[string]any `json:"Meta"`
}

type OBErrorDetail struct {
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Path      string `json:"Path,omitempty"`
}

// OBErrorResponse is the Open Banking error envelope.
type OBErrorResponse struct {
	Code    string          `json:"Code"`
	ID      string          `json:"Id"`
	Message string          `json:"Message"`
	Errors  []OBErrorDetail `json:"Errors,omitempty"`
}
