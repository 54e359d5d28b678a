/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the layout of all date fields of Document.
const DateLayout = "2006-01-02"

// DocTypeIntroduceGoods is a document type for introducing goods into circulation.
const DocTypeIntroduceGoods = "LP_INTRODUCE_GOODS"

// DocumentProvider provides a JSON body for a document creation request.
type DocumentProvider interface {
	ProvideJSON() ([]byte, error)
}

// DocumentJSON is a DocumentProvider that returns pre-built JSON as is.
type DocumentJSON []byte

// ProvideJSON implements DocumentProvider.
func (d DocumentJSON) ProvideJSON() ([]byte, error) {
	if !json.Valid(d) {
		return nil, errors.New("document is not a valid JSON")
	}
	return d, nil
}

// Description is a document description.
type Description struct {
	ParticipantInn string `json:"participantInn"`
}

// Product is a single product of a document.
type Product struct {
	CertificateDocument       string `json:"certificate_document"`
	CertificateDocumentDate   string `json:"certificate_document_date"`
	CertificateDocumentNumber string `json:"certificate_document_number"`
	OwnerInn                  string `json:"owner_inn"`
	ProducerInn               string `json:"producer_inn"`
	ProductionDate            string `json:"production_date"`
	TnvedCode                 string `json:"tnved_code"`
	UitCode                   string `json:"uit_code"`
	UituCode                  string `json:"uitu_code"`
}

// Document is a request for introducing goods into circulation.
type Document struct {
	Description    Description `json:"description"`
	DocID          string      `json:"doc_id"`
	DocStatus      string      `json:"doc_status"`
	DocType        string      `json:"doc_type"`
	ImportRequest  bool        `json:"importRequest"`
	OwnerInn       string      `json:"owner_inn"`
	ParticipantInn string      `json:"participant_inn"`
	ProducerInn    string      `json:"producer_inn"`
	ProductionDate string      `json:"production_date"`
	ProductionType string      `json:"production_type"`
	Products       []Product   `json:"products"`
	RegDate        string      `json:"reg_date"`
	RegNumber      string      `json:"reg_number"`
}

// Validate checks that the document type is set and all dates have DateLayout format.
func (d *Document) Validate() error {
	if d.DocType == "" {
		return errors.New("doc_type is required")
	}
	dates := map[string]string{"production_date": d.ProductionDate, "reg_date": d.RegDate}
	for i, p := range d.Products {
		dates[fmt.Sprintf("products[%d].production_date", i)] = p.ProductionDate
		dates[fmt.Sprintf("products[%d].certificate_document_date", i)] = p.CertificateDocumentDate
	}
	for field, val := range dates {
		if val == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, val); err != nil {
			return fmt.Errorf("%s: invalid date %q, %s layout is expected", field, val, DateLayout)
		}
	}
	return nil
}

// ProvideJSON implements DocumentProvider.
func (d *Document) ProvideJSON() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	return json.Marshal(d)
}

// ExampleDocument returns a document filled with placeholder values.
func ExampleDocument() *Document {
	return &Document{
		Description:    Description{ParticipantInn: "string"},
		DocID:          "string",
		DocStatus:      "string",
		DocType:        DocTypeIntroduceGoods,
		ImportRequest:  true,
		OwnerInn:       "string",
		ParticipantInn: "string",
		ProducerInn:    "string",
		ProductionDate: "2020-01-23",
		ProductionType: "string",
		Products: []Product{{
			CertificateDocument:       "string",
			CertificateDocumentDate:   "2020-01-23",
			CertificateDocumentNumber: "string",
			OwnerInn:                  "string",
			ProducerInn:               "string",
			ProductionDate:            "2020-01-23",
			TnvedCode:                 "string",
			UitCode:                   "string",
			UituCode:                  "string",
		}},
		RegDate:   "2020-01-23",
		RegNumber: "string",
	}
}
