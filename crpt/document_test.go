/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocument_ProvideJSON(t *testing.T) {
	data, err := ExampleDocument().ProvideJSON()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, map[string]interface{}{"participantInn": "string"}, got["description"])
	require.Equal(t, DocTypeIntroduceGoods, got["doc_type"])
	require.Equal(t, true, got["importRequest"])
	require.Equal(t, "2020-01-23", got["reg_date"])
	products, ok := got["products"].([]interface{})
	require.True(t, ok)
	require.Len(t, products, 1)
	product := products[0].(map[string]interface{})
	for _, key := range []string{
		"certificate_document", "certificate_document_date", "certificate_document_number", "owner_inn",
		"producer_inn", "production_date", "tnved_code", "uit_code", "uitu_code",
	} {
		require.Contains(t, product, key)
	}
}

func TestDocument_Validate(t *testing.T) {
	doc := ExampleDocument()
	doc.DocType = ""
	require.EqualError(t, doc.Validate(), "doc_type is required")

	doc = ExampleDocument()
	doc.Products[0].ProductionDate = "23.01.2020"
	_, err := doc.ProvideJSON()
	require.EqualError(t, err,
		`validate document: products[0].production_date: invalid date "23.01.2020", 2006-01-02 layout is expected`)

	doc = ExampleDocument()
	doc.RegDate = ""
	require.NoError(t, doc.Validate())
}

func TestDocumentJSON(t *testing.T) {
	data, err := DocumentJSON(`{"doc_id":"1"}`).ProvideJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"doc_id":"1"}`, string(data))

	_, err = DocumentJSON(`{"doc_id":`).ProvideJSON()
	require.Error(t, err)
}
