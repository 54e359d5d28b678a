/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"context"
	"fmt"

	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/httpclient"
	"github.com/acronis/go-crptclient/log"
)

// ResponseHandler receives successful responses of document creation.
type ResponseHandler func(item dispatch.Item, resp *CreateDocumentResponse)

// DocumentExecutor is a dispatch.Executor that sends DocumentProvider payloads with Client.
// The item ID is sent as X-Request-ID.
type DocumentExecutor struct {
	Client          *Client
	Logger          log.FieldLogger
	ResponseHandler ResponseHandler
}

var _ dispatch.Executor = (*DocumentExecutor)(nil)

// Execute implements dispatch.Executor interface.
func (e *DocumentExecutor) Execute(ctx context.Context, item dispatch.Item) error {
	provider, ok := item.Payload.(DocumentProvider)
	if !ok {
		return fmt.Errorf("unsupported payload type %T, DocumentProvider is expected", item.Payload)
	}
	resp, err := e.Client.CreateDocument(httpclient.NewContextWithRequestID(ctx, item.ID), provider)
	if err != nil {
		return err
	}
	if e.Logger != nil {
		e.Logger.Info("document created",
			log.String("item_id", item.ID),
			log.Int("status", resp.StatusCode),
			log.Int("response_size", len(resp.Body)),
		)
	}
	if e.ResponseHandler != nil {
		e.ResponseHandler(item, resp)
	}
	return nil
}
