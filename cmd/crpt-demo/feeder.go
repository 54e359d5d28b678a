/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/acronis/go-crptclient/crpt"
	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/service"
)

// documentSubmitter is satisfied by *crpt.API.
type documentSubmitter interface {
	CreateDocument(p crpt.DocumentProvider) (dispatch.Item, error)
}

// feeder submits one example document per run until total documents are submitted.
type feeder struct {
	api       documentSubmitter
	logger    log.FieldLogger
	total     int
	submitted int
}

var _ service.Worker = (*feeder)(nil)

func (f *feeder) Run(ctx context.Context) error {
	if f.submitted >= f.total {
		f.logger.Info("all documents are submitted", log.Int("documents", f.submitted))
		return service.ErrPeriodicWorkerStop
	}
	item, err := f.api.CreateDocument(crpt.ExampleDocument())
	if err != nil {
		if errors.Is(err, dispatch.ErrStopped) {
			return service.ErrPeriodicWorkerStop
		}
		return fmt.Errorf("submit document: %w", err)
	}
	f.submitted++
	f.logger.Debug("document submitted", log.String("item_id", item.ID), log.Int("submitted", f.submitted))
	return nil
}
